// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides the shared CUE parsing flow used by host manifests
// and the tool configuration:
//
//  1. Compile the embedded schema
//  2. Compile user data and unify it with a schema definition
//  3. Validate, then decode to a Go value
//
// # Usage
//
//	//go:embed manifest_schema.cue
//	var manifestSchema []byte
//
//	result, err := cueutil.ParseAndDecode[document](
//	    manifestSchema,
//	    data,
//	    "#Manifest",
//	    cueutil.WithFilename("plugin.cue"),
//	)
//	if err != nil {
//	    return nil, err // *ValidationError carries the CUE path of each problem
//	}
//
// CUE structs keep the order in which fields were written; FieldNames exposes
// that order for callers that decode into Go maps.
package cueutil
