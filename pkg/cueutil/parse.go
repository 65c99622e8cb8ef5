// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// ParseResult contains the result of a successful parse.
type ParseResult[T any] struct {
	// Value is the decoded Go value.
	Value *T

	// Unified is the validated CUE value. Callers use it to recover field
	// order or other metadata lost by decoding.
	Unified cue.Value
}

// Compile unifies data with the schema definition at definition (e.g. "#Manifest")
// and validates the result.
func Compile(schema, data []byte, definition string, opts ...Option) (cue.Value, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	filename := o.filename
	if filename == "" {
		filename = "<input>"
	}

	if err := CheckFileSize(data, o.maxFileSize, filename); err != nil {
		return cue.Value{}, err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileBytes(schema)
	if schemaValue.Err() != nil {
		return cue.Value{}, fmt.Errorf("internal error: compile schema: %w", schemaValue.Err())
	}
	root := schemaValue.LookupPath(cue.ParsePath(definition))
	if root.Err() != nil {
		return cue.Value{}, fmt.Errorf("internal error: schema definition %s not found: %w", definition, root.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(filename))
	if userValue.Err() != nil {
		return cue.Value{}, FormatError(userValue.Err(), filename)
	}

	unified := root.Unify(userValue)
	if err := unified.Validate(cue.Concrete(o.concrete)); err != nil {
		return cue.Value{}, FormatError(err, filename)
	}
	return unified, nil
}

// ParseAndDecode compiles and validates data against the schema definition and
// decodes the result into a T.
func ParseAndDecode[T any](schema, data []byte, definition string, opts ...Option) (*ParseResult[T], error) {
	unified, err := Compile(schema, data, definition, opts...)
	if err != nil {
		return nil, err
	}

	var value T
	if err := unified.Decode(&value); err != nil {
		return nil, FormatError(err, filenameOf(opts))
	}
	return &ParseResult[T]{Value: &value, Unified: unified}, nil
}

// FieldNames returns the regular field labels of the struct at path in the
// order they were written. A missing path yields nil.
func FieldNames(v cue.Value, path ...string) ([]string, error) {
	if len(path) > 0 {
		selectors := make([]cue.Selector, len(path))
		for i, p := range path {
			selectors[i] = cue.Str(p)
		}
		v = v.LookupPath(cue.MakePath(selectors...))
	}
	if !v.Exists() {
		return nil, nil
	}

	it, err := v.Fields()
	if err != nil {
		return nil, err
	}
	var names []string
	for it.Next() {
		names = append(names, it.Selector().Unquoted())
	}
	return names, nil
}

func filenameOf(opts []Option) string {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.filename == "" {
		return "<input>"
	}
	return o.filename
}
