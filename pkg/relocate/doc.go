// SPDX-License-Identifier: MPL-2.0

// Package relocate rewrites the namespaces of an artifact according to a set
// of relocation rules.
//
// A Rewriter owns the file handling (skip when the output exists, temp file,
// atomic rename) and delegates the archive rewrite to a Transformer. The
// built-in JarTransformer rewrites jar archives natively; hosts that prefer an
// external tool plug it in with TransformerFunc.
package relocate
