// SPDX-License-Identifier: MPL-2.0

// Package library models the external artifacts an application resolves at runtime.
//
// A [Descriptor] is an immutable description of one artifact: its Maven-style
// coordinates, the repository it is downloaded from (or a direct URL), and the
// set of [Relocation] rules applied to it before activation.
//
// Descriptors are produced by a [Builder], which accepts three origins:
//   - [NewBuilder]: explicit field-by-field configuration
//   - [ParseXML]: a Maven coordinate document (a <dependency> snippet)
//   - [FromURL]: a direct download URL; artifact and version must still be supplied
//
// Every origin converges on [Builder.Build], which validates completeness and
// reports an [IncompleteDescriptorError] listing the missing fields.
package library
