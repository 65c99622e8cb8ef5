// SPDX-License-Identifier: MPL-2.0

package declaration

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingRelocationPrefix is returned when relocations are declared but
	// relocation-prefix is empty.
	ErrMissingRelocationPrefix = errors.New("relocations declared without a relocation prefix")
	// ErrMissingAppName is returned when the manifest has no name.
	ErrMissingAppName = errors.New("manifest has no name")
	// ErrUnsupportedFormat is the sentinel error wrapped by UnsupportedFormatError.
	ErrUnsupportedFormat = errors.New("unsupported manifest format")
)

type (
	// MissingRelocationPrefixError names where the offending relocation was declared.
	// It wraps ErrMissingRelocationPrefix for errors.Is() compatibility.
	MissingRelocationPrefixError struct {
		// Library is the key of the library entry, or "" for global-relocations.
		Library string
	}

	// UnsupportedFormatError is returned for a manifest path or format name
	// that is not YAML, CUE or TOML.
	UnsupportedFormatError struct {
		Value string
	}

	// LibraryError attaches the library key to a failure building its descriptor.
	LibraryError struct {
		Key string
		Err error
	}
)

// Error implements the error interface.
func (e *MissingRelocationPrefixError) Error() string {
	if e.Library == "" {
		return "global-relocations: " + ErrMissingRelocationPrefix.Error()
	}
	return fmt.Sprintf("library %q: %s", e.Library, ErrMissingRelocationPrefix)
}

// Unwrap returns ErrMissingRelocationPrefix for errors.Is() compatibility.
func (e *MissingRelocationPrefixError) Unwrap() error { return ErrMissingRelocationPrefix }

// Error implements the error interface.
func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("%s %q (expected .yml, .yaml, .cue or .toml)", ErrUnsupportedFormat, e.Value)
}

// Unwrap returns ErrUnsupportedFormat for errors.Is() compatibility.
func (e *UnsupportedFormatError) Unwrap() error { return ErrUnsupportedFormat }

// Error implements the error interface.
func (e *LibraryError) Error() string {
	return fmt.Sprintf("library %q: %v", e.Key, e.Err)
}

// Unwrap returns the builder error.
func (e *LibraryError) Unwrap() error { return e.Err }
