// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"fmt"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

var (
	// ErrInvalidDocument is the sentinel error wrapped by ValidationError.
	ErrInvalidDocument = errors.New("invalid CUE document")
	// ErrFileTooLarge is returned by CheckFileSize.
	ErrFileTooLarge = errors.New("file too large")
)

type (
	// Problem is one CUE error located by its JSON-style path.
	Problem struct {
		// Path is the location of the offending value (e.g. "libraries.gson.version").
		// It is empty for syntax errors.
		Path string
		// Message is the CUE error text without the path prefix.
		Message string
	}

	// ValidationError reports every problem CUE found in one file.
	// It wraps ErrInvalidDocument for errors.Is() compatibility.
	ValidationError struct {
		FilePath string
		Problems []Problem
	}
)

// Error implements the error interface.
//
// A single problem renders as "<file>: <path>: <message>"; several problems
// render one per indented line.
func (e *ValidationError) Error() string {
	lines := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		if p.Path != "" {
			lines[i] = p.Path + ": " + p.Message
		} else {
			lines[i] = p.Message
		}
	}
	if len(lines) == 1 {
		return fmt.Sprintf("%s: %s", e.FilePath, lines[0])
	}
	return fmt.Sprintf("%s: validation failed:\n  %s", e.FilePath, strings.Join(lines, "\n  "))
}

// Unwrap returns ErrInvalidDocument for errors.Is() compatibility.
func (e *ValidationError) Unwrap() error { return ErrInvalidDocument }

// FormatError converts a CUE error into a *ValidationError. Errors that carry
// no CUE detail are wrapped with the file path instead.
func FormatError(err error, filePath string) error {
	if err == nil {
		return nil
	}

	list := cueerrors.Errors(err)
	if len(list) == 0 {
		return fmt.Errorf("%s: %w", filePath, err)
	}

	ve := &ValidationError{FilePath: filePath}
	for _, e := range list {
		path := formatPath(e.Path())
		msg := e.Error()
		// CUE sometimes repeats the path at the start of the message.
		if path != "" && strings.HasPrefix(msg, path) {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, path), ":"))
		}
		ve.Problems = append(ve.Problems, Problem{Path: path, Message: msg})
	}
	return ve
}

// formatPath renders a CUE path (["libraries", "0", "url"]) in JSON-path
// notation ("libraries[0].url").
func formatPath(path []string) string {
	var sb strings.Builder
	for i, part := range path {
		if i > 0 && isIndex(part) {
			sb.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(part)
	}
	return sb.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// CheckFileSize fails with ErrFileTooLarge when data exceeds maxSize bytes.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if int64(len(data)) > maxSize {
		return fmt.Errorf("%s: %w: %d bytes exceeds maximum %d bytes", filename, ErrFileTooLarge, len(data), maxSize)
	}
	return nil
}
