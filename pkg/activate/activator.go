// SPDX-License-Identifier: MPL-2.0

package activate

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/invowk/pluginlib/pkg/library"
)

// ErrActivationFailed is the sentinel error wrapped by ActivationError.
var ErrActivationFailed = errors.New("activation failed")

type (
	// Loader makes an artifact's contents visible to the host.
	Loader interface {
		AddArtifact(path string) error
	}

	// LoaderFunc adapts a function to the Loader interface.
	LoaderFunc func(path string) error

	// Activator injects resolved artifacts into a Loader.
	Activator struct {
		loader Loader
		logger *slog.Logger
	}

	// Option configures an Activator during construction.
	Option func(*Activator)

	// ActivationError is returned when an artifact cannot be injected. It
	// wraps ErrActivationFailed and the underlying cause.
	ActivationError struct {
		Library library.Descriptor
		Path    string
		Cause   error
	}
)

// AddArtifact calls f.
func (f LoaderFunc) AddArtifact(path string) error { return f(path) }

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Activator) { a.logger = l }
}

// New creates an Activator feeding loader.
func New(loader Loader, opts ...Option) *Activator {
	a := &Activator{loader: loader, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Activate injects the artifact at path, which must be an existing regular
// file. Activating two versions of one coordinate is not detected.
func (a *Activator) Activate(d library.Descriptor, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return &ActivationError{Library: d, Path: path, Cause: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return &ActivationError{Library: d, Path: abs, Cause: err}
	}
	if !info.Mode().IsRegular() {
		return &ActivationError{Library: d, Path: abs, Cause: fmt.Errorf("%s is not a regular file", abs)}
	}

	if err := a.loader.AddArtifact(abs); err != nil {
		a.logger.Error("activation failed", "library", d.Key(), "path", abs, "error", err)
		return &ActivationError{Library: d, Path: abs, Cause: err}
	}
	a.logger.Debug("library activated", "library", d.Key(), "path", abs)
	return nil
}

// Error implements the error interface.
func (e *ActivationError) Error() string {
	return fmt.Sprintf("%s: %s (%s): %v", ErrActivationFailed, e.Library.Key(), e.Path, e.Cause)
}

// Unwrap returns ErrActivationFailed and the underlying cause.
func (e *ActivationError) Unwrap() []error {
	return []error{ErrActivationFailed, e.Cause}
}
