// SPDX-License-Identifier: MPL-2.0

package relocate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/invowk/pluginlib/pkg/library"
)

// ErrRelocationFailed is the sentinel error wrapped by RelocationFailedError.
var ErrRelocationFailed = errors.New("relocation failed")

type (
	// Transformer writes a relocated copy of the archive at in to out.
	// out does not exist when Transform is called.
	Transformer interface {
		Transform(ctx context.Context, in, out string, m Mapping) error
	}

	// TransformerFunc adapts a function to the Transformer interface.
	TransformerFunc func(ctx context.Context, in, out string, m Mapping) error

	// Rewriter produces relocated artifacts through a Transformer, publishing
	// each output with an atomic rename.
	Rewriter struct {
		transformer Transformer
		logger      *slog.Logger
	}

	// Option configures a Rewriter during construction.
	Option func(*Rewriter)

	// RelocationFailedError is returned when the transformer fails. It wraps
	// ErrRelocationFailed and the transformer's error.
	RelocationFailedError struct {
		Input  string
		Output string
		Cause  error
	}
)

// Transform calls f.
func (f TransformerFunc) Transform(ctx context.Context, in, out string, m Mapping) error {
	return f(ctx, in, out, m)
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Rewriter) { r.logger = l }
}

// NewRewriter creates a Rewriter around t.
func NewRewriter(t Transformer, opts ...Option) *Rewriter {
	r := &Rewriter{transformer: t, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rewrite writes the relocated copy of in to out. An existing out is left
// untouched. The transformer runs once against a temp file beside out, which
// is renamed into place on success and removed on failure. Failures are not
// retried.
func (r *Rewriter) Rewrite(ctx context.Context, in, out string, rules []library.Relocation) error {
	if info, err := os.Stat(out); err == nil && info.Mode().IsRegular() {
		r.logger.Debug("relocated artifact exists", "path", out)
		return nil
	}

	m := NewMapping(rules)
	r.logger.Info("relocating artifact", "path", in, "rules", m.Len())

	if err := r.rewrite(ctx, in, out, m); err != nil {
		return &RelocationFailedError{Input: in, Output: out, Cause: err}
	}
	return nil
}

func (r *Rewriter) rewrite(ctx context.Context, in, out string, m Mapping) (err error) {
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(out), tempPattern)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close() // the transformer recreates the file
	if err := os.Remove(tmpPath); err != nil {
		return fmt.Errorf("preparing temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath) // best-effort cleanup of a partial output
		}
	}()

	if err = r.transformer.Transform(ctx, in, tmpPath, m); err != nil {
		return err
	}
	if err = os.Rename(tmpPath, out); err != nil {
		return fmt.Errorf("moving relocated artifact into place: %w", err)
	}
	return nil
}

// Error implements the error interface.
func (e *RelocationFailedError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrRelocationFailed, e.Input, e.Cause)
}

// Unwrap returns ErrRelocationFailed and the transformer error.
func (e *RelocationFailedError) Unwrap() []error {
	return []error{ErrRelocationFailed, e.Cause}
}
