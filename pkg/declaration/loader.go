// SPDX-License-Identifier: MPL-2.0

package declaration

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// DefaultManifestNames are the manifest file names Find looks for, in order.
var DefaultManifestNames = []string{"plugin.yml", "plugin.yaml", "plugin.cue", "plugin.toml"}

type (
	// LoadOptions defines explicit manifest loading inputs.
	LoadOptions struct {
		// Path is the manifest file.
		Path string
		// Format overrides the choice made from the file extension.
		Format Format
		ParseOptions
	}

	// Loader reads and expands a manifest at most once. It is safe for
	// concurrent use; every Load call returns the first call's outcome.
	Loader struct {
		opts LoadOptions

		once   sync.Once
		result *Result
		err    error
	}
)

// NewLoader creates a loader for the manifest described by opts.
func NewLoader(opts LoadOptions) *Loader {
	return &Loader{opts: opts}
}

// Load reads and parses the manifest on the first call and returns the cached
// result or error afterwards.
func (l *Loader) Load(ctx context.Context) (*Result, error) {
	l.once.Do(func() {
		l.result, l.err = l.load(ctx)
	})
	return l.result, l.err
}

func (l *Loader) load(ctx context.Context) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load manifest canceled: %w", ctx.Err())
	default:
	}

	format := l.opts.Format
	if format == "" {
		var err error
		if format, err = FormatFromPath(l.opts.Path); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(l.opts.Path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	opts := l.opts.ParseOptions
	if opts.Filename == "" {
		opts.Filename = l.opts.Path
	}
	return Parse(format, data, opts)
}

// Find returns the first of DefaultManifestNames present in dir. The error
// wraps fs.ErrNotExist when there is none.
func Find(dir string) (string, error) {
	for _, name := range DefaultManifestNames {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("no manifest in %s: %w", dir, fs.ErrNotExist)
}
