// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/invowk/pluginlib/pkg/activate"
	"github.com/invowk/pluginlib/pkg/cache"
	"github.com/invowk/pluginlib/pkg/declaration"
)

// ErrNoLoader is returned by Bootstrap when BootstrapOptions.Loader is nil.
var ErrNoLoader = errors.New("no loader configured")

type (
	// BootstrapOptions wires a host's startup hook.
	BootstrapOptions struct {
		// Manifest locates the manifest and the cache root.
		Manifest declaration.LoadOptions
		// Loader receives the activated artifacts.
		Loader activate.Loader
		// Fetcher replaces cache.DefaultFetcher() when set.
		Fetcher cache.Fetcher
		// Rewriter replaces the built-in jar rewriter when set.
		Rewriter cache.Rewriter
		// Concurrency is passed to WithConcurrency.
		Concurrency int
		Logger      *slog.Logger
	}

	// Bootstrapped is the outcome of Bootstrap.
	Bootstrapped struct {
		Manifest *declaration.Result
		Cache    *cache.Cache
		Report   *Report
	}
)

// Bootstrap loads the manifest, resolves every declared library into the
// application's cache directory and activates them through opts.Loader.
//
// Manifest errors are returned before any network access. Otherwise the
// result is non-nil and carries the report even when err is set.
func Bootstrap(ctx context.Context, opts BootstrapOptions) (*Bootstrapped, error) {
	if opts.Loader == nil {
		return nil, ErrNoLoader
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	manifest, err := declaration.NewLoader(opts.Manifest).Load(ctx)
	if err != nil {
		return nil, err
	}

	cacheOpts := []cache.Option{
		cache.WithDeleteSource(manifest.Settings.DeleteAfterRelocation),
		cache.WithLogger(logger),
	}
	if opts.Fetcher != nil {
		cacheOpts = append(cacheOpts, cache.WithFetcher(opts.Fetcher))
	}
	if opts.Rewriter != nil {
		cacheOpts = append(cacheOpts, cache.WithRewriter(opts.Rewriter))
	}
	c := cache.New(manifest.Settings.LibrariesDir(), cacheOpts...)

	p := New(c, activate.New(opts.Loader, activate.WithLogger(logger)),
		WithConcurrency(opts.Concurrency), WithLogger(logger))

	logger.Info("bootstrapping runtime libraries", "app", manifest.AppName, "libraries", len(manifest.Libraries))
	report, err := p.Run(ctx, manifest.Libraries)
	return &Bootstrapped{Manifest: manifest, Cache: c, Report: report}, err
}
