// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/invowk/pluginlib/internal/config"
	"github.com/invowk/pluginlib/internal/issue"
	"github.com/invowk/pluginlib/internal/logging"
	"github.com/invowk/pluginlib/pkg/activate"
	"github.com/invowk/pluginlib/pkg/cache"
	"github.com/invowk/pluginlib/pkg/declaration"
	"github.com/invowk/pluginlib/pkg/library"
	"github.com/invowk/pluginlib/pkg/pipeline"
	"github.com/invowk/pluginlib/pkg/relocate"
)

type (
	// ConfigProvider loads the tool configuration.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// App is the composition root of the CLI. Every command constructor
	// receives it and reads flags, configuration and output streams from it.
	App struct {
		Config ConfigProvider
		stdout io.Writer
		stderr io.Writer
		getenv func(string) string
		getwd  func() (string, error)
		flags  globalFlags
	}

	// Dependencies are the injection points of NewApp. Nil fields get the
	// production defaults.
	Dependencies struct {
		Config ConfigProvider
		Stdout io.Writer
		Stderr io.Writer
		Getenv func(string) string
		Getwd  func() (string, error)
	}

	globalFlags struct {
		configPath   string
		manifestPath string
		cacheDir     string
		verbose      bool
	}

	// session is the per-invocation state derived from flags and configuration.
	session struct {
		cfg      *config.Config
		logger   *slog.Logger
		manifest declaration.LoadOptions
		fetcher  cache.Fetcher
	}
)

// NewApp creates an App, filling unset dependencies with defaults.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
		getenv: deps.Getenv,
		getwd:  deps.Getwd,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	if app.getenv == nil {
		app.getenv = os.Getenv
	}
	if app.getwd == nil {
		app.getwd = os.Getwd
	}
	return app
}

func (a *App) newSession(ctx context.Context) (*session, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.flags.configPath})
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel.SlogLevel()
	if a.flags.verbose {
		level = slog.LevelDebug
	}
	logger := logging.New(a.stderr, level)

	manifestPath, err := a.manifestPath()
	if err != nil {
		return nil, err
	}

	cacheRoot := a.flags.cacheDir
	if cacheRoot == "" {
		if cacheRoot, err = cfg.ResolvedCacheDir(a.getenv); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("locate the cache directory").
				WithSuggestion("Set cache_dir in the config file or pass --cache-dir").
				Wrap(err).
				BuildError()
		}
	}

	userAgent := cfg.HTTP.UserAgent
	if userAgent == "" {
		userAgent = config.AppName + "/" + Version
	}

	logger.Debug("session ready", "manifest", manifestPath, "cache", cacheRoot, "concurrency", cfg.Concurrency)
	return &session{
		cfg:    cfg,
		logger: logger,
		manifest: declaration.LoadOptions{
			Path: manifestPath,
			ParseOptions: declaration.ParseOptions{
				CacheRoot:         cacheRoot,
				DefaultRepository: cfg.DefaultRepository,
			},
		},
		fetcher: cache.DefaultFetcher(
			cache.WithUserAgent(userAgent),
			cache.WithTimeout(cfg.HTTP.Timeout),
		),
	}, nil
}

// manifestPath returns --manifest, or the first manifest found in the
// working directory.
func (a *App) manifestPath() (string, error) {
	if a.flags.manifestPath != "" {
		return a.flags.manifestPath, nil
	}
	wd, err := a.getwd()
	if err != nil {
		return "", err
	}
	path, err := declaration.Find(wd)
	if err != nil {
		return "", manifestError(wd, err)
	}
	return path, nil
}

// loadManifest reads the manifest without touching the cache.
func (s *session) loadManifest(ctx context.Context) (*declaration.Result, error) {
	result, err := declaration.NewLoader(s.manifest).Load(ctx)
	if err != nil {
		return nil, manifestError(s.manifest.Path, err)
	}
	return result, nil
}

// cacheFor opens the cache directory of a loaded manifest.
func (s *session) cacheFor(manifest *declaration.Result) *cache.Cache {
	return cache.New(manifest.Settings.LibrariesDir(), cache.WithLogger(s.logger))
}

// bootstrap resolves and activates the manifest's libraries through loader.
// The result is nil only when the manifest could not be loaded.
func (s *session) bootstrap(ctx context.Context, loader activate.Loader) (*pipeline.Bootstrapped, error) {
	b, err := pipeline.Bootstrap(ctx, pipeline.BootstrapOptions{
		Manifest:    s.manifest,
		Loader:      loader,
		Fetcher:     s.fetcher,
		Concurrency: s.cfg.Concurrency,
		Logger:      s.logger,
	})
	if b == nil && err != nil {
		return nil, manifestError(s.manifest.Path, err)
	}
	if err != nil {
		return b, resolveError(b.Manifest, err)
	}
	return b, nil
}

func manifestError(path string, err error) error {
	ec := issue.NewErrorContext().
		WithOperation("load manifest").
		WithResource(path).
		Wrap(err)

	switch {
	case errors.Is(err, fs.ErrNotExist):
		ec.WithIssue(issue.ManifestNotFoundId).
			WithSuggestion("Run the command next to plugin.yml or pass --manifest")
	case errors.Is(err, fs.ErrPermission):
		ec.WithIssue(issue.PermissionDeniedId)
	case errors.Is(err, declaration.ErrMissingRelocationPrefix):
		ec.WithIssue(issue.MissingRelocationPrefixId).
			WithSuggestion("Add runtime-libraries.relocation-prefix to the manifest")
	case errors.Is(err, library.ErrIncompleteDescriptor), errors.Is(err, library.ErrMalformedCoordinateDocument):
		ec.WithIssue(issue.IncompleteLibraryId)
	default:
		ec.WithIssue(issue.ManifestParseErrorId)
	}
	return ec.BuildError()
}

func resolveError(manifest *declaration.Result, err error) error {
	ec := issue.NewErrorContext().
		WithOperation("resolve runtime libraries").
		WithResource(manifest.AppName).
		Wrap(err)

	switch {
	case errors.Is(err, fs.ErrPermission):
		ec.WithIssue(issue.PermissionDeniedId)
	case errors.Is(err, activate.ErrActivationFailed):
		ec.WithIssue(issue.ActivationFailedId)
	case errors.Is(err, relocate.ErrRelocationFailed):
		ec.WithIssue(issue.RelocationFailedId)
	case errors.Is(err, cache.ErrArtifactUnavailable):
		ec.WithIssue(issue.ArtifactUnavailableId).
			WithSuggestion("Check the repository URL and your network connection")
	}
	return ec.BuildError()
}
