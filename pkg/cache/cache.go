// SPDX-License-Identifier: MPL-2.0

package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/invowk/pluginlib/pkg/library"
	"github.com/invowk/pluginlib/pkg/relocate"

	"golang.org/x/sync/singleflight"
)

const (
	// RelocatedSuffix is inserted before the archive extension of relocated entries.
	RelocatedSuffix = "-relocated"

	// tempPattern names in-flight downloads and rewrites.
	tempPattern = ".pluginlib-*.tmp"
)

// Stages reported to a ProgressFunc.
const (
	StageFetching Stage = iota
	StageFetched
	StageRewriting
	StageRewritten
)

// ErrArtifactUnavailable is the sentinel error wrapped by ArtifactUnavailableError.
var ErrArtifactUnavailable = errors.New("artifact unavailable")

type (
	// Rewriter produces the relocated copy of an artifact. *relocate.Rewriter
	// implements it.
	Rewriter interface {
		Rewrite(ctx context.Context, in, out string, rules []library.Relocation) error
	}

	// Cache is an on-disk artifact cache rooted at one directory. It is safe
	// for concurrent use.
	Cache struct {
		dir          string
		fetcher      Fetcher
		rewriter     Rewriter
		deleteSource bool
		logger       *slog.Logger

		flights singleflight.Group
	}

	// Option configures a Cache during construction.
	Option func(*Cache)

	// Stage is a step of Resolve.
	Stage int

	// ProgressFunc observes the stages of a resolution.
	ProgressFunc func(Stage)

	// Resolution is the outcome of Resolve.
	Resolution struct {
		Library library.Descriptor
		// Path is the file to activate: the relocated entry when the library
		// has relocations, the raw entry otherwise.
		Path string
		// Relocated reports whether Path is a relocated entry.
		Relocated bool
	}

	// ArtifactUnavailableError is returned when an artifact is absent from the
	// cache after a download attempt. It wraps ErrArtifactUnavailable and the
	// download error.
	ArtifactUnavailableError struct {
		Library library.Descriptor
		URL     string
		Cause   error
	}
)

// WithFetcher replaces DefaultFetcher().
func WithFetcher(f Fetcher) Option {
	return func(c *Cache) { c.fetcher = f }
}

// WithRewriter replaces the built-in jar rewriter.
func WithRewriter(r Rewriter) Option {
	return func(c *Cache) { c.rewriter = r }
}

// WithDeleteSource removes the raw entry once the relocated entry exists.
func WithDeleteSource(enabled bool) Option {
	return func(c *Cache) { c.deleteSource = enabled }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// New creates a cache storing entries directly in dir. The directory is
// created on the first download.
func New(dir string, opts ...Option) *Cache {
	c := &Cache{dir: dir}
	for _, opt := range opts {
		opt(c)
	}
	if c.fetcher == nil {
		c.fetcher = DefaultFetcher()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.rewriter == nil {
		c.rewriter = relocate.NewRewriter(relocate.NewJarTransformer(), relocate.WithLogger(c.logger))
	}
	return c
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// RawPath returns the path of the downloaded artifact.
func (c *Cache) RawPath(d library.Descriptor) string {
	return filepath.Join(c.dir, d.FileStem()+library.ArchiveExt)
}

// RelocatedPath returns the path of the relocated artifact.
func (c *Cache) RelocatedPath(d library.Descriptor) string {
	return filepath.Join(c.dir, d.FileStem()+RelocatedSuffix+library.ArchiveExt)
}

// FinalPath returns the path Resolve yields for d.
func (c *Cache) FinalPath(d library.Descriptor) string {
	if d.HasRelocations() {
		return c.RelocatedPath(d)
	}
	return c.RawPath(d)
}

// Fetch makes sure the raw artifact is in the cache and returns its path.
// An existing entry is returned without any I/O.
func (c *Cache) Fetch(ctx context.Context, d library.Descriptor) (string, error) {
	path := c.RawPath(d)
	err := c.shared(ctx, path, func(ctx context.Context) error {
		return c.fetch(ctx, d, path)
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

// shared runs fn once for all concurrent callers with the same key. The work
// is detached from the cancellation of whichever caller started it, so one
// caller giving up never fails the others. A caller whose ctx ends stops
// waiting and gets ctx.Err().
func (c *Cache) shared(ctx context.Context, key string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	flightCtx := context.WithoutCancel(ctx)
	ch := c.flights.DoChan(key, func() (any, error) {
		return nil, fn(flightCtx)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Cache) fetch(ctx context.Context, d library.Descriptor, path string) error {
	if exists(path) {
		return nil
	}

	u := d.URL()
	log := c.logger.With("library", d.Key(), "url", redactURL(u))
	log.Info("downloading artifact")

	cause := c.download(ctx, u, path)
	if exists(path) {
		log.Debug("artifact cached", "path", path)
		return nil
	}
	if cause == nil {
		cause = errors.New("no file after download")
	}
	log.Error("artifact unavailable", "error", cause)
	return &ArtifactUnavailableError{Library: d, URL: redactURL(u), Cause: cause}
}

// download streams url into a temp file beside path and renames it into place.
func (c *Cache) download(ctx context.Context, url, path string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	body, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }() // read-only stream

	tmp, err := os.CreateTemp(filepath.Dir(path), tempPattern)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name()) // best-effort cleanup of a partial download
		}
	}()

	if _, err = io.Copy(tmp, body); err != nil {
		return fmt.Errorf("writing to temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("moving download into place: %w", err)
	}
	return nil
}

// Resolve fetches and, when d has relocations, rewrites the artifact.
//
// An existing relocated entry is returned without touching the raw entry or
// the network. A rewrite failure leaves the raw entry in place.
func (c *Cache) Resolve(ctx context.Context, d library.Descriptor) (Resolution, error) {
	return c.ResolveWithProgress(ctx, d, nil)
}

// ResolveWithProgress is Resolve reporting each stage it enters to progress.
// Stages skipped because their output already exists are not reported.
func (c *Cache) ResolveWithProgress(ctx context.Context, d library.Descriptor, progress ProgressFunc) (Resolution, error) {
	report := func(s Stage) {
		if progress != nil {
			progress(s)
		}
	}

	if d.HasRelocations() {
		if out := c.RelocatedPath(d); exists(out) {
			c.logger.Debug("relocated artifact cached", "library", d.Key(), "path", out)
			return Resolution{Library: d, Path: out, Relocated: true}, nil
		}
	}

	report(StageFetching)
	raw, err := c.Fetch(ctx, d)
	if err != nil {
		return Resolution{Library: d}, err
	}
	report(StageFetched)

	if !d.HasRelocations() {
		return Resolution{Library: d, Path: raw}, nil
	}

	report(StageRewriting)
	out, err := c.relocate(ctx, d, raw)
	if err != nil {
		return Resolution{Library: d}, err
	}
	report(StageRewritten)
	return Resolution{Library: d, Path: out, Relocated: true}, nil
}

func (c *Cache) relocate(ctx context.Context, d library.Descriptor, raw string) (string, error) {
	out := c.RelocatedPath(d)
	err := c.shared(ctx, out, func(ctx context.Context) error {
		if err := c.rewriter.Rewrite(ctx, raw, out, d.Relocations()); err != nil {
			c.logger.Error("relocation failed", "library", d.Key(), "path", raw, "error", err)
			return err
		}
		if c.deleteSource {
			if err := os.Remove(raw); err != nil && !errors.Is(err, fs.ErrNotExist) {
				c.logger.Warn("could not delete raw artifact", "path", raw, "error", err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageFetching:
		return "fetching"
	case StageFetched:
		return "fetched"
	case StageRewriting:
		return "rewriting"
	case StageRewritten:
		return "rewritten"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Error implements the error interface.
func (e *ArtifactUnavailableError) Error() string {
	return fmt.Sprintf("%s: %s from %s: %v", ErrArtifactUnavailable, e.Library.Key(), e.URL, e.Cause)
}

// Unwrap returns ErrArtifactUnavailable and the download error.
func (e *ArtifactUnavailableError) Unwrap() []error {
	return []error{ErrArtifactUnavailable, e.Cause}
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
