// SPDX-License-Identifier: MPL-2.0

package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultUserAgent is sent by HTTPFetcher unless overridden.
const DefaultUserAgent = "pluginlib/dev"

var (
	// ErrUnsupportedScheme is returned by SchemeFetcher for URLs it has no fetcher for.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
	// ErrUnexpectedStatus is the sentinel error wrapped by StatusError.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
)

type (
	// Fetcher opens a stream of the resource at a URL. The caller closes it.
	Fetcher interface {
		Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error)
	}

	// FetcherFunc adapts a function to the Fetcher interface.
	FetcherFunc func(ctx context.Context, rawURL string) (io.ReadCloser, error)

	// HTTPFetcher downloads http and https URLs.
	HTTPFetcher struct {
		client    *http.Client
		userAgent string
	}

	// HTTPOption configures an HTTPFetcher during construction.
	HTTPOption func(*HTTPFetcher)

	// FileFetcher opens file:// URLs, typically a local Maven repository.
	FileFetcher struct{}

	// SchemeFetcher dispatches on the URL scheme.
	SchemeFetcher map[string]Fetcher

	// StatusError is returned when a server answers with anything but 200 OK.
	// It wraps ErrUnexpectedStatus for errors.Is() compatibility.
	StatusError struct {
		URL        string
		StatusCode int
	}
)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	return f(ctx, rawURL)
}

// WithHTTPClient sets a custom HTTP client, useful for tests or proxy configurations.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(f *HTTPFetcher) {
		f.client = c
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) HTTPOption {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithTimeout bounds each request, including reading the body. Zero means no timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(f *HTTPFetcher) {
		c := *f.client
		c.Timeout = d
		f.client = &c
	}
}

// NewHTTPFetcher creates an HTTPFetcher using http.DefaultClient and DefaultUserAgent.
func NewHTTPFetcher(opts ...HTTPOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:    http.DefaultClient,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch issues a GET request and returns the response body.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close() // body is discarded
		return nil, &StatusError{URL: redactURL(rawURL), StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}

// Fetch opens the file named by a file:// URL.
func (FileFetcher) Fetch(_ context.Context, rawURL string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "file" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	return os.Open(filepath.FromSlash(u.Path))
}

// Fetch forwards to the fetcher registered for the URL's scheme.
func (s SchemeFetcher) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	f, ok := s[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	return f.Fetch(ctx, rawURL)
}

// DefaultFetcher handles http, https and file URLs.
func DefaultFetcher(opts ...HTTPOption) Fetcher {
	h := NewHTTPFetcher(opts...)
	return SchemeFetcher{
		"http":  h,
		"https": h,
		"file":  FileFetcher{},
	}
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %s %d (%s)", e.URL, ErrUnexpectedStatus, e.StatusCode, http.StatusText(e.StatusCode))
}

// Unwrap returns ErrUnexpectedStatus for errors.Is() compatibility.
func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// redactURL strips credentials, query and fragment before a URL is logged.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
