// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/invowk/pluginlib/pkg/cache"
	"github.com/invowk/pluginlib/pkg/declaration"
	"github.com/invowk/pluginlib/pkg/library"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency resolves libraries one at a time.
const DefaultConcurrency = 1

type (
	// Resolver fetches and rewrites artifacts. *cache.Cache implements it.
	Resolver interface {
		ResolveWithProgress(ctx context.Context, d library.Descriptor, progress cache.ProgressFunc) (cache.Resolution, error)
	}

	// Activator injects a resolved artifact. *activate.Activator implements it.
	Activator interface {
		Activate(d library.Descriptor, path string) error
	}

	// Pipeline drives declared libraries through resolution and activation.
	// Libraries that reached a terminal state are not processed again by the
	// same Pipeline.
	Pipeline struct {
		resolver    Resolver
		activator   Activator
		concurrency int
		logger      *slog.Logger

		mu   sync.Mutex
		done map[string]Status
	}

	// Option configures a Pipeline during construction.
	Option func(*Pipeline)
)

// WithConcurrency sets how many libraries resolve at once. Values below 1
// select DefaultConcurrency.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n < 1 {
			n = DefaultConcurrency
		}
		p.concurrency = n
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a Pipeline.
func New(resolver Resolver, activator Activator, opts ...Option) *Pipeline {
	p := &Pipeline{
		resolver:    resolver,
		activator:   activator,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
		done:        make(map[string]Status),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run resolves every entry, then activates the resolved ones in declaration
// order.
//
// Resolution failures are isolated: the other entries still resolve and
// activate, and the failures are returned joined. The first activation
// failure stops the run and is returned at once. The report is always
// non-nil.
func (p *Pipeline) Run(ctx context.Context, entries []declaration.Entry) (*Report, error) {
	report := &Report{Statuses: make([]Status, len(entries))}

	pending := make([]int, 0, len(entries))
	for i, e := range entries {
		if st, ok := p.terminal(e.Descriptor.Key()); ok {
			st.Key = e.Key
			report.Statuses[i] = st
			continue
		}
		report.Statuses[i] = Status{Key: e.Key, Library: e.Descriptor, State: Declared}
		pending = append(pending, i)
	}

	p.resolveAll(ctx, report.Statuses, pending)

	var errs []error
	for i := range report.Statuses {
		st := &report.Statuses[i]
		switch {
		case st.State == FailedFetch || st.State == FailedRewrite:
			errs = append(errs, st.Err)
		case st.State == FailedActivation:
			return report, errors.Join(append(errs, st.Err)...)
		case st.State == Activated:
			// activated by an earlier run
		default:
			if err := p.activate(st); err != nil {
				return report, errors.Join(append(errs, err)...)
			}
		}
	}
	return report, errors.Join(errs...)
}

// resolveAll resolves the pending statuses, at most p.concurrency at a time.
// Each goroutine only writes its own status.
func (p *Pipeline) resolveAll(ctx context.Context, statuses []Status, pending []int) {
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for _, i := range pending {
		g.Go(func() error {
			p.resolve(ctx, &statuses[i])
			return nil
		})
	}
	_ = g.Wait() // resolve never returns an error; failures are recorded per status
}

func (p *Pipeline) resolve(ctx context.Context, st *Status) {
	log := p.logger.With("library", st.Library.Key())
	progress := func(stage cache.Stage) {
		st.State = stateOf(stage)
		log.Debug("library state changed", "state", st.State)
	}

	res, err := p.resolver.ResolveWithProgress(ctx, st.Library, progress)
	if err != nil {
		st.State = failureOf(st.State)
		st.Err = err
		log.Error("library resolution failed", "state", st.State, "error", err)
		p.record(*st)
		return
	}
	st.Path = res.Path
	if res.Relocated {
		st.State = Rewritten
	} else {
		st.State = Fetched
	}
}

func (p *Pipeline) activate(st *Status) error {
	if err := p.activator.Activate(st.Library, st.Path); err != nil {
		st.State = FailedActivation
		st.Err = err
		p.record(*st)
		return err
	}
	st.State = Activated
	p.logger.Info("library activated", "library", st.Library.Key(), "path", st.Path)
	p.record(*st)
	return nil
}

func (p *Pipeline) terminal(key string) (Status, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.done[key]
	return st, ok
}

func (p *Pipeline) record(st Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done[st.Library.Key()] = st
}
