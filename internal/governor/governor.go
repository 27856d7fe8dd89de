// Package governor serializes access to the shared inference backends.
// The layout detector and the translation service each run on accelerator
// or remote resources that tolerate only one in-flight call; the governor
// makes that exclusivity explicit and injectable, so contention is
// testable instead of hidden behind global locks.
package governor

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Backend names a governed shared resource.
type Backend int

const (
	BackendDetector Backend = iota
	BackendTranslator
	backendCount
)

func (b Backend) String() string {
	switch b {
	case BackendDetector:
		return "detector"
	case BackendTranslator:
		return "translator"
	}
	return "unknown"
}

// Governor admits one in-flight call per backend. The zero value is not
// usable; construct with New.
type Governor struct {
	sems [backendCount]*semaphore.Weighted
}

// New creates a governor with one slot per backend.
func New() *Governor {
	g := &Governor{}
	for i := range g.sems {
		g.sems[i] = semaphore.NewWeighted(1)
	}
	return g
}

// Acquire blocks until the backend slot is free or ctx is done.
func (g *Governor) Acquire(ctx context.Context, b Backend) error {
	return g.sems[b].Acquire(ctx, 1)
}

// Release frees the backend slot. Must pair with a successful Acquire.
func (g *Governor) Release(b Backend) {
	g.sems[b].Release(1)
}

// Do runs fn while holding the backend slot, bounded by timeout when
// timeout is positive. The slot is held for the full duration of fn.
func (g *Governor) Do(ctx context.Context, b Backend, timeout time.Duration, fn func(ctx context.Context) error) error {
	if err := g.Acquire(ctx, b); err != nil {
		return err
	}
	defer g.Release(b)

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return fn(ctx)
}

// Pool is a bounded worker pool for CPU-bound page work, keeping the
// request-serving layer free of blocking calls.
type Pool struct {
	group *errgroup.Group
	ctx   context.Context
}

// NewPool creates a pool running at most size tasks concurrently.
func NewPool(ctx context.Context, size int) *Pool {
	group, ctx := errgroup.WithContext(ctx)
	if size > 0 {
		group.SetLimit(size)
	}
	return &Pool{group: group, ctx: ctx}
}

// Context returns the pool's context, canceled when any task fails.
func (p *Pool) Context() context.Context { return p.ctx }

// Go submits a task, blocking when the pool is at its limit.
func (p *Pool) Go(fn func() error) {
	p.group.Go(fn)
}

// Wait blocks until all submitted tasks finish and returns the first
// error.
func (p *Pool) Wait() error {
	return p.group.Wait()
}
