// Package core implements the sequential kernel, the conservative and
// optimistic LP disciplines, and the GVT coordinator: the per-LP engine
// the control package wires up and drives.
package core

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Invoker owns and synchronizes the goroutines that run LPs. It plays the
// same role as this corpus's Invoker/Spawn abstraction (a pool of owned
// workers, no hidden global thread pool), generalized to propagate the
// first worker failure instead of fire-and-forget, since §7 requires LP
// failure to reach the controller.
type Invoker interface {
	// Spawn starts f in its own goroutine. The first non-nil error any
	// spawned f returns is the one Wait returns.
	Spawn(f func() error)

	// Wait blocks until every spawned f has returned, then returns the
	// first error encountered (if any).
	Wait() error
}

// WorkerPool is the production Invoker, backed by golang.org/x/sync/
// errgroup -- a dependency this corpus already relies on for the same
// concern (aistore, go-utilpkg, and optimism all require
// golang.org/x/sync) -- instead of a hand-rolled sync.WaitGroup pool.
type WorkerPool struct {
	group *errgroup.Group
}

// NewWorkerPool builds a pool bound to ctx: when any spawned function
// returns an error, ctx is cancelled for the remaining workers to observe
// cooperatively.
func NewWorkerPool(ctx context.Context) (*WorkerPool, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	return &WorkerPool{group: g}, gctx
}

func (w *WorkerPool) Spawn(f func() error) {
	w.group.Go(f)
}

func (w *WorkerPool) Wait() error {
	return w.group.Wait()
}

var _ Invoker = (*WorkerPool)(nil)
