package core

import (
	"context"
	"time"

	"github.com/jabolina/go-devs/pkg/devs/router"
	"github.com/jabolina/go-devs/pkg/devs/types"
)

// Committer is the subset of OptimisticLP the coordinator drives: report
// a local lower bound, then receive the computed GVT back for fossil
// collection.
type Committer interface {
	LocalTime() types.Timestamp
	Commit(gvt types.Timestamp)
}

// GVTCoordinator periodically computes the Global Virtual Time -- the
// lower bound below which no future rollback can reach -- across every
// optimistic LP, and tells each LP to discard history and log entries
// older than it. It takes the simplified form of Mattern's two-pass
// algorithm: since every in-transit message in this core is always
// sitting in exactly one LP's Inbox (there is no unacknowledged
// network-level transit state to account for separately), GVT reduces to
// the minimum of every LP's local time and every inbox's oldest queued
// message, without a second control-message pass.
type GVTCoordinator struct {
	lps      []Committer
	inboxes  []*router.Inbox
	infinity types.Timestamp
	interval time.Duration
}

func NewGVTCoordinator(lps []Committer, inboxes []*router.Inbox, infinity types.Timestamp, interval time.Duration) *GVTCoordinator {
	return &GVTCoordinator{lps: lps, inboxes: inboxes, infinity: infinity, interval: interval}
}

// Compute returns the current GVT without committing it.
func (g *GVTCoordinator) Compute() types.Timestamp {
	gvt := g.infinity
	for _, lp := range g.lps {
		gvt = types.MinTimestamp(gvt, lp.LocalTime())
	}
	for _, ib := range g.inboxes {
		if t, ok := ib.PeekMinSendTime(); ok {
			gvt = types.MinTimestamp(gvt, t)
		}
	}
	return gvt
}

// Run recomputes and commits GVT every interval until ctx is cancelled.
func (g *GVTCoordinator) Run(ctx context.Context) error {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			gvt := g.Compute()
			for _, lp := range g.lps {
				lp.Commit(gvt)
			}
		}
	}
}
