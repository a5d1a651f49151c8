// Package control wires the pieces in types/scheduler/router/core/
// definition together: it resolves a model set and a Configuration into
// located LPs, drives them to completion, and aggregates the first fatal
// error, the way the teacher's Unity wires a BaseConfiguration and a
// ClusterConfiguration into a running group.
package control

import (
	"time"

	"github.com/jabolina/go-devs/pkg/devs/core"
	"github.com/jabolina/go-devs/pkg/devs/definition"
	"github.com/jabolina/go-devs/pkg/devs/types"
)

// Mode selects which LP discipline the Controller runs every model
// under.
type Mode int

const (
	ModeSequential Mode = iota
	ModeConservative
	ModeOptimistic
)

func (m Mode) String() string {
	switch m {
	case ModeSequential:
		return "sequential"
	case ModeConservative:
		return "conservative"
	case ModeOptimistic:
		return "optimistic"
	default:
		return "unknown"
	}
}

// Configuration is the Controller's plain-struct configuration, mirroring
// the teacher's BaseConfiguration/ClusterConfiguration split: one value
// object a caller fills in (or accepts defaults for) and hands to
// NewController.
type Configuration struct {
	Mode Mode

	// CoreCount is the number of LPs to allocate models across. Zero is
	// a Configuration error.
	CoreCount int

	// EndTime is the wall-clock simulation time every LP stops at, OR'd
	// with Predicate. types.InfiniteIntTime()/InfiniteFloatTime() means
	// "no wall-clock bound".
	EndTime types.Timestamp

	// Infinity is the distinguished infinite Timestamp for whichever
	// concrete Time representation this run uses; every component that
	// needs to saturate (EOT slots, scheduler removal) is built from it.
	Infinity types.Timestamp

	// Predicate is OR'd with EndTime; nil means "never".
	Predicate core.TerminationPredicate

	// Allocator maps a model to its owning LP index in [0, CoreCount).
	// Defaults to definition.RoundRobinAllocator(CoreCount).
	Allocator func(types.ModelRef) int

	// LPGraph supplies each LP's influencer set in conservative mode.
	// Defaults to definition.CompleteLPGraph.
	LPGraph LPGraph

	// Listener receives output/state-change events. Defaults to
	// types.NoopListener{}.
	Listener types.EventListener

	// Logger receives ambient operational logging. Defaults to
	// definition.NewDefaultLogger().
	Logger types.Logger

	// InboxCapacity bounds each cross-LP inbox; 0 means unbounded.
	InboxCapacity int

	// GVTInterval is how often the optimistic mode's GVTCoordinator
	// recomputes and commits GVT. Defaults to 50ms.
	GVTInterval time.Duration

	// RNGSeed is carried in the configuration but not read by the
	// Controller: every definition.Backoff jitter PRNG is seeded from its
	// LP index alone, and models that use a PRNG take their seed from
	// whoever constructs them.
	RNGSeed uint64
}

// LPGraph supplies the (possibly model-driven) influencer sets used by
// conservative mode, translated into LP indices.
type LPGraph interface {
	Influencers(lp int) []int
}

// Validate fills in defaults and rejects configurations invalid per the
// error taxonomy's Configuration kind.
func (c *Configuration) Validate() error {
	if c.CoreCount <= 0 {
		return types.NewKernelError(types.ErrKindConfiguration, -1, types.ErrInvalidConfiguration)
	}
	if c.Infinity.At == nil {
		return types.NewKernelError(types.ErrKindConfiguration, -1, types.ErrInvalidConfiguration)
	}
	if c.EndTime.At == nil {
		c.EndTime = c.Infinity
	}
	if c.Allocator == nil {
		c.Allocator = definition.RoundRobinAllocator(c.CoreCount)
	}
	if c.LPGraph == nil {
		c.LPGraph = definition.CompleteLPGraph{N: c.CoreCount}
	}
	if c.Listener == nil {
		c.Listener = types.NoopListener{}
	}
	if c.Logger == nil {
		c.Logger = definition.NewDefaultLogger()
	}
	if c.GVTInterval <= 0 {
		c.GVTInterval = 50 * time.Millisecond
	}
	return nil
}
