package core

import (
	"context"

	"github.com/jabolina/go-devs/pkg/devs/types"
)

// LP is the contract control.Controller drives: one goroutine per LP,
// running until ctx is cancelled, the end time is reached, or the
// termination predicate fires on any resident model.
type LP interface {
	// Run executes the LP's event loop until completion or ctx
	// cancellation. It returns the first fatal error encountered, wrapped
	// in a *types.KernelError.
	Run(ctx context.Context) error

	// LocalTime reports the LP's current simulation time. Only
	// OptimisticLP's implementation is safe to call from another
	// goroutine (the GVT coordinator does so); SequentialLP and
	// ConservativeLP read Kernel.LocalTime without synchronization.
	LocalTime() types.Timestamp
}

// TerminationPredicate reports whether the simulation should stop given
// one resident model's current state. The LP ORs this with the
// configured end-time check: either one ends the run.
type TerminationPredicate func(types.ModelRef) bool

// SequentialLP runs a single LP with no cross-LP synchronization
// discipline: every model it owns lives in the same scheduler, and it
// never blocks waiting on another LP. Used for single-LP runs or as
// the degenerate case other disciplines reduce to when lookahead() is
// irrelevant.
type SequentialLP struct {
	Kernel    *Kernel
	EndTime   types.Timestamp
	Predicate TerminationPredicate
	Logger    types.Logger
}

// NewSequentialLP wires a kernel into a driver loop. predicate may be
// nil, meaning only EndTime can stop the run.
func NewSequentialLP(k *Kernel, endTime types.Timestamp, predicate TerminationPredicate, logger types.Logger) *SequentialLP {
	return &SequentialLP{Kernel: k, EndTime: endTime, Predicate: predicate, Logger: logger}
}

func (lp *SequentialLP) LocalTime() types.Timestamp {
	return lp.Kernel.LocalTime
}

// Run drives the kernel step by step until termination. Steps 1-4 are
// Kernel.Step; step 5 is Kernel.Advance; step 6 is checked here since it
// needs the LP's own end time and predicate.
func (lp *SequentialLP) Run(ctx context.Context) error {
	if err := lp.Kernel.Init(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if lp.terminated() {
			return nil
		}

		result, err := lp.Kernel.Step(nil, nil)
		if err != nil {
			return err
		}
		lp.Kernel.Advance()

		if lp.Logger != nil {
			lp.Logger.Debugf("lp advanced to %s after %d transitions", lp.Kernel.LocalTime, len(result.Touched))
		}
	}
}

func (lp *SequentialLP) terminated() bool {
	if !lp.EndTime.IsInfinity() && lp.EndTime.LessOrEqual(lp.Kernel.LocalTime) {
		return true
	}
	if lp.Kernel.LocalTime.IsInfinity() {
		return true
	}
	if lp.Predicate == nil {
		return false
	}
	for _, m := range lp.Kernel.Models {
		if lp.Predicate(m) {
			return true
		}
	}
	return false
}

var _ LP = (*SequentialLP)(nil)
