package definition

import "github.com/jabolina/go-devs/pkg/devs/types"

// RoundRobinAllocator returns an allocator function that assigns
// successive models to successive LPs, wrapping around coreCount.
func RoundRobinAllocator(coreCount int) func(types.ModelRef) int {
	next := 0
	return func(types.ModelRef) int {
		lp := next % coreCount
		next++
		return lp
	}
}

// NoTerminationPredicate never requests early termination; only the
// configured end time stops the run.
func NoTerminationPredicate(types.ModelRef) bool {
	return false
}

// CompleteLPGraph is the default LP graph: every LP may influence and be
// influenced by every other LP (including itself), the safe default when
// the caller doesn't know the true dependency structure.
type CompleteLPGraph struct {
	N int
}

func (g CompleteLPGraph) Influencers(lp int) []int {
	return g.all()
}

func (g CompleteLPGraph) Influencees(lp int) []int {
	return g.all()
}

func (g CompleteLPGraph) all() []int {
	out := make([]int, g.N)
	for i := range out {
		out[i] = i
	}
	return out
}
