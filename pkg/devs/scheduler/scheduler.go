// Package scheduler holds the priority-queue-over-model-entries contract
// and its two realizations: an indexed binary heap (preferred, O(log n)
// update) and a sorted doubly-linked list (O(n) insert, for small N).
package scheduler

import "github.com/jabolina/go-devs/pkg/devs/types"

// Scheduler holds one entry per non-passive model, keyed by scheduled
// time. Ties are broken by model priority, then by model id, so the same
// sequence of pushes always yields the same popImminents order.
type Scheduler interface {
	// Push adds an entry. The caller must ensure the model has no
	// existing entry; use Reschedule to move an already-scheduled model.
	Push(entry types.ModelEntry)

	// Remove deletes the entry for id, if any. Reports whether one was
	// found.
	Remove(id types.ModelID) bool

	// Reschedule moves (or inserts) the model's entry to newTime.
	// Rescheduling to infinity removes the model from the scheduler.
	Reschedule(id types.ModelID, model types.ModelRef, newTime types.Timestamp) bool

	// Top returns the lowest-scheduled entry without removing it.
	Top() (types.ModelEntry, bool)

	// PopImminents removes and returns every entry whose time is <= until,
	// in unspecified order; callers must not assume a tie order.
	PopImminents(until types.Timestamp) []types.ModelEntry

	Empty() bool
	Size() int
	Contains(id types.ModelID) bool
	Clear()
}

// less implements the deterministic tie-break: scheduled time first (with
// the Timestamp's own epsilon/causal handling), then model priority, then
// model id.
func less(a, b types.ModelEntry) bool {
	if !a.Scheduled.Equal(b.Scheduled) {
		return a.Scheduled.Less(b.Scheduled)
	}
	if a.Model.Priority() != b.Model.Priority() {
		return a.Model.Priority() < b.Model.Priority()
	}
	return a.Model.ID() < b.Model.ID()
}
