// Package router implements per-LP message routing: local mailbag
// delivery, cross-LP inboxes, and the shared EOT vector, per the message
// routing component of the core.
package router

import (
	"sync"

	"github.com/jabolina/go-devs/pkg/devs/types"
)

// EOTVector is the shared, per-LP Earliest Output Time vector. Each slot
// is written only by its owning LP and read by any LP; writes broadcast
// on a condition variable so conservative LPs blocked on an influencer's
// EOT wake promptly instead of spinning unboundedly.
type EOTVector struct {
	mu    sync.Mutex
	cond  *sync.Cond
	slots []types.Timestamp
	gen   uint64
}

// NewEOTVector builds a vector of n slots, each initialized to start (the
// earliest simulation time). Initializing to the earliest time rather
// than infinity is deliberate: until an LP has published its first real
// EOT, nothing may assume it is done -- influencees must block on it,
// not race ahead because an unwritten slot happened to read as infinite.
func NewEOTVector(n int, start types.Timestamp) *EOTVector {
	slots := make([]types.Timestamp, n)
	for i := range slots {
		slots[i] = start
	}
	v := &EOTVector{slots: slots}
	v.cond = sync.NewCond(&v.mu)
	return v
}

func (v *EOTVector) Get(lp int) types.Timestamp {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.slots[lp]
}

// Set stores the owning LP's new EOT, advances the generation counter, and
// wakes any LP blocked waiting on an update.
func (v *EOTVector) Set(lp int, t types.Timestamp) {
	v.mu.Lock()
	v.slots[lp] = t
	v.gen++
	v.mu.Unlock()
	v.cond.Broadcast()
}

// MinWithGen returns the minimum slot among indices (or infinity if
// indices is empty) together with the vector's current generation,
// atomically under mu. A caller that intends to block on WaitForChange
// must obtain its generation this way -- reading the slots and the
// generation in two separate critical sections would leave a window in
// which a Set call's Broadcast could be missed entirely.
func (v *EOTVector) MinWithGen(indices []int, infinity types.Timestamp) (types.Timestamp, uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	eit := infinity
	for _, idx := range indices {
		if v.slots[idx].Less(eit) {
			eit = v.slots[idx]
		}
	}
	return eit, v.gen
}

// WaitForChange blocks until the generation observed by the caller (from
// MinWithGen) is stale, i.e. at least one Set has landed since. The wait
// re-checks the generation in a loop under the lock, so a Set that lands
// between the caller's read and this call -- or a spurious wakeup -- can
// never be missed or misread as a real change.
func (v *EOTVector) WaitForChange(observedGen uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for v.gen == observedGen {
		v.cond.Wait()
	}
}

// Snapshot returns a copy of every slot.
func (v *EOTVector) Snapshot() []types.Timestamp {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]types.Timestamp, len(v.slots))
	copy(out, v.slots)
	return out
}
