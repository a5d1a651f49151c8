package control

import "github.com/jabolina/go-devs/pkg/devs/types"

// LocationTable resolves a model id to the LP index that owns it. It is
// built once, from the Allocator's decisions at wiring time, and never
// mutated afterward -- dynamic structure (models migrating between LPs)
// is out of scope, matching spec.md's non-goals.
type LocationTable struct {
	owner map[types.ModelID]int
}

func NewLocationTable() *LocationTable {
	return &LocationTable{owner: make(map[types.ModelID]int)}
}

// Assign records that id is owned by lp. It is a programming error to
// assign the same id twice; NewController is the only caller and it
// assigns each registered model once.
func (t *LocationTable) Assign(id types.ModelID, lp int) {
	t.owner[id] = lp
}

// Locate returns the LP index owning id, or -1 if unknown -- router.Send
// surfaces that as ErrUnknownDestination.
func (t *LocationTable) Locate(id types.ModelID) int {
	lp, ok := t.owner[id]
	if !ok {
		return -1
	}
	return lp
}
