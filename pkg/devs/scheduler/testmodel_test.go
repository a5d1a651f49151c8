package scheduler

import "github.com/jabolina/go-devs/pkg/devs/types"

// fakeModel is the minimal types.ModelRef used across scheduler tests.
type fakeModel struct {
	id       types.ModelID
	name     string
	priority int
}

func (f fakeModel) ID() types.ModelID { return f.id }
func (f fakeModel) Name() string      { return f.name }
func (f fakeModel) Priority() int     { return f.priority }

func newFakeModel(n int) fakeModel {
	return fakeModel{id: types.NewModelID(0, 0, uint64(n)), name: "m"}
}

func entryAt(n int, tick int64) types.ModelEntry {
	return types.ModelEntry{Model: newFakeModel(n), Scheduled: types.NewIntTime(tick)}
}
