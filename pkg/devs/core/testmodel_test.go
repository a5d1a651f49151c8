package core

import "github.com/jabolina/go-devs/pkg/devs/types"

// pingModel alternates between sending a message and waiting for one,
// counting how many round trips it has completed.
type pingModel struct {
	id       types.ModelID
	name     string
	peer     types.ModelID
	sends    int
	received int
	maxSends int
	waiting  bool
}

func newPingModel(id, peer types.ModelID, name string, maxSends int) *pingModel {
	return &pingModel{id: id, name: name, peer: peer, maxSends: maxSends}
}

func (m *pingModel) ID() types.ModelID  { return m.id }
func (m *pingModel) Name() string       { return m.name }
func (m *pingModel) Priority() int      { return 0 }
func (m *pingModel) Lookahead() types.Timestamp {
	return types.IntEpsilon()
}

func (m *pingModel) TimeAdvance() types.Timestamp {
	if m.waiting || m.sends >= m.maxSends {
		return types.InfiniteIntTime()
	}
	return types.NewIntTime(1)
}

func (m *pingModel) Output() []types.Message {
	return []types.Message{{Dst: m.peer, Payload: m.sends}}
}

func (m *pingModel) InternalTransition() {
	m.sends++
	m.waiting = true
}

func (m *pingModel) ExternalTransition(_ types.Timestamp, bag []types.Message) {
	m.received += len(bag)
	m.waiting = false
}

func (m *pingModel) ConfluentTransition(bag []types.Message) {
	m.InternalTransition()
	m.ExternalTransition(types.NewIntTime(0), bag)
}

var _ types.AtomicModel = (*pingModel)(nil)

// passiveSink never produces output and never advances on its own; it
// only reacts to external messages.
type passiveSink struct {
	id       types.ModelID
	received []types.Message
}

func (s *passiveSink) ID() types.ModelID                    { return s.id }
func (s *passiveSink) Name() string                         { return "sink" }
func (s *passiveSink) Priority() int                        { return 0 }
func (s *passiveSink) Lookahead() types.Timestamp           { return types.InfiniteIntTime() }
func (s *passiveSink) TimeAdvance() types.Timestamp         { return types.InfiniteIntTime() }
func (s *passiveSink) Output() []types.Message              { return nil }
func (s *passiveSink) InternalTransition()                  {}
func (s *passiveSink) ConfluentTransition(bag []types.Message) { s.ExternalTransition(types.NewIntTime(0), bag) }
func (s *passiveSink) ExternalTransition(_ types.Timestamp, bag []types.Message) {
	s.received = append(s.received, bag...)
}

var _ types.AtomicModel = (*passiveSink)(nil)

// counterModel supports Snapshottable for the optimistic-rollback tests.
type counterModel struct {
	id    types.ModelID
	value int
	tick  int64
}

func (c *counterModel) ID() types.ModelID            { return c.id }
func (c *counterModel) Name() string                 { return "counter" }
func (c *counterModel) Priority() int                 { return 0 }
func (c *counterModel) Lookahead() types.Timestamp    { return types.IntEpsilon() }
func (c *counterModel) TimeAdvance() types.Timestamp {
	if c.tick < 0 {
		return types.InfiniteIntTime()
	}
	return types.NewIntTime(c.tick)
}
func (c *counterModel) Output() []types.Message       { return nil }
func (c *counterModel) InternalTransition()           { c.value++ }
func (c *counterModel) ConfluentTransition(bag []types.Message) {
	c.InternalTransition()
	c.ExternalTransition(types.NewIntTime(0), bag)
}
func (c *counterModel) ExternalTransition(_ types.Timestamp, bag []types.Message) {
	c.value += len(bag)
}

func (c *counterModel) SaveState() interface{} {
	return c.value
}

func (c *counterModel) RestoreState(s interface{}) {
	c.value = s.(int)
}

var (
	_ types.AtomicModel   = (*counterModel)(nil)
	_ types.Snapshottable = (*counterModel)(nil)
)
