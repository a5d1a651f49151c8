package core

import (
	"context"
	"testing"
	"time"

	"github.com/jabolina/go-devs/pkg/devs/router"
	"github.com/jabolina/go-devs/pkg/devs/scheduler"
	"github.com/jabolina/go-devs/pkg/devs/types"
)

// generatorModel emits one message per tick up to a limit, with a fixed
// lookahead equal to its own tick period -- the minimum needed for
// conservative mode to ever let an influencee run ahead.
type generatorModel struct {
	id    types.ModelID
	dst   types.ModelID
	count int
	limit int
}

func (g *generatorModel) ID() types.ModelID { return g.id }
func (g *generatorModel) Name() string      { return "generator" }
func (g *generatorModel) Priority() int     { return 0 }
func (g *generatorModel) Lookahead() types.Timestamp {
	return types.NewIntTime(1)
}
func (g *generatorModel) TimeAdvance() types.Timestamp {
	if g.count >= g.limit {
		return types.InfiniteIntTime()
	}
	return types.NewIntTime(1)
}
func (g *generatorModel) Output() []types.Message {
	return []types.Message{{Dst: g.dst, Payload: g.count}}
}
func (g *generatorModel) InternalTransition()                       { g.count++ }
func (g *generatorModel) ExternalTransition(types.Timestamp, []types.Message) {}
func (g *generatorModel) ConfluentTransition(bag []types.Message)   { g.InternalTransition() }

var _ types.AtomicModel = (*generatorModel)(nil)

// collectorModel is a passive sink with infinite lookahead: it never
// produces output, so it never constrains anyone's EIT.
type collectorModel struct {
	id       types.ModelID
	received []types.Message
}

func (c *collectorModel) ID() types.ModelID          { return c.id }
func (c *collectorModel) Name() string               { return "collector" }
func (c *collectorModel) Priority() int               { return 0 }
func (c *collectorModel) Lookahead() types.Timestamp  { return types.InfiniteIntTime() }
func (c *collectorModel) TimeAdvance() types.Timestamp { return types.InfiniteIntTime() }
func (c *collectorModel) Output() []types.Message     { return nil }
func (c *collectorModel) InternalTransition()         {}
func (c *collectorModel) ConfluentTransition(bag []types.Message) {
	c.ExternalTransition(types.NewIntTime(0), bag)
}
func (c *collectorModel) ExternalTransition(_ types.Timestamp, bag []types.Message) {
	c.received = append(c.received, bag...)
}

var _ types.AtomicModel = (*collectorModel)(nil)

func TestConservativeLP_GeneratorFeedsCollectorAcrossLPs(t *testing.T) {
	genID := types.NewModelID(0, 0, 1)
	colID := types.NewModelID(0, 1, 1)

	inboxes := []*router.Inbox{router.NewInbox(0), router.NewInbox(0)}
	locate := func(id types.ModelID) int { return int(id.LP()) }
	eot := router.NewEOTVector(2, types.NewIntTime(0))

	gen := &generatorModel{id: genID, dst: colID, limit: 5}
	genNet := router.NewNetwork(0, locate, inboxes, eot)
	genKernel := NewKernel(0, scheduler.NewHeap(), genNet, nil, nil, types.InfiniteIntTime())
	_ = genKernel.Register(gen)
	genLP := NewConservativeLP(genKernel, genNet, eot, 0, nil, types.InfiniteIntTime(), nil, nil)

	col := &collectorModel{id: colID}
	colNet := router.NewNetwork(1, locate, inboxes, eot)
	colKernel := NewKernel(1, scheduler.NewHeap(), colNet, nil, nil, types.InfiniteIntTime())
	_ = colKernel.Register(col)
	colLP := NewConservativeLP(colKernel, colNet, eot, 1, []int{0}, types.InfiniteIntTime(), nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	errs := make(chan error, 2)
	go func() { errs <- genLP.Run(ctx) }()
	go func() { errs <- colLP.Run(ctx) }()

	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("lp run failed: %v", err)
		}
	}

	if len(col.received) != 5 {
		t.Fatalf("expected collector to receive 5 messages, got %d", len(col.received))
	}
}
