package control_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/jabolina/go-devs/pkg/devs/control"
	"github.com/jabolina/go-devs/pkg/devs/testutil"
	"github.com/jabolina/go-devs/pkg/devs/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestController_SequentialPingPongReachesLimit(t *testing.T) {
	a := types.NewModelID(0, 0, 1)
	b := types.NewModelID(0, 0, 2)
	ping := testutil.NewPing(a, b, "ping", 5)
	pong := testutil.NewPing(b, a, "pong", 5)

	cfg := control.Configuration{
		Mode:      control.ModeSequential,
		CoreCount: 1,
		Infinity:  types.InfiniteIntTime(),
	}
	c, err := control.NewController(cfg, []types.AtomicModel{ping, pong})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ok := testutil.WaitOrTimeout(func() {
		if err := c.Run(ctx); err != nil {
			t.Errorf("Run: %v", err)
		}
	}, 2*time.Second)
	if !ok {
		t.Fatal("controller did not finish in time")
	}

	if ping.Sends < 5 || pong.Sends < 5 {
		t.Fatalf("expected both sides to reach the send limit, got ping=%d pong=%d", ping.Sends, pong.Sends)
	}
}

func TestController_SequentialPassiveSinkReceivesMessages(t *testing.T) {
	gen := types.NewModelID(0, 0, 1)
	sinkID := types.NewModelID(0, 0, 2)
	sink := testutil.NewPassiveSink(sinkID, "sink")
	generator := testutil.NewPing(gen, sinkID, "generator", 3)

	cfg := control.Configuration{
		Mode:      control.ModeSequential,
		CoreCount: 1,
		Infinity:  types.InfiniteIntTime(),
		Predicate: func(m types.ModelRef) bool {
			return m.Name() == "generator" && generator.Sends >= 3
		},
	}
	c, err := control.NewController(cfg, []types.AtomicModel{generator, sink})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ok := testutil.WaitOrTimeout(func() {
		if err := c.Run(ctx); err != nil {
			t.Errorf("Run: %v", err)
		}
	}, 2*time.Second)
	if !ok {
		t.Fatal("controller did not finish in time")
	}

	if len(sink.Received) == 0 {
		t.Fatal("expected the sink to have received at least one message")
	}
}

func TestController_ConservativeTwoLPsConverge(t *testing.T) {
	genID := types.NewModelID(0, 0, 1)
	colID := types.NewModelID(0, 1, 2)
	generator := testutil.NewPing(genID, colID, "generator", 10)
	collector := testutil.NewPassiveSink(colID, "collector")

	cfg := control.Configuration{
		Mode:      control.ModeConservative,
		CoreCount: 2,
		Infinity:  types.InfiniteIntTime(),
		Allocator: func(m types.ModelRef) int { return int(m.ID().LP()) },
		Predicate: func(m types.ModelRef) bool {
			return m.Name() == "generator" && generator.Sends >= 10
		},
	}
	c, err := control.NewController(cfg, []types.AtomicModel{generator, collector})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ok := testutil.WaitOrTimeout(func() {
		if err := c.Run(ctx); err != nil {
			t.Errorf("Run: %v", err)
		}
	}, 3*time.Second)
	if !ok {
		t.Fatal("controller did not finish in time")
	}

	if len(collector.Received) == 0 {
		t.Fatal("expected the collector to have received messages across LPs")
	}
}

func TestController_OptimisticTwoLPsConverge(t *testing.T) {
	genID := types.NewModelID(0, 0, 1)
	colID := types.NewModelID(0, 1, 2)
	generator := testutil.NewPing(genID, colID, "generator", 10)
	collector := testutil.NewPassiveSink(colID, "collector")

	cfg := control.Configuration{
		Mode:         control.ModeOptimistic,
		CoreCount:    2,
		Infinity:     types.InfiniteIntTime(),
		Allocator:    func(m types.ModelRef) int { return int(m.ID().LP()) },
		GVTInterval:  10 * time.Millisecond,
		Predicate: func(m types.ModelRef) bool {
			return m.Name() == "generator" && generator.Sends >= 10
		},
	}
	c, err := control.NewController(cfg, []types.AtomicModel{generator, collector})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ok := testutil.WaitOrTimeout(func() {
		if err := c.Run(ctx); err != nil {
			t.Errorf("Run: %v", err)
		}
	}, 3*time.Second)
	if !ok {
		t.Fatal("controller did not finish in time")
	}

	if len(collector.Received) == 0 {
		t.Fatal("expected the collector to have received messages across LPs")
	}
}

func TestController_RejectsZeroCoreCount(t *testing.T) {
	cfg := control.Configuration{Mode: control.ModeSequential, Infinity: types.InfiniteIntTime()}
	if _, err := control.NewController(cfg, []types.AtomicModel{testutil.NewPassiveSink(types.NewModelID(0, 0, 1), "x")}); err == nil {
		t.Fatal("expected an error for zero CoreCount")
	}
}
