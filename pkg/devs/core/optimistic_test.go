package core

import (
	"context"
	"testing"
	"time"

	"github.com/jabolina/go-devs/pkg/devs/router"
	"github.com/jabolina/go-devs/pkg/devs/scheduler"
	"github.com/jabolina/go-devs/pkg/devs/types"
)

func TestOptimisticLP_RollsBackOnStraggler(t *testing.T) {
	id := types.NewModelID(0, 0, 1)
	c := &counterModel{id: id, tick: 1}

	inboxes := []*router.Inbox{router.NewInbox(0)}
	locate := func(types.ModelID) int { return 0 }
	net := router.NewNetwork(0, locate, inboxes, nil)

	k := NewKernel(0, scheduler.NewHeap(), net, nil, nil, types.InfiniteIntTime())
	_ = k.Register(c)

	lp := NewOptimisticLP(k, net, 0, types.InfiniteIntTime(), nil, nil)
	if err := k.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}

	// Run a few steps ahead speculatively.
	for i := 0; i < 3; i++ {
		lp.Kernel.SetNow(lp.Kernel.Peek())
		result, err := lp.Kernel.Step(lp.saveBeforeTransition, nil)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		for _, m := range result.Sent {
			lp.sent.Record(m)
		}
		lp.Kernel.Advance()
	}

	if c.value != 3 {
		t.Fatalf("expected value 3 after 3 speculative steps, got %d", c.value)
	}
	if len(lp.history[id]) != 3 {
		t.Fatalf("expected 3 retained snapshots, got %d", len(lp.history[id]))
	}

	// A straggler for time 1 arrives: roll back to before the second and
	// third transitions.
	if err := lp.rollback(types.NewIntTime(1)); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	if c.value != 1 {
		t.Fatalf("expected value restored to 1 after rollback, got %d", c.value)
	}
	if !lp.Kernel.LocalTime.Equal(types.NewIntTime(1)) {
		t.Fatalf("expected LocalTime reset to 1, got %s", lp.Kernel.LocalTime)
	}
}

func TestOptimisticLP_StragglerAcrossLPsConverges(t *testing.T) {
	senderID := types.NewModelID(0, 0, 1)
	counterID := types.NewModelID(0, 1, 1)

	inboxes := []*router.Inbox{router.NewInbox(0), router.NewInbox(0)}
	locate := func(id types.ModelID) int { return int(id.LP()) }

	sender := &generatorModel{id: senderID, dst: counterID, limit: 3}
	senderNet := router.NewNetwork(0, locate, inboxes, nil)
	senderKernel := NewKernel(0, scheduler.NewHeap(), senderNet, nil, nil, types.InfiniteIntTime())
	_ = senderKernel.Register(sender)
	senderLP := NewOptimisticLP(senderKernel, senderNet, 0, types.InfiniteIntTime(), nil, nil)

	counter := &counterModel{id: counterID, tick: -1}
	counterNet := router.NewNetwork(1, locate, inboxes, nil)
	counterKernel := NewKernel(1, scheduler.NewHeap(), counterNet, nil, nil, types.InfiniteIntTime())
	_ = counterKernel.Register(counter)
	counterLP := NewOptimisticLP(counterKernel, counterNet, 1, types.InfiniteIntTime(), nil, nil)

	senderDone := func(types.ModelRef) bool {
		return sender.count >= 3
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	senderLP.Predicate = senderDone
	go func() { _ = senderLP.Run(ctx) }()

	counterCtx, counterCancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer counterCancel()
	if err := counterLP.Run(counterCtx); err != nil {
		t.Fatalf("counter lp run: %v", err)
	}

	if counter.value < 0 {
		t.Fatalf("counter should never go negative, got %d", counter.value)
	}
}
