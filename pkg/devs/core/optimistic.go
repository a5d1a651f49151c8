package core

import (
	"context"
	"sync"
	"time"

	"github.com/jabolina/go-devs/pkg/devs/definition"
	"github.com/jabolina/go-devs/pkg/devs/router"
	"github.com/jabolina/go-devs/pkg/devs/types"
)

// snapshot is one retained (time, state) pair for a single model, used to
// restore state during a rollback.
type snapshot struct {
	at    types.Timestamp
	state interface{}
}

// OptimisticLP runs a kernel under the time-warp discipline: it never
// blocks on another LP, instead speculatively running ahead and rolling
// back (restoring saved state, emitting anti-messages for everything sent
// after the rollback point) whenever a straggler message arrives with a
// SendTime behind its current LocalTime.
type OptimisticLP struct {
	Kernel    *Kernel
	Net       *router.Network
	Index     int
	EndTime   types.Timestamp
	Predicate TerminationPredicate
	Logger    types.Logger

	sent     *router.SentLog
	received *router.ReceivedLog
	history  map[types.ModelID][]snapshot
	backoff  *definition.Backoff
	pending  []types.Message

	// committed is the latest GVT fossil collection has cleared. Only
	// Run's own goroutine ever touches history/sent/received, so
	// committed needs no synchronization of its own.
	committed types.Timestamp

	// mu guards localTime (published by Run after every advance) and
	// pendingGVT (published by the GVT coordinator's goroutine): these
	// are the only two fields read or written from outside Run's own
	// goroutine. history/sent/received remain exclusively owned by Run
	// and are never touched by Commit or LocalTime.
	mu            sync.Mutex
	localTime     types.Timestamp
	pendingGVT    types.Timestamp
	hasPendingGVT bool
}

func NewOptimisticLP(k *Kernel, net *router.Network, index int, endTime types.Timestamp, predicate TerminationPredicate, logger types.Logger) *OptimisticLP {
	return &OptimisticLP{
		Kernel:    k,
		Net:       net,
		Index:     index,
		EndTime:   endTime,
		Predicate: predicate,
		Logger:    logger,
		sent:      router.NewSentLog(),
		received:  router.NewReceivedLog(),
		history:   make(map[types.ModelID][]snapshot),
		backoff:   definition.NewBackoff(time.Millisecond, 20*time.Millisecond, uint64(index)+1),
	}
}

// LocalTime is called from the GVT coordinator's own goroutine, so it
// reads the mu-guarded published copy rather than Kernel.LocalTime
// directly -- Kernel.LocalTime is mutated only by Run's goroutine.
func (lp *OptimisticLP) LocalTime() types.Timestamp {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	return lp.localTime
}

func (lp *OptimisticLP) publishLocalTime() {
	lp.mu.Lock()
	lp.localTime = lp.Kernel.LocalTime
	lp.mu.Unlock()
}

// Commit is called from the GVT coordinator's own goroutine. It only
// publishes gvt for Run to pick up at its next loop boundary -- it never
// touches history/sent/received itself, since those are owned
// exclusively by Run's goroutine.
func (lp *OptimisticLP) Commit(gvt types.Timestamp) {
	lp.mu.Lock()
	lp.pendingGVT = gvt
	lp.hasPendingGVT = true
	lp.mu.Unlock()
}

func (lp *OptimisticLP) takePendingGVT() (types.Timestamp, bool) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	if !lp.hasPendingGVT {
		return types.Timestamp{}, false
	}
	lp.hasPendingGVT = false
	return lp.pendingGVT, true
}

func (lp *OptimisticLP) Run(ctx context.Context) error {
	if err := lp.Kernel.Init(); err != nil {
		return err
	}
	lp.committed = lp.Kernel.zeroTimestamp()
	lp.publishLocalTime()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if lp.terminated() {
			return nil
		}

		if gvt, ok := lp.takePendingGVT(); ok {
			lp.fossilCollect(gvt)
		}

		lp.pending = append(lp.pending, lp.Net.Drain()...)
		inbound := annihilateWithinBatch(lp.pending)
		lp.pending = nil

		if straggler, ok := lp.stragglerTime(inbound); ok {
			if err := lp.rollback(straggler); err != nil {
				return err
			}
		}

		var toApply []types.Message
		for _, m := range inbound {
			if m.Anti {
				lp.received.Annihilate(m)
				continue
			}
			toApply = append(toApply, m)
		}

		now := lp.nextEventTime(toApply)
		if now.IsInfinity() && len(toApply) == 0 {
			d := lp.backoff.Next()
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(d):
			}
			continue
		}
		lp.backoff.Reset()

		var due, notDue []types.Message
		for _, m := range toApply {
			if m.SendTime.LessOrEqual(now) {
				due = append(due, m)
			} else {
				notDue = append(notDue, m)
			}
		}
		lp.pending = append(lp.pending, notDue...)

		lp.Kernel.SetNow(now)
		result, err := lp.Kernel.Step(lp.saveBeforeTransition, due)
		if err != nil {
			return err
		}
		for _, m := range due {
			lp.received.Record(m)
		}
		for _, m := range result.Sent {
			lp.sent.Record(m)
		}
		lp.Kernel.Advance()
		lp.publishLocalTime()

		if lp.Logger != nil {
			lp.Logger.Debugf("optimistic lp %d advanced to %s after %d transitions", lp.Index, now, len(result.Touched))
		}
	}
}

// saveBeforeTransition is threaded into Kernel.Step as the
// beforeTransition hook: it captures a model's state immediately before
// its transition runs, so a later rollback to any earlier time can
// restore it.
func (lp *OptimisticLP) saveBeforeTransition(m types.AtomicModel) {
	s, ok := m.(types.Snapshottable)
	if !ok {
		return
	}
	lp.history[m.ID()] = append(lp.history[m.ID()], snapshot{at: lp.Kernel.LocalTime, state: s.SaveState()})
}

func annihilateWithinBatch(msgs []types.Message) []types.Message {
	counts := make(map[types.MessageIdentity]int)
	for _, m := range msgs {
		if m.Anti {
			counts[m.Identity()]--
		} else {
			counts[m.Identity()]++
		}
	}
	var out []types.Message
	seen := make(map[types.MessageIdentity]bool)
	for _, m := range msgs {
		id := m.Identity()
		if counts[id] == 0 {
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		if counts[id] > 0 {
			out = append(out, types.Message{Src: m.Src, Dst: m.Dst, DstPort: m.DstPort, Payload: m.Payload, SendTime: m.SendTime})
		} else {
			out = append(out, types.Message{Src: m.Src, Dst: m.Dst, DstPort: m.DstPort, SendTime: m.SendTime, Anti: true})
		}
	}
	return out
}

func (lp *OptimisticLP) nextEventTime(inbound []types.Message) types.Timestamp {
	now := lp.Kernel.Peek()
	for _, m := range inbound {
		if m.SendTime.Less(now) {
			now = m.SendTime
		}
	}
	return now
}

func (lp *OptimisticLP) stragglerTime(inbound []types.Message) (types.Timestamp, bool) {
	found := false
	earliest := lp.Kernel.LocalTime
	for _, m := range inbound {
		if m.SendTime.Less(lp.Kernel.LocalTime) {
			if !found || m.SendTime.Less(earliest) {
				earliest = m.SendTime
				found = true
			}
		}
	}
	return earliest, found
}

// rollback restores every model's state to the latest snapshot at or
// before tr, reschedules each from its restored state, emits
// anti-messages for everything sent after tr, and resets LocalTime to
// tr -- the time-warp recovery procedure.
func (lp *OptimisticLP) rollback(tr types.Timestamp) error {
	for id, m := range lp.Kernel.Models {
		s, ok := m.(types.Snapshottable)
		if !ok {
			continue
		}
		entries := lp.history[id]
		if len(entries) == 0 {
			// The model has not transitioned since Init, so its current
			// state is already the one valid at tr.
			continue
		}
		idx := -1
		for i := len(entries) - 1; i >= 0; i-- {
			if entries[i].at.LessOrEqual(tr) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return types.NewKernelError(types.ErrKindRollback, lp.Index, types.ErrRollbackExhausted)
		}
		s.RestoreState(entries[idx].state)
		lp.history[id] = entries[:idx+1]
		ta := m.TimeAdvance()
		next := entries[idx].at.Add(ta)
		if ta.IsInfinity() {
			next = lp.Kernel.Infinity
		}
		lp.Kernel.Sched.Reschedule(id, m, next)
	}

	for _, m := range lp.sent.After(tr) {
		anti := m
		anti.Anti = true
		_ = lp.Net.Send(anti, func(types.Message) {
			lp.received.Annihilate(anti)
		})
	}
	lp.sent.Truncate(tr)
	lp.pending = append(lp.pending, lp.received.Forget(tr)...)
	lp.Kernel.SetNow(tr)
	lp.publishLocalTime()

	if lp.Logger != nil {
		lp.Logger.Warnf("optimistic lp %d rolled back to %s", lp.Index, tr)
	}
	return nil
}

// fossilCollect runs on Run's own goroutine, picking up a GVT the
// coordinator published via Commit: log entries older than gvt are
// dropped, and so is every snapshot older than gvt except each model's
// most recent one, since no future rollback can target a time GVT has
// already passed.
func (lp *OptimisticLP) fossilCollect(gvt types.Timestamp) {
	for id, entries := range lp.history {
		kept := entries[:0]
		for i, e := range entries {
			if gvt.LessOrEqual(e.at) || i == len(entries)-1 {
				kept = append(kept, e)
			}
		}
		lp.history[id] = kept
	}
	lp.sent.ForgetBefore(gvt)
	lp.received.ForgetBefore(gvt)
	lp.committed = gvt
}

func (lp *OptimisticLP) terminated() bool {
	if !lp.EndTime.IsInfinity() && lp.EndTime.LessOrEqual(lp.Kernel.LocalTime) {
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

var (
	_ LP        = (*OptimisticLP)(nil)
	_ Committer = (*OptimisticLP)(nil)
)
