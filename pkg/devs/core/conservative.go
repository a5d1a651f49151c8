package core

import (
	"context"

	"github.com/jabolina/go-devs/pkg/devs/router"
	"github.com/jabolina/go-devs/pkg/devs/types"
)

// ConservativeLP runs a kernel under the Chandy-Misra-Bryant discipline:
// it never processes an event past the earliest time an influencer could
// still deliver a message (EIT), and it publishes its own earliest
// output time (EOT = localTime + lookahead) so influencees can compute
// theirs -- grounded on conservativecore.cpp's updateEOT/updateEIT/
// syncTime sequence.
type ConservativeLP struct {
	Kernel      *Kernel
	Net         *router.Network
	EOT         *router.EOTVector
	Index       int
	Influencers []int
	EndTime     types.Timestamp
	Predicate   TerminationPredicate
	Logger      types.Logger

	minLookahead types.Timestamp
	pending      []types.Message
}

// NewConservativeLP wires a kernel into the conservative discipline.
// influencers lists the LP indices whose EOT bounds this LP's EIT; an
// empty list means this LP never blocks on another (EIT is always inf).
func NewConservativeLP(k *Kernel, net *router.Network, eot *router.EOTVector, index int, influencers []int, endTime types.Timestamp, predicate TerminationPredicate, logger types.Logger) *ConservativeLP {
	return &ConservativeLP{
		Kernel:      k,
		Net:         net,
		EOT:         eot,
		Index:       index,
		Influencers: influencers,
		EndTime:     endTime,
		Predicate:   predicate,
		Logger:      logger,
	}
}

func (lp *ConservativeLP) LocalTime() types.Timestamp {
	return lp.Kernel.LocalTime
}

// Run validates every resident model carries a positive lookahead (§4.5
// forbids zero lookahead outside sequential mode), then drives the
// wait/step loop until termination.
func (lp *ConservativeLP) Run(ctx context.Context) error {
	if err := lp.Kernel.Init(); err != nil {
		return err
	}
	zero := lp.Kernel.zeroTimestamp()
	for _, m := range lp.Kernel.Models {
		la := m.Lookahead()
		if !la.IsInfinity() && la.LessOrEqual(zero) {
			return types.NewKernelError(types.ErrKindConfiguration, lp.Index, types.ErrZeroLookaheadParallel)
		}
	}
	lp.minLookahead = lp.Kernel.MinLookahead()
	lp.publishEOT()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if lp.terminated() {
			lp.EOT.Set(lp.Index, lp.Kernel.Infinity)
			return nil
		}

		lp.pending = append(lp.pending, lp.Net.Drain()...)
		now := lp.nextEventTime(lp.pending)
		eit, gen := lp.computeEIT()

		if now.IsInfinity() && len(lp.pending) == 0 {
			if eit.IsInfinity() {
				// An influencer's last message may have been enqueued
				// after the Drain above but before its final EOT was
				// read; pick it up before deciding the LP is done.
				if !lp.Net.InboxEmpty() {
					continue
				}
				// Nothing scheduled, nothing queued, and every influencer
				// has finished: no message can ever reach this LP again.
				return nil
			}
			// An influencer is still running and could yet send
			// something; block until its EOT moves and re-evaluate. gen
			// was captured in the same critical section as eit, so a
			// Set landing right after cannot be missed.
			lp.EOT.WaitForChange(gen)
			continue
		}

		if eit.Less(now) {
			// An influencer might still deliver something no later than
			// eit, which is earlier than the event we'd process next.
			// lp.pending is kept, not dropped, so nothing is lost while
			// we block until some EOT changes and re-evaluate.
			lp.EOT.WaitForChange(gen)
			continue
		}

		var inbound, notDue []types.Message
		for _, m := range lp.pending {
			if m.SendTime.LessOrEqual(now) {
				inbound = append(inbound, m)
			} else {
				notDue = append(notDue, m)
			}
		}
		lp.pending = notDue
		lp.Kernel.SetNow(now)
		result, err := lp.Kernel.Step(nil, inbound)
		if err != nil {
			return err
		}
		lp.Kernel.Advance()
		lp.publishEOT()

		if lp.Logger != nil {
			lp.Logger.Debugf("conservative lp %d advanced to %s after %d transitions", lp.Index, now, len(result.Touched))
		}
	}
}

// nextEventTime is the earlier of the kernel's own scheduled top and the
// earliest SendTime among freshly drained inbound messages.
func (lp *ConservativeLP) nextEventTime(inbound []types.Message) types.Timestamp {
	now := lp.Kernel.Peek()
	for _, m := range inbound {
		if m.SendTime.Less(now) {
			now = m.SendTime
		}
	}
	return now
}

// computeEIT returns the current EIT together with the EOTVector
// generation it was read at, so a caller that goes on to block can pass
// that generation to WaitForChange without risking a missed wakeup.
func (lp *ConservativeLP) computeEIT() (types.Timestamp, uint64) {
	return lp.EOT.MinWithGen(lp.Influencers, lp.Kernel.Infinity)
}

func (lp *ConservativeLP) publishEOT() {
	lp.EOT.Set(lp.Index, lp.Kernel.LocalTime.Add(lp.minLookahead))
}

func (lp *ConservativeLP) terminated() bool {
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

var _ LP = (*ConservativeLP)(nil)
