package core

import (
	"fmt"

	"github.com/jabolina/go-devs/pkg/devs/router"
	"github.com/jabolina/go-devs/pkg/devs/scheduler"
	"github.com/jabolina/go-devs/pkg/devs/types"
)

// Kernel is the sequential run-step engine shared by every LP mode: it
// knows nothing about conservative/optimistic synchronization, only how
// to run one §4.4 step against its own resident models.
type Kernel struct {
	ID        int
	Infinity  types.Timestamp
	Models    map[types.ModelID]types.AtomicModel
	Sched     scheduler.Scheduler
	Net       *router.Network
	Listener  types.EventListener
	Logger    types.Logger
	LocalTime types.Timestamp

	lastEvent map[types.ModelID]types.Timestamp
}

// NewKernel builds an empty kernel; callers Register models, then Init.
func NewKernel(id int, sched scheduler.Scheduler, net *router.Network, listener types.EventListener, logger types.Logger, infinity types.Timestamp) *Kernel {
	if listener == nil {
		listener = types.NoopListener{}
	}
	return &Kernel{
		ID:        id,
		Infinity:  infinity,
		Models:    make(map[types.ModelID]types.AtomicModel),
		Sched:     sched,
		Net:       net,
		Listener:  listener,
		Logger:    logger,
		LocalTime: infinity,
		lastEvent: make(map[types.ModelID]types.Timestamp),
	}
}

// Register adds a model to this kernel's resident set. It is a protocol
// violation to register the same model id twice.
func (k *Kernel) Register(m types.AtomicModel) error {
	if _, exists := k.Models[m.ID()]; exists {
		return types.NewKernelError(types.ErrKindProtocol, k.ID, fmt.Errorf("%w: %s", types.ErrDuplicateModel, m.Name()))
	}
	k.Models[m.ID()] = m
	return nil
}

// Init schedules every resident model by its initial timeAdvance() and
// sets LocalTime to the earliest scheduled time (or Infinity if no model
// is live).
func (k *Kernel) Init() error {
	zero := k.zeroTimestamp()
	for id, m := range k.Models {
		ta := m.TimeAdvance()
		if err := k.validateTimeAdvance(ta); err != nil {
			return err
		}
		k.lastEvent[id] = zero
		if !ta.IsInfinity() {
			k.Sched.Push(types.ModelEntry{Model: m, Scheduled: ta})
		}
	}
	if top, ok := k.Sched.Top(); ok {
		k.LocalTime = top.Scheduled
	} else {
		k.LocalTime = k.Infinity
	}
	return nil
}

// zeroTimestamp derives the zero value of this kernel's concrete Time
// representation from Infinity, so callers never construct a Timestamp
// with a nil At interface.
func (k *Kernel) zeroTimestamp() types.Timestamp {
	z, _ := k.Infinity.At.Sub(k.Infinity.At)
	return types.Timestamp{At: z}
}

func (k *Kernel) validateTimeAdvance(ta types.Timestamp) error {
	if ta.IsInfinity() {
		return nil
	}
	if _, ok := ta.Sub(k.zeroTimestamp()); !ok {
		return types.NewKernelError(types.ErrKindProtocol, k.ID, types.ErrNegativeTimeAdvance)
	}
	return nil
}

// StepResult carries what a single §4.4 step (1-4) touched, so a caller
// that needs to layer synchronization bookkeeping on top (conservative
// lookahead, optimistic state-saving) can do so without the kernel
// knowing about it.
type StepResult struct {
	Now       types.Timestamp
	Imminents []types.ModelEntry
	Touched   []types.AtomicModel
	// Sent is every message produced this step, tagged with Src and
	// SendTime, regardless of whether it was delivered locally or routed
	// to another LP's inbox.
	Sent []types.Message
}

// Step runs §4.4 steps 1-4: pop imminents, collect and route output,
// classify and dispatch transitions, reschedule touched models. inbound
// carries messages a caller already pulled off the cross-LP network
// (conservative/optimistic disciplines drain their Inbox themselves,
// since draining needs to happen before the EIT/now computation this
// package doesn't know about); a sequential, single-LP run passes nil.
// Step does not advance LocalTime (step 5) or check termination (step
// 6); callers do that after optionally running their own synchronization
// bookkeeping against the returned StepResult.
func (k *Kernel) Step(beforeTransition func(m types.AtomicModel), inbound []types.Message) (StepResult, error) {
	now := k.LocalTime
	imminents := k.Sched.PopImminents(now)
	imminentSet := make(map[types.ModelID]struct{}, len(imminents))
	for _, e := range imminents {
		imminentSet[e.Model.ID()] = struct{}{}
	}

	mail, sent, err := router.CollectOutput(k.Net, imminents, now, func(ref types.ModelRef) []types.Message {
		m := k.Models[ref.ID()]
		out := m.Output()
		for _, msg := range out {
			k.Listener.OnOutput(ref, msg, now)
		}
		return out
	})
	if err != nil {
		return StepResult{}, types.NewKernelError(types.ErrKindProtocol, k.ID, err)
	}
	for _, m := range inbound {
		mail[m.Dst] = append(mail[m.Dst], m)
	}

	touched := make([]types.AtomicModel, 0, len(imminents)+len(mail))
	dispatch := func(id types.ModelID) error {
		m, ok := k.Models[id]
		if !ok {
			return types.NewKernelError(types.ErrKindProtocol, k.ID, types.ErrUnknownDestination)
		}
		if beforeTransition != nil {
			beforeTransition(m)
		}
		bag, hasMail := mail[id]
		_, isImminent := imminentSet[id]
		elapsed, _ := now.Sub(k.lastEvent[id])
		switch {
		case isImminent && hasMail:
			m.ConfluentTransition(bag)
		case isImminent:
			m.InternalTransition()
		default:
			m.ExternalTransition(elapsed, bag)
		}
		k.lastEvent[id] = now
		k.Listener.OnStateChange(m, now)
		touched = append(touched, m)
		return nil
	}

	for _, e := range imminents {
		if err := dispatch(e.Model.ID()); err != nil {
			return StepResult{}, err
		}
	}
	for id := range mail {
		if _, already := imminentSet[id]; already {
			continue
		}
		if err := dispatch(id); err != nil {
			return StepResult{}, err
		}
	}

	for _, m := range touched {
		ta := m.TimeAdvance()
		if err := k.validateTimeAdvance(ta); err != nil {
			return StepResult{}, err
		}
		next := now.Add(ta)
		if ta.IsInfinity() {
			next = k.Infinity
		}
		k.Sched.Reschedule(m.ID(), m, next)
	}

	return StepResult{Now: now, Imminents: imminents, Touched: touched, Sent: sent}, nil
}

// Advance sets LocalTime to the new scheduler top, or Infinity if the
// scheduler is empty -- §4.4 step 5.
func (k *Kernel) Advance() {
	if top, ok := k.Sched.Top(); ok {
		k.LocalTime = top.Scheduled
	} else {
		k.LocalTime = k.Infinity
	}
}

// Peek reports the scheduler's next event time without mutating
// LocalTime, so a caller can fold in external information (an inbound
// message's SendTime, an EIT bound) before committing to "now".
func (k *Kernel) Peek() types.Timestamp {
	if top, ok := k.Sched.Top(); ok {
		return top.Scheduled
	}
	return k.Infinity
}

// SetNow overrides LocalTime directly, bypassing the scheduler-derived
// value Advance would compute. Conservative and optimistic disciplines
// use this to run a step at an externally-bounded time (the earliest of
// the scheduler's own top and an inbound message's send time).
func (k *Kernel) SetNow(t types.Timestamp) {
	k.LocalTime = t
}

// MinLookahead returns the smallest Lookahead() among every resident
// model, used by conservative mode to compute this LP's EOT. With no
// resident models it returns Infinity.
func (k *Kernel) MinLookahead() types.Timestamp {
	min := k.Infinity
	first := true
	for _, m := range k.Models {
		la := m.Lookahead()
		if first || la.Less(min) {
			min = la
			first = false
		}
	}
	return min
}
