package router

import (
	"errors"
	"sync"

	"github.com/jabolina/go-devs/pkg/devs/types"
)

// ErrInboxFull is the transient condition an Inbox reports when Enqueue
// would exceed capacity; callers retry with a definition.Backoff rather
// than surfacing this as a fatal error.
var ErrInboxFull = errors.New("devs: inbox is full")

// Inbox is a bounded, multi-producer single-consumer queue: any LP may
// enqueue (guarded by the mutex), but only the owning LP ever dequeues.
type Inbox struct {
	mu       sync.Mutex
	queue    []types.Message
	capacity int
}

func NewInbox(capacity int) *Inbox {
	return &Inbox{capacity: capacity}
}

// Enqueue appends a message, or returns ErrInboxFull if the inbox is at
// capacity.
func (ib *Inbox) Enqueue(m types.Message) error {
	ib.mu.Lock()
	defer ib.mu.Unlock()
	if ib.capacity > 0 && len(ib.queue) >= ib.capacity {
		return ErrInboxFull
	}
	ib.queue = append(ib.queue, m)
	return nil
}

// Drain removes and returns every queued message, in arrival order.
func (ib *Inbox) Drain() []types.Message {
	ib.mu.Lock()
	defer ib.mu.Unlock()
	if len(ib.queue) == 0 {
		return nil
	}
	out := ib.queue
	ib.queue = nil
	return out
}

func (ib *Inbox) Empty() bool {
	ib.mu.Lock()
	defer ib.mu.Unlock()
	return len(ib.queue) == 0
}

// PeekMinSendTime reports the earliest SendTime among currently queued
// messages, without dequeuing anything. The GVT coordinator uses this to
// fold undelivered transit messages into the GVT lower bound.
func (ib *Inbox) PeekMinSendTime() (types.Timestamp, bool) {
	ib.mu.Lock()
	defer ib.mu.Unlock()
	if len(ib.queue) == 0 {
		return types.Timestamp{}, false
	}
	min := ib.queue[0].SendTime
	for _, m := range ib.queue[1:] {
		if m.SendTime.Less(min) {
			min = m.SendTime
		}
	}
	return min, true
}
