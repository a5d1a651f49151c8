package router

import (
	"time"

	"github.com/jabolina/go-devs/pkg/devs/definition"
	"github.com/jabolina/go-devs/pkg/devs/types"
)

// Locator resolves a model id to its owning LP index, backed by
// control.LocationTable.
type Locator func(types.ModelID) int

// Network is the per-LP view of message routing: it knows which LP it
// belongs to, how to resolve a destination's owning LP, and how to reach
// every other LP's Inbox.
type Network struct {
	lp      int
	locate  Locator
	inboxes []*Inbox
	eot     *EOTVector
	backoff *definition.Backoff
}

// NewNetwork builds the per-LP network view. inboxes must be the same
// slice (one per LP, indexed by LP id) shared by every LP in the run.
func NewNetwork(lp int, locate Locator, inboxes []*Inbox, eot *EOTVector) *Network {
	return &Network{
		lp:      lp,
		locate:  locate,
		inboxes: inboxes,
		eot:     eot,
		backoff: definition.NewBackoff(time.Millisecond, 100*time.Millisecond, uint64(lp)+1),
	}
}

// Send routes one message. If the destination model lives on this LP,
// localDeliver is invoked synchronously (appending to the current step's
// mailbag); otherwise the message is enqueued onto the destination LP's
// Inbox. Send never touches the EOT vector: in conservative mode
// ConservativeLP publishes the sender's EOT itself after each step, since
// that needs the lookahead too -- Network only moves messages.
//
// An unknown destination is a protocol violation and is returned
// immediately. A full destination Inbox is a transient condition: Send
// retries with n.backoff until the Inbox has room, rather than surfacing
// ErrInboxFull to the caller.
func (n *Network) Send(msg types.Message, localDeliver func(types.Message)) error {
	dest := n.locate(msg.Dst)
	if dest < 0 {
		return types.NewKernelError(types.ErrKindProtocol, n.lp, types.ErrUnknownDestination)
	}
	if dest == n.lp {
		localDeliver(msg)
		return nil
	}
	for {
		err := n.inboxes[dest].Enqueue(msg)
		if err == nil {
			n.backoff.Reset()
			return nil
		}
		if err != ErrInboxFull {
			return err
		}
		time.Sleep(n.backoff.Next())
	}
}

// Drain removes and returns every message queued for this LP since the
// last Drain.
func (n *Network) Drain() []types.Message {
	return n.inboxes[n.lp].Drain()
}

func (n *Network) InboxEmpty() bool {
	return n.inboxes[n.lp].Empty()
}

// CollectOutput calls output() on every imminent model, tags and routes
// each produced message, and returns the map of locally-destined messages
// keyed by destination model (the M map §4.4 step 3 classifies against)
// alongside the full, tagged list of every message produced this step --
// local or remote -- which an optimistic LP retains in its sent log for
// later anti-message generation.
func CollectOutput(
	n *Network,
	imminents []types.ModelEntry,
	now types.Timestamp,
	outputFn func(types.ModelRef) []types.Message,
) (map[types.ModelID][]types.Message, []types.Message, error) {
	mail := make(map[types.ModelID][]types.Message)
	var sent []types.Message
	localDeliver := func(m types.Message) {
		mail[m.Dst] = append(mail[m.Dst], m)
	}
	for _, entry := range imminents {
		produced := outputFn(entry.Model)
		for _, m := range produced {
			m.Src = entry.Model.ID()
			m.SendTime = now
			if err := n.Send(m, localDeliver); err != nil {
				return nil, nil, err
			}
			sent = append(sent, m)
		}
	}
	return mail, sent, nil
}
