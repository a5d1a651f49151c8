package router

import (
	"testing"

	"github.com/jabolina/go-devs/pkg/devs/types"
)

type refModel struct {
	id types.ModelID
}

func (r refModel) ID() types.ModelID { return r.id }
func (r refModel) Name() string      { return "ref" }
func (r refModel) Priority() int     { return 0 }

func TestNetwork_LocalDeliveryDoesNotTouchInbox(t *testing.T) {
	inboxes := []*Inbox{NewInbox(0), NewInbox(0)}
	locate := func(id types.ModelID) int { return int(id.LP()) }
	n := NewNetwork(0, locate, inboxes, nil)

	dst := types.NewModelID(0, 0, 1)
	msg := types.Message{Dst: dst}

	var delivered []types.Message
	if err := n.Send(msg, func(m types.Message) { delivered = append(delivered, m) }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(delivered) != 1 {
		t.Fatalf("expected local delivery, got %d", len(delivered))
	}
	if !inboxes[0].Empty() || !inboxes[1].Empty() {
		t.Fatalf("expected both inboxes untouched for a local delivery")
	}
}

func TestNetwork_RemoteDeliveryUsesDestinationInbox(t *testing.T) {
	inboxes := []*Inbox{NewInbox(0), NewInbox(0)}
	locate := func(id types.ModelID) int { return int(id.LP()) }
	n := NewNetwork(0, locate, inboxes, nil)

	dst := types.NewModelID(0, 1, 1)
	msg := types.Message{Dst: dst}

	if err := n.Send(msg, func(types.Message) { t.Fatalf("should not deliver locally") }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inboxes[1].Empty() {
		t.Fatalf("expected message queued on destination LP's inbox")
	}
}

func TestCollectOutput_TagsSenderAndTime(t *testing.T) {
	inboxes := []*Inbox{NewInbox(0)}
	locate := func(id types.ModelID) int { return int(id.LP()) }
	n := NewNetwork(0, locate, inboxes, nil)

	src := refModel{id: types.NewModelID(0, 0, 1)}
	dst := types.NewModelID(0, 0, 2)
	imminents := []types.ModelEntry{{Model: src, Scheduled: types.NewIntTime(10)}}

	outputFn := func(types.ModelRef) []types.Message {
		return []types.Message{{Dst: dst, Payload: "hi"}}
	}

	mail, sent, err := CollectOutput(n, imminents, types.NewIntTime(10), outputFn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sent) != 1 {
		t.Fatalf("expected 1 sent message recorded, got %d", len(sent))
	}
	msgs := mail[dst]
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message for dst, got %d", len(msgs))
	}
	if msgs[0].Src != src.ID() {
		t.Fatalf("expected Src tagged with sender id")
	}
	if !msgs[0].SendTime.Equal(types.NewIntTime(10)) {
		t.Fatalf("expected SendTime tagged with step time")
	}
}

func TestSentLog_AfterAndTruncate(t *testing.T) {
	s := NewSentLog()
	s.Record(types.Message{SendTime: types.NewIntTime(5)})
	s.Record(types.Message{SendTime: types.NewIntTime(10)})
	s.Record(types.Message{SendTime: types.NewIntTime(15)})

	after := s.After(types.NewIntTime(7))
	if len(after) != 2 {
		t.Fatalf("expected 2 entries after tr=7, got %d", len(after))
	}

	s.Truncate(types.NewIntTime(7))
	if s.Len() != 1 {
		t.Fatalf("expected 1 entry retained after truncate, got %d", s.Len())
	}
}
