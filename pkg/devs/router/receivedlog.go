package router

import "github.com/jabolina/go-devs/pkg/devs/types"

// ReceivedLog records every positive message an optimistic LP has applied
// to a model, so a later anti-message can be matched against it by
// identity instead of blindly rolling back on every arrival.
type ReceivedLog struct {
	applied map[types.MessageIdentity]types.Message
}

func NewReceivedLog() *ReceivedLog {
	return &ReceivedLog{applied: make(map[types.MessageIdentity]types.Message)}
}

func (r *ReceivedLog) Record(m types.Message) {
	r.applied[m.Identity()] = m
}

// Annihilate looks up anti's positive counterpart. found reports whether
// it had been applied; when true, the entry is removed.
func (r *ReceivedLog) Annihilate(anti types.Message) (types.Message, bool) {
	id := anti.Identity()
	m, found := r.applied[id]
	if found {
		delete(r.applied, id)
	}
	return m, found
}

// Forget drops every entry with SendTime strictly after tr and returns
// them, mirroring SentLog.Truncate: a rollback to tr undoes the model
// state that applied these messages, so the caller must requeue the
// returned messages for redelivery rather than let their effect vanish.
func (r *ReceivedLog) Forget(tr types.Timestamp) []types.Message {
	var removed []types.Message
	for id, m := range r.applied {
		if tr.Less(m.SendTime) {
			removed = append(removed, m)
			delete(r.applied, id)
		}
	}
	return removed
}

// ForgetBefore drops every entry with SendTime strictly before gvt,
// mirroring SentLog.ForgetBefore: once GVT has passed a message's send
// time, it can never again be the target of an anti-message annihilation.
func (r *ReceivedLog) ForgetBefore(gvt types.Timestamp) {
	for id, m := range r.applied {
		if m.SendTime.Less(gvt) {
			delete(r.applied, id)
		}
	}
}

func (r *ReceivedLog) Len() int { return len(r.applied) }
