package router

import "github.com/jabolina/go-devs/pkg/devs/types"

// SentLog records every message an optimistic LP has sent, so a rollback
// to t_r can emit anti-messages for every entry with SendTime > t_r.
type SentLog struct {
	entries []types.Message
}

func NewSentLog() *SentLog {
	return &SentLog{}
}

func (s *SentLog) Record(m types.Message) {
	s.entries = append(s.entries, m)
}

// After returns every sent message with SendTime strictly after tr, in
// the order they were recorded.
func (s *SentLog) After(tr types.Timestamp) []types.Message {
	var out []types.Message
	for _, m := range s.entries {
		if tr.Less(m.SendTime) {
			out = append(out, m)
		}
	}
	return out
}

// Truncate drops every entry with SendTime strictly after tr, used after
// their anti-messages have been emitted during a rollback.
func (s *SentLog) Truncate(tr types.Timestamp) {
	kept := s.entries[:0]
	for _, m := range s.entries {
		if !tr.Less(m.SendTime) {
			kept = append(kept, m)
		}
	}
	s.entries = kept
}

// ForgetBefore drops every entry with SendTime strictly before gvt: once
// GVT has passed a send time, no future rollback can ever target it, so
// its anti-message is never needed again.
func (s *SentLog) ForgetBefore(gvt types.Timestamp) {
	kept := s.entries[:0]
	for _, m := range s.entries {
		if !m.SendTime.Less(gvt) {
			kept = append(kept, m)
		}
	}
	s.entries = kept
}

func (s *SentLog) Len() int { return len(s.entries) }
