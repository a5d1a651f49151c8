package scheduler

import (
	"container/list"

	"github.com/jabolina/go-devs/pkg/devs/types"
)

// List is the small-N Scheduler realization: a sorted doubly-linked list,
// O(n) insert, O(1) top, grounded on listscheduler.h.
type List struct {
	l     *list.List
	index map[types.ModelID]*list.Element
}

func NewList() *List {
	return &List{l: list.New(), index: make(map[types.ModelID]*list.Element)}
}

func (s *List) Push(entry types.ModelEntry) {
	id := entry.Model.ID()
	if _, ok := s.index[id]; ok {
		panic("devs: scheduler already holds an entry for this model")
	}
	s.index[id] = s.insertSorted(entry)
}

func (s *List) insertSorted(entry types.ModelEntry) *list.Element {
	for e := s.l.Front(); e != nil; e = e.Next() {
		if less(entry, e.Value.(types.ModelEntry)) {
			return s.l.InsertBefore(entry, e)
		}
	}
	return s.l.PushBack(entry)
}

func (s *List) Remove(id types.ModelID) bool {
	e, ok := s.index[id]
	if !ok {
		return false
	}
	s.l.Remove(e)
	delete(s.index, id)
	return true
}

func (s *List) Reschedule(id types.ModelID, model types.ModelRef, newTime types.Timestamp) bool {
	if newTime.IsInfinity() {
		return s.Remove(id)
	}
	existed := s.Remove(id)
	if !existed && model == nil {
		return false
	}
	s.index[id] = s.insertSorted(types.ModelEntry{Model: model, Scheduled: newTime})
	return existed
}

func (s *List) Top() (types.ModelEntry, bool) {
	front := s.l.Front()
	if front == nil {
		return types.ModelEntry{}, false
	}
	return front.Value.(types.ModelEntry), true
}

func (s *List) PopImminents(until types.Timestamp) []types.ModelEntry {
	var out []types.ModelEntry
	for {
		front := s.l.Front()
		if front == nil {
			break
		}
		entry := front.Value.(types.ModelEntry)
		if until.Less(entry.Scheduled) {
			break
		}
		s.l.Remove(front)
		delete(s.index, entry.Model.ID())
		out = append(out, entry)
	}
	return out
}

func (s *List) Empty() bool { return s.l.Len() == 0 }
func (s *List) Size() int   { return s.l.Len() }

func (s *List) Contains(id types.ModelID) bool {
	_, ok := s.index[id]
	return ok
}

func (s *List) Clear() {
	s.l.Init()
	s.index = make(map[types.ModelID]*list.Element)
}

var _ Scheduler = (*List)(nil)
