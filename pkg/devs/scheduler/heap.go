package scheduler

import (
	"container/heap"

	"github.com/jabolina/go-devs/pkg/devs/types"
)

// heapItem is one slot in the indexed heap: the entry plus its current
// position, kept in sync by heapSlice.Swap so Reschedule/Remove can fix
// the heap in O(log n) instead of rescanning, mirroring HeapElement's
// m_index back-pointer.
type heapItem struct {
	entry types.ModelEntry
	index int
}

type heapSlice []*heapItem

func (s heapSlice) Len() int            { return len(s) }
func (s heapSlice) Less(i, j int) bool  { return less(s[i].entry, s[j].entry) }
func (s heapSlice) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
	s[i].index = i
	s[j].index = j
}

func (s *heapSlice) Push(x any) {
	item := x.(*heapItem)
	item.index = len(*s)
	*s = append(*s, item)
}

func (s *heapSlice) Pop() any {
	old := *s
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*s = old[:n-1]
	return item
}

// Heap is the preferred Scheduler realization: an indexed binary min-heap
// with O(log n) push/remove/reschedule and O(1) top.
type Heap struct {
	items heapSlice
	index map[types.ModelID]*heapItem
}

func NewHeap() *Heap {
	return &Heap{index: make(map[types.ModelID]*heapItem)}
}

func NewHeapWithCapacity(n int) *Heap {
	h := &Heap{
		items: make(heapSlice, 0, n),
		index: make(map[types.ModelID]*heapItem, n),
	}
	return h
}

func (h *Heap) Push(entry types.ModelEntry) {
	id := entry.Model.ID()
	if _, ok := h.index[id]; ok {
		panic("devs: scheduler already holds an entry for this model")
	}
	item := &heapItem{entry: entry}
	heap.Push(&h.items, item)
	h.index[id] = item
}

func (h *Heap) Remove(id types.ModelID) bool {
	item, ok := h.index[id]
	if !ok {
		return false
	}
	heap.Remove(&h.items, item.index)
	delete(h.index, id)
	return true
}

func (h *Heap) Reschedule(id types.ModelID, model types.ModelRef, newTime types.Timestamp) bool {
	if newTime.IsInfinity() {
		return h.Remove(id)
	}
	item, ok := h.index[id]
	if !ok {
		h.Push(types.ModelEntry{Model: model, Scheduled: newTime})
		return false
	}
	item.entry.Scheduled = newTime
	if model != nil {
		item.entry.Model = model
	}
	heap.Fix(&h.items, item.index)
	return true
}

func (h *Heap) Top() (types.ModelEntry, bool) {
	if len(h.items) == 0 {
		return types.ModelEntry{}, false
	}
	return h.items[0].entry, true
}

func (h *Heap) PopImminents(until types.Timestamp) []types.ModelEntry {
	var out []types.ModelEntry
	for len(h.items) > 0 && !until.Less(h.items[0].entry.Scheduled) {
		item := heap.Pop(&h.items).(*heapItem)
		delete(h.index, item.entry.Model.ID())
		out = append(out, item.entry)
	}
	return out
}

func (h *Heap) Empty() bool { return len(h.items) == 0 }
func (h *Heap) Size() int   { return len(h.items) }

func (h *Heap) Contains(id types.ModelID) bool {
	_, ok := h.index[id]
	return ok
}

func (h *Heap) Clear() {
	h.items = h.items[:0]
	h.index = make(map[types.ModelID]*heapItem)
}

var _ Scheduler = (*Heap)(nil)
