// Package equeue implements the simulator's time-ordered event queue.
//
// The heap shape is lifted directly from the teacher's timerHeap
// (github.com/joeycumines/go-utilpkg/eventloop, loop.go): a container/heap
// min-heap ordered by instant. It's extended with a stable sequence number
// for FIFO ordering among co-time events and a generation-counter handle so
// callers can delete an in-flight event in O(log n) without walking the
// heap.
package equeue

import (
	"container/heap"
	"fmt"
)

// Handle identifies a previously inserted event for O(log n) deletion.
// The zero Handle is never issued by Insert. It carries only the
// generation: the heap moves entries (and their index) on every
// subsequent Push/Pop/Remove, so the queue looks the entry up by
// generation in Delete rather than trusting a value-copy slot.
type Handle struct {
	gen uint64
}

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool { return h.gen == 0 }

type entry struct {
	time  int64
	seq   uint64
	gen   uint64
	value any
	index int // position in the heap slice; -1 once removed
}

// Queue is a time-ordered priority queue with stable co-time (FIFO)
// ordering and O(log n) delete-by-handle.
type Queue struct {
	h       entryHeap
	byGen   map[uint64]*entry
	nextSeq uint64
	nextGen uint64
	now     int64
	last    int64
	hasLast bool
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{h: entryHeap{}, byGen: make(map[uint64]*entry)}
}

// Len reports the number of events currently queued.
func (q *Queue) Len() int { return len(q.h) }

// Insert places value at the given instant, returning a Handle for later
// deletion. Insert rejects events scheduled before any event already
// popped via PopNext — the queue's notion of "now" only ever advances.
func (q *Queue) Insert(at int64, value any) (Handle, error) {
	if q.hasLast && at < q.last {
		return Handle{}, fmt.Errorf("equeue: insert at %d is before current time %d", at, q.last)
	}
	q.nextGen++
	e := &entry{
		time:  at,
		seq:   q.nextSeq,
		gen:   q.nextGen,
		value: value,
	}
	q.nextSeq++
	heap.Push(&q.h, e)
	q.byGen[e.gen] = e
	return Handle{gen: e.gen}, nil
}

// PeekNext returns the earliest, earliest-inserted event without removing
// it. ok is false when the queue is empty.
func (q *Queue) PeekNext() (at int64, value any, ok bool) {
	if len(q.h) == 0 {
		return 0, nil, false
	}
	e := q.h[0]
	return e.time, e.value, true
}

// PopNext removes and returns the earliest, earliest-inserted event.
func (q *Queue) PopNext() (at int64, value any, ok bool) {
	if len(q.h) == 0 {
		return 0, nil, false
	}
	e := heap.Pop(&q.h).(*entry)
	delete(q.byGen, e.gen)
	q.last = e.time
	q.hasLast = true
	return e.time, e.value, true
}

// Delete removes the event identified by h, if it is still present. It
// looks the entry up by its stable generation rather than trusting a
// remembered index, since heap.Push/Pop/Remove reorder entries (and
// update entry.index in place) on every call after Insert returned h.
// It reports whether anything was removed.
func (q *Queue) Delete(h Handle) bool {
	if h.IsZero() {
		return false
	}
	e, ok := q.byGen[h.gen]
	if !ok {
		return false
	}
	heap.Remove(&q.h, e.index)
	delete(q.byGen, h.gen)
	return true
}

// entryHeap implements heap.Interface; Swap keeps entry.index current so
// Delete's heap.Remove always targets the right slot once it has looked
// the entry up by generation.
type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].time != h[j].time {
		return h[i].time < h[j].time
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}
