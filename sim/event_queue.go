package sim

import "container/heap"

// queuedEvent pairs an event with its insertion sequence number.
type queuedEvent struct {
	ev  Event
	seq uint64
}

// eventHeap implements heap.Interface.
// See canonical Golang example here: https://pkg.go.dev/container/heap#example-package-IntHeap
type eventHeap []queuedEvent

func (h eventHeap) Len() int { return len(h) }

// Less orders by timestamp, then by insertion order. Among equal timestamps
// the event scheduled first fires first, so a release is visible before a
// later seize attempt at the same instant.
func (h eventHeap) Less(i, j int) bool {
	ti, tj := h[i].ev.Timestamp(), h[j].ev.Timestamp()
	if ti != tj {
		return ti < tj
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(queuedEvent))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = queuedEvent{}
	*h = old[0 : n-1]
	return item
}

// EventQueue is the time-ordered priority queue of pending events.
// It is the sole driver of simulated time.
type EventQueue struct {
	events  eventHeap
	nextSeq uint64
}

// NewEventQueue creates an empty event queue.
func NewEventQueue() *EventQueue {
	return &EventQueue{events: make(eventHeap, 0)}
}

// Schedule adds an event to the queue.
func (q *EventQueue) Schedule(ev Event) {
	heap.Push(&q.events, queuedEvent{ev: ev, seq: q.nextSeq})
	q.nextSeq++
}

// PopNext removes and returns the next event, or nil when the queue is empty.
// An empty queue is not an error: it signals that the run has drained.
func (q *EventQueue) PopNext() Event {
	if q.events.Len() == 0 {
		return nil
	}
	return heap.Pop(&q.events).(queuedEvent).ev
}

// Peek returns the next event without removing it.
func (q *EventQueue) Peek() Event {
	if q.events.Len() == 0 {
		return nil
	}
	return q.events[0].ev
}

// Len returns the number of pending events.
func (q *EventQueue) Len() int {
	return q.events.Len()
}
