// Implements the WaitQueue, which holds entities waiting for a busy resource.
// Entities are enqueued when a seize attempt fails.

package sim

import (
	"fmt"
	"sort"
	"strings"
)

// Discipline selects how a resource orders its wait queue.
type Discipline string

const (
	// DisciplineFIFO serves entities in enqueue order (default).
	DisciplineFIFO Discipline = "fifo"
	// DisciplineSPT serves the shortest pre-sampled processing time first.
	// Warning: SPT can starve long jobs under sustained load.
	DisciplineSPT Discipline = "spt"
	// DisciplineEDD serves the earliest due date first; entities without a due date go last.
	DisciplineEDD Discipline = "edd"
	// DisciplinePriority serves the highest entity priority first.
	DisciplinePriority Discipline = "priority"
)

var validDisciplines = map[Discipline]bool{
	"":                 true,
	DisciplineFIFO:     true,
	DisciplineSPT:      true,
	DisciplineEDD:      true,
	DisciplinePriority: true,
}

// IsValidDiscipline returns true if name is a recognized discipline (empty means fifo).
func IsValidDiscipline(name string) bool {
	return validDisciplines[Discipline(name)]
}

// QueueKey orders entries within a non-FIFO queue: lower keys are served
// first. Equal keys fall back to enqueue order.
type QueueKey float64

type queueEntry struct {
	entity EntityID
	key    QueueKey
}

// WaitQueue is an ordered queue of entity handles. Under FIFO every key is
// zero and ordering reduces to enqueue order.
type WaitQueue struct {
	queue   []queueEntry
	members map[EntityID]struct{}
}

// NewWaitQueue returns an empty queue.
func NewWaitQueue() *WaitQueue {
	return &WaitQueue{members: make(map[EntityID]struct{})}
}

// Enqueue inserts e at its ordered position. Returns false, leaving the
// queue untouched, if e is already queued.
func (wq *WaitQueue) Enqueue(e EntityID, key QueueKey) bool {
	if wq.Contains(e) {
		return false
	}
	entry := queueEntry{entity: e, key: key}
	// First position whose key is strictly greater: equal keys keep enqueue order.
	i := sort.Search(len(wq.queue), func(i int) bool { return wq.queue[i].key > key })
	wq.queue = append(wq.queue, queueEntry{})
	copy(wq.queue[i+1:], wq.queue[i:])
	wq.queue[i] = entry
	wq.members[e] = struct{}{}
	return true
}

// PrependFront inserts e at the head regardless of its key.
// Used when a woken entity loses the freed slot to a same-instant competitor:
// it was the head before the wake-up and stays the head.
// The stored key is lowered to the current head's key so the queue stays sorted.
func (wq *WaitQueue) PrependFront(e EntityID, key QueueKey) {
	if wq.Contains(e) {
		panic(fmt.Sprintf("PrependFront: entity %d is already queued", e))
	}
	if len(wq.queue) > 0 && wq.queue[0].key < key {
		key = wq.queue[0].key
	}
	entry := queueEntry{entity: e, key: key}
	wq.queue = append([]queueEntry{entry}, wq.queue...)
	wq.members[e] = struct{}{}
}

// Dequeue removes and returns the head of the queue.
func (wq *WaitQueue) Dequeue() (EntityID, bool) {
	if len(wq.queue) == 0 {
		return 0, false
	}
	head := wq.queue[0]
	wq.queue = wq.queue[1:]
	delete(wq.members, head.entity)
	return head.entity, true
}

// Peek returns the head of the queue without removing it.
func (wq *WaitQueue) Peek() (EntityID, bool) {
	if len(wq.queue) == 0 {
		return 0, false
	}
	return wq.queue[0].entity, true
}

// Contains reports whether e is queued.
func (wq *WaitQueue) Contains(e EntityID) bool {
	_, ok := wq.members[e]
	return ok
}

// Len returns the number of queued entities.
func (wq *WaitQueue) Len() int {
	return len(wq.queue)
}

// Items returns the queued handles head first, as a fresh slice.
func (wq *WaitQueue) Items() []EntityID {
	out := make([]EntityID, len(wq.queue))
	for i, e := range wq.queue {
		out[i] = e.entity
	}
	return out
}

func (wq *WaitQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, e := range wq.queue {
		sb.WriteString(fmt.Sprint(e.entity))
		if i < len(wq.queue)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
