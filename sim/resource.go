package sim

import "fmt"

// ResourceStats accumulates per-resource statistics over one run.
type ResourceStats struct {
	SeizeCount     int     // successful seizes
	BusyTime       float64 // sum of sampled service durations, accumulated at seize time
	MaxQueueLength int     // running maximum, updated on every enqueue
	TotalWait      float64 // sum over seizes of time spent queued
	queueArea      float64 // ∫ queue length dt up to lastUpdate
	lastUpdate     float64
}

// Resource is a capacity-bounded server with its own wait queue.
type Resource struct {
	ID         string
	Name       string
	Capacity   int
	Discipline Discipline

	load  int
	queue *WaitQueue
	Stats ResourceStats
}

// NewResource builds an idle resource from its static description.
func NewResource(spec ResourceSpec) *Resource {
	if spec.Capacity < 1 {
		panic(fmt.Sprintf("NewResource: capacity must be >= 1, got %d", spec.Capacity))
	}
	return &Resource{
		ID:         spec.ID,
		Name:       spec.Name,
		Capacity:   spec.Capacity,
		Discipline: spec.Discipline,
		queue:      NewWaitQueue(),
	}
}

// TrySeize claims a capacity slot for e if one is free. Otherwise e is
// queued (a no-op if it already is) and TrySeize returns false. The queue is
// never consulted while a slot is free.
func (r *Resource) TrySeize(e EntityID, key QueueKey) bool {
	if r.load < r.Capacity {
		r.load++
		r.Stats.SeizeCount++
		return true
	}
	if r.queue.Enqueue(e, key) {
		r.Stats.MaxQueueLength = max(r.Stats.MaxQueueLength, r.queue.Len())
	}
	return false
}

// TrySeizeAtFront behaves like TrySeize, but a failed attempt puts e back at
// the head of the queue. Used for entities woken by Release.
func (r *Resource) TrySeizeAtFront(e EntityID, key QueueKey) bool {
	if r.load < r.Capacity {
		r.load++
		r.Stats.SeizeCount++
		return true
	}
	r.queue.PrependFront(e, key)
	r.Stats.MaxQueueLength = max(r.Stats.MaxQueueLength, r.queue.Len())
	return false
}

// Release frees one slot and pops the head of the wait queue, if any.
// The caller must immediately attempt a seize on behalf of the returned entity.
func (r *Resource) Release() (EntityID, bool) {
	if r.load == 0 {
		panic(fmt.Sprintf("Release: resource %q has no seized slot", r.ID))
	}
	r.load--
	return r.queue.Dequeue()
}

// AddBusyTime accumulates service time for a successful seize.
func (r *Resource) AddBusyTime(d float64) {
	r.Stats.BusyTime += d
}

// RecordWait accumulates the queueing delay of a seized entity.
func (r *Resource) RecordWait(w float64) {
	r.Stats.TotalWait += w
}

// advance integrates queue length up to now. Must be called before any
// queue mutation at time now.
func (r *Resource) advance(now float64) {
	if now > r.Stats.lastUpdate {
		r.Stats.queueArea += float64(r.queue.Len()) * (now - r.Stats.lastUpdate)
		r.Stats.lastUpdate = now
	}
}

// Load returns the number of occupied slots.
func (r *Resource) Load() int { return r.load }

// QueueLength returns the number of waiting entities.
func (r *Resource) QueueLength() int { return r.queue.Len() }

// Queue exposes the wait queue for inspection.
func (r *Resource) Queue() *WaitQueue { return r.queue }

// Reset returns the resource to its idle, statistics-free state.
func (r *Resource) Reset() {
	r.load = 0
	r.queue = NewWaitQueue()
	r.Stats = ResourceStats{}
}
