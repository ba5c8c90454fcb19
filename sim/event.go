package sim

import "github.com/sirupsen/logrus"

// EventKind tags the three event types that drive the kernel.
type EventKind int

const (
	EventArrival EventKind = iota
	EventStartProcess
	EventEndProcess
)

func (k EventKind) String() string {
	switch k {
	case EventArrival:
		return "arrival"
	case EventStartProcess:
		return "start-process"
	case EventEndProcess:
		return "end-process"
	}
	return "unknown"
}

// Event defines the interface for all simulation events.
// Payloads reference entities, steps and resources by handle, never by
// pointer, so the queue holds no ownership over the data model.
type Event interface {
	Timestamp() float64
	Kind() EventKind
	Execute(*Simulator)
}

// ArrivalEvent admits a new entity into the system.
type ArrivalEvent struct {
	time float64
}

func (e *ArrivalEvent) Timestamp() float64 { return e.time }
func (e *ArrivalEvent) Kind() EventKind    { return EventArrival }

// Execute creates the entity, routes it to the entry step and schedules the next arrival.
func (e *ArrivalEvent) Execute(sim *Simulator) {
	logrus.Tracef("<< Arrival at %g", e.time)
	sim.handleArrival()
}

// StartProcessEvent asks the step's resource to serve an entity.
type StartProcessEvent struct {
	time   float64
	Entity EntityID
	Step   StepID
	// Woken marks a request issued on the entity's behalf by Release; a failed
	// seize re-queues it at the head instead of the tail.
	Woken bool
}

func (e *StartProcessEvent) Timestamp() float64 { return e.time }
func (e *StartProcessEvent) Kind() EventKind    { return EventStartProcess }

// Execute attempts the seize and, on success, schedules the matching EndProcessEvent.
func (e *StartProcessEvent) Execute(sim *Simulator) {
	logrus.Tracef("<< StartProcess: entity %d step %d at %g", e.Entity, e.Step, e.time)
	sim.handleStartProcess(e)
}

// EndProcessEvent completes service of an entity at a step.
type EndProcessEvent struct {
	time   float64
	Entity EntityID
	Step   StepID
}

func (e *EndProcessEvent) Timestamp() float64 { return e.time }
func (e *EndProcessEvent) Kind() EventKind    { return EventEndProcess }

// Execute releases the resource, wakes the next waiter and moves the entity on.
func (e *EndProcessEvent) Execute(sim *Simulator) {
	logrus.Tracef("<< EndProcess: entity %d step %d at %g", e.Entity, e.Step, e.time)
	sim.handleEndProcess(e)
}
