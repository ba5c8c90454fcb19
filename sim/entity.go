// Defines the Entity struct that models a unit of work flowing through the model.
// Tracks arrival time, current location, typed attributes and an append-only history.

package sim

import (
	"fmt"
	"math"
)

// EntityID is a dense handle into the simulator's entity arena. Handles are
// never reused within a run; departed entities stay in the arena so their
// history remains available.
type EntityID int

// EntityState represents the lifecycle state of an entity.
type EntityState string

const (
	EntityCreated    EntityState = "created"
	EntityTraveling  EntityState = "traveling"
	EntityWaiting    EntityState = "waiting"
	EntityProcessing EntityState = "processing"
	EntityDeparted   EntityState = "departed"
)

// History labels.
const (
	LabelArrived  = "arrived"
	LabelQueued   = "queued"
	LabelWoken    = "woken"
	LabelSeized   = "seized"
	LabelReleased = "released"
	LabelMoved    = "moved"
	LabelDeparted = "departed"
)

// HistoryRecord is one (time, event-label, location) entry.
type HistoryRecord struct {
	Time     float64 `json:"time"`
	Label    string  `json:"label"`
	Location string  `json:"location"`
}

// Attributes is the model-declared attribute schema. Custom holds
// genuinely open-ended per-model extensions.
type Attributes struct {
	Priority   int                `json:"priority"`
	DueDate    float64            `json:"due_date,omitempty"`
	HasDueDate bool               `json:"has_due_date,omitempty"`
	Custom     map[string]float64 `json:"custom,omitempty"`
}

// Entity models a single unit of work.
type Entity struct {
	ID          EntityID
	ArrivalTime float64
	DepartTime  float64 // valid once State == EntityDeparted
	Step        StepID
	Resource    ResourceID // set only while processing
	State       EntityState
	Attrs       Attributes
	History     []HistoryRecord

	waitStart       float64 // clock at which the current wait began
	inWait          bool    // queued, or woken and not yet seized
	pendingDuration float64 // pre-sampled duration for SPT queues
	hasPending      bool
}

func newEntity(id EntityID, now float64) Entity {
	return Entity{
		ID:          id,
		ArrivalTime: now,
		Step:        NoStep,
		Resource:    NoResource,
		State:       EntityCreated,
	}
}

func (e *Entity) record(now float64, label, location string) {
	e.History = append(e.History, HistoryRecord{Time: now, Label: label, Location: location})
}

// CycleTime returns departure minus arrival, or NaN for an entity still in the system.
func (e *Entity) CycleTime() float64 {
	if e.State != EntityDeparted {
		return math.NaN()
	}
	return e.DepartTime - e.ArrivalTime
}

func (e Entity) String() string {
	return fmt.Sprintf("Entity: (ID: %d, State: %s, Step: %d, ArrivalTime: %g)", e.ID, e.State, e.Step, e.ArrivalTime)
}
