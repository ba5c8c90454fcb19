package sim

// EntitySnapshot is a read-only view of one live entity.
type EntitySnapshot struct {
	ID       EntityID    `json:"id"`
	State    EntityState `json:"state"`
	Step     string      `json:"step,omitempty"`
	Resource string      `json:"resource,omitempty"`
}

// ResourceSnapshot is a read-only view of one resource.
type ResourceSnapshot struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Load        int        `json:"load"`
	Capacity    int        `json:"capacity"`
	QueueLength int        `json:"queue_length"`
	Queue       []EntityID `json:"queue,omitempty"`
}

// Snapshot is a copy of the live state, for visualisation and debugging.
// Nothing in it aliases simulator memory.
type Snapshot struct {
	Clock     float64            `json:"clock"`
	State     string             `json:"state"`
	Entities  []EntitySnapshot   `json:"entities"`
	Resources []ResourceSnapshot `json:"resources"`
}

// Snapshot copies the current state. Departed entities are omitted.
func (sim *Simulator) Snapshot() Snapshot {
	snap := Snapshot{
		Clock:     sim.Clock,
		State:     sim.state.String(),
		Entities:  make([]EntitySnapshot, 0, sim.live),
		Resources: make([]ResourceSnapshot, 0, len(sim.resources)),
	}
	for i := range sim.entities {
		e := &sim.entities[i]
		if e.State == EntityDeparted {
			continue
		}
		es := EntitySnapshot{ID: e.ID, State: e.State}
		if e.Step != NoStep {
			es.Step = sim.Model.Steps[e.Step].ID
		}
		if e.Resource != NoResource {
			es.Resource = sim.resources[e.Resource].ID
		}
		snap.Entities = append(snap.Entities, es)
	}
	for _, r := range sim.resources {
		snap.Resources = append(snap.Resources, ResourceSnapshot{
			ID:          r.ID,
			Name:        r.Name,
			Load:        r.Load(),
			Capacity:    r.Capacity,
			QueueLength: r.QueueLength(),
			Queue:       r.Queue().Items(),
		})
	}
	return snap
}
