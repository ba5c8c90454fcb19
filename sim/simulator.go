// sim/simulator.go
package sim

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/procsim/procsim/sim/trace"
)

// RunState is the simulator lifecycle: Uninitialized → Running → Drained.
type RunState int

const (
	RunUninitialized RunState = iota
	RunRunning
	RunDrained
)

func (s RunState) String() string {
	switch s {
	case RunUninitialized:
		return "uninitialized"
	case RunRunning:
		return "running"
	case RunDrained:
		return "drained"
	}
	return "unknown"
}

// RunOptions bounds a RunContext call.
type RunOptions struct {
	// MaxEvents stops the run after this many events (0 = unlimited). Guards
	// against models whose rework loops never let entities leave.
	MaxEvents int
}

// Simulator is the core object that holds simulation time, system state, and the event loop.
// One Simulator runs one replication; it is not safe for concurrent use.
type Simulator struct {
	Clock   float64
	Model   *Model
	Seed    int64
	Metrics *Metrics
	// Trace is nil unless EnableTrace was called with a level other than none.
	Trace *trace.SimulationTrace

	state     RunState
	rng       *PartitionedRNG
	queue     *EventQueue
	entities  []Entity
	resources []*Resource
	live      int
	stats     *RunStats
}

// NewSimulator binds a compiled model to a replication seed. The model is
// never mutated and may be shared between simulators.
func NewSimulator(model *Model, seed int64) (*Simulator, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: model is nil", ErrInvalidConfig)
	}
	if !model.compiled {
		return nil, fmt.Errorf("%w: model was not built by ModelConfig.Compile", ErrInvalidConfig)
	}
	return &Simulator{
		Model:   model,
		Seed:    seed,
		Metrics: NewMetrics(),
		queue:   NewEventQueue(),
	}, nil
}

// EnableTrace turns on decision tracing for subsequent runs.
func (sim *Simulator) EnableTrace(cfg trace.TraceConfig) {
	if cfg.Level == trace.TraceLevelNone || cfg.Level == "" {
		sim.Trace = nil
		return
	}
	sim.Trace = trace.NewSimulationTrace(cfg)
}

// Initialize resets the run to time zero and schedules the first arrival.
// Calling it twice in a row leaves the simulator in the same state.
func (sim *Simulator) Initialize() {
	sim.Clock = 0
	sim.rng = NewPartitionedRNG(NewSimulationKey(sim.Seed))
	sim.queue = NewEventQueue()
	sim.entities = nil
	sim.live = 0
	sim.stats = nil
	sim.Metrics = NewMetrics()
	if sim.Trace != nil {
		sim.Trace.Reset()
	}
	sim.resources = make([]*Resource, len(sim.Model.Resources))
	for i, spec := range sim.Model.Resources {
		sim.resources[i] = NewResource(spec)
	}
	sim.queue.Schedule(&ArrivalEvent{time: 0})
	sim.state = RunRunning
	logrus.Debugf("[seed %d] initialized: %d resources, %d steps, horizon %g",
		sim.Seed, len(sim.resources), len(sim.Model.Steps), sim.Model.Horizon)
}

// State returns the lifecycle state.
func (sim *Simulator) State() RunState { return sim.state }

// Step processes one event. It returns false once the event queue is empty,
// at which point the clock is clamped up to the horizon and statistics are final.
func (sim *Simulator) Step() bool {
	switch sim.state {
	case RunUninitialized:
		panic("Step: simulator is not initialized")
	case RunDrained:
		return false
	}
	ev := sim.queue.PopNext()
	if ev == nil {
		sim.finish(false)
		return false
	}
	if ev.Timestamp() < sim.Clock {
		panic(fmt.Sprintf("Step: %s event at %g is before clock %g", ev.Kind(), ev.Timestamp(), sim.Clock))
	}
	sim.Clock = ev.Timestamp()
	sim.Metrics.EventCount++
	ev.Execute(sim)
	return true
}

// Run initializes the simulator if needed and steps until the queue drains.
func (sim *Simulator) Run() *RunStats {
	stats, _ := sim.RunContext(context.Background(), RunOptions{})
	return stats
}

// RunContext is Run with cancellation and an event budget, both checked
// between events only. When the budget is exhausted the run stops early, the
// EventBudgetExceeded warning is set and statistics cover the partial run.
func (sim *Simulator) RunContext(ctx context.Context, opts RunOptions) (*RunStats, error) {
	if sim.state == RunUninitialized {
		sim.Initialize()
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run cancelled at clock %g: %w", sim.Clock, err)
		}
		if opts.MaxEvents > 0 && sim.Metrics.EventCount >= opts.MaxEvents && sim.queue.Len() > 0 {
			sim.Metrics.Warnings.EventBudgetExceeded = true
			logrus.Warnf("[seed %d] event budget of %d exhausted at clock %g with %d entities in the system",
				sim.Seed, opts.MaxEvents, sim.Clock, sim.live)
			sim.finish(true)
			return sim.stats, nil
		}
		if !sim.Step() {
			return sim.stats, nil
		}
	}
}

// Stats returns the run statistics, or nil until the run has drained.
func (sim *Simulator) Stats() *RunStats { return sim.stats }

// Entity returns a copy of the entity behind a handle. Departed entities
// remain addressable with their full history.
func (sim *Simulator) Entity(id EntityID) (Entity, bool) {
	if id < 0 || int(id) >= len(sim.entities) {
		return Entity{}, false
	}
	return sim.entities[id], true
}

// EntityCount returns the number of entities created so far in this run.
func (sim *Simulator) EntityCount() int { return len(sim.entities) }

// Resource returns the live resource behind a handle.
func (sim *Simulator) Resource(id ResourceID) *Resource {
	return sim.resources[id]
}

// LiveCount returns the number of entities in the system (created, not departed).
func (sim *Simulator) LiveCount() int { return sim.live }

// finish closes the run: the clock is clamped up to the horizon on a natural
// drain, queue-length integrals are closed and statistics are computed.
func (sim *Simulator) finish(truncated bool) {
	if !truncated {
		sim.Clock = max(sim.Clock, sim.Model.Horizon)
	}
	for _, r := range sim.resources {
		r.advance(sim.Clock)
	}
	sim.state = RunDrained
	sim.stats = sim.computeStats()
	if sim.Metrics.Warnings.ClampedSamples > 0 {
		logrus.Warnf("[seed %d] %d sampled values were NaN, negative or infinite and clamped to 0",
			sim.Seed, sim.Metrics.Warnings.ClampedSamples)
	}
	logrus.Infof("[seed %d] simulation ended at %g: created %d, departed %d, %d events",
		sim.Seed, sim.Clock, sim.Metrics.Created, sim.Metrics.Departed, sim.Metrics.EventCount)
}

// sample draws a non-negative finite time from d. Anything else is clamped
// to 0 and counted.
func (sim *Simulator) sample(d Distribution, rng *rand.Rand, what string) float64 {
	v := d.Sample(rng)
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		sim.Metrics.Warnings.ClampedSamples++
		logrus.Debugf("[t=%g] clamped %s sample %v to 0", sim.Clock, what, v)
		return 0
	}
	return v
}

func (sim *Simulator) handleArrival() {
	id := EntityID(len(sim.entities))
	sim.entities = append(sim.entities, newEntity(id, sim.Clock))
	ent := &sim.entities[id]
	ent.record(sim.Clock, LabelArrived, "")
	sim.Metrics.Created++
	sim.live++
	sim.sampleAttributes(ent)

	entry := sim.Model.Entry
	ent.Step = entry
	ent.State = EntityTraveling
	sim.queue.Schedule(&StartProcessEvent{time: sim.Clock, Entity: id, Step: entry})
	logrus.Debugf("[t=%g] entity %d arrived", sim.Clock, id)

	if sim.Model.MaxArrivals > 0 && sim.Metrics.Created >= sim.Model.MaxArrivals {
		return
	}
	gap := sim.sample(sim.Model.Arrival, sim.rng.ForSubsystem(SubsystemArrivals), "inter-arrival")
	if next := sim.Clock + gap; next < sim.Model.Horizon {
		sim.queue.Schedule(&ArrivalEvent{time: next})
	}
}

func (sim *Simulator) sampleAttributes(ent *Entity) {
	rng := sim.rng.ForSubsystem(SubsystemAttributes)
	if d := sim.Model.PriorityDist; d != nil {
		v := d.Sample(rng)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			sim.Metrics.Warnings.ClampedSamples++
			v = 0
		}
		ent.Attrs.Priority = int(math.Round(v))
	}
	if d := sim.Model.DueDateDist; d != nil {
		ent.Attrs.DueDate = ent.ArrivalTime + sim.sample(d, rng, "due date offset")
		ent.Attrs.HasDueDate = true
	}
}

// queueKey orders ent in the wait queue of a resource with the given discipline.
func (sim *Simulator) queueKey(ent *Entity, step *ProcessStep, disc Discipline) QueueKey {
	switch disc {
	case DisciplineSPT:
		if !ent.hasPending {
			ent.pendingDuration = sim.sample(step.Duration, sim.rng.ForSubsystem(SubsystemStep(step.ID)), "duration")
			ent.hasPending = true
		}
		return QueueKey(ent.pendingDuration)
	case DisciplineEDD:
		if !ent.Attrs.HasDueDate {
			return QueueKey(math.Inf(1))
		}
		return QueueKey(ent.Attrs.DueDate)
	case DisciplinePriority:
		return QueueKey(-ent.Attrs.Priority)
	}
	return 0
}

func (sim *Simulator) handleStartProcess(e *StartProcessEvent) {
	ent := &sim.entities[e.Entity]
	step := &sim.Model.Steps[e.Step]
	res := sim.resources[step.Resource]
	res.advance(sim.Clock)

	key := sim.queueKey(ent, step, res.Discipline)
	var seized bool
	if e.Woken {
		seized = res.TrySeizeAtFront(e.Entity, key)
	} else {
		seized = res.TrySeize(e.Entity, key)
	}
	if sim.Trace != nil {
		sim.Trace.RecordService(trace.ServiceRecord{
			EntityID:    int(e.Entity),
			Clock:       sim.Clock,
			Step:        step.ID,
			Resource:    res.ID,
			Seized:      seized,
			Woken:       e.Woken,
			QueueLength: res.QueueLength(),
		})
	}

	if !seized {
		if !ent.inWait {
			ent.inWait = true
			ent.waitStart = sim.Clock
		}
		ent.State = EntityWaiting
		ent.Resource = NoResource
		ent.record(sim.Clock, LabelQueued, res.ID)
		logrus.Debugf("[t=%g] entity %d queued at %s (queue %d)", sim.Clock, e.Entity, res.ID, res.QueueLength())
		return
	}

	if ent.inWait {
		res.RecordWait(sim.Clock - ent.waitStart)
		ent.inWait = false
	} else {
		res.RecordWait(0)
	}
	var d float64
	if ent.hasPending {
		d = ent.pendingDuration
		ent.hasPending = false
	} else {
		d = sim.sample(step.Duration, sim.rng.ForSubsystem(SubsystemStep(step.ID)), "duration")
	}
	res.AddBusyTime(d)
	ent.State = EntityProcessing
	ent.Resource = step.Resource
	ent.record(sim.Clock, LabelSeized, res.ID)
	sim.queue.Schedule(&EndProcessEvent{time: sim.Clock + d, Entity: e.Entity, Step: e.Step})
}

func (sim *Simulator) handleEndProcess(e *EndProcessEvent) {
	ent := &sim.entities[e.Entity]
	step := &sim.Model.Steps[e.Step]
	res := sim.resources[step.Resource]
	res.advance(sim.Clock)

	if woken, ok := res.Release(); ok {
		w := &sim.entities[woken]
		w.State = EntityTraveling
		w.record(sim.Clock, LabelWoken, res.ID)
		sim.queue.Schedule(&StartProcessEvent{time: sim.Clock, Entity: woken, Step: w.Step, Woken: true})
	}
	ent.Resource = NoResource
	ent.record(sim.Clock, LabelReleased, res.ID)

	next, prob := sim.pickRoute(step)
	if sim.Trace != nil {
		chosen := ""
		if next != NoStep {
			chosen = sim.Model.Steps[next].ID
		}
		sim.Trace.RecordRouting(trace.RoutingRecord{
			EntityID:    int(e.Entity),
			Clock:       sim.Clock,
			FromStep:    step.ID,
			ChosenStep:  chosen,
			Probability: prob,
		})
	}

	if next == NoStep {
		sim.depart(ent)
		return
	}
	delay := 0.0
	if step.Travel != nil {
		delay = sim.sample(step.Travel, sim.rng.ForSubsystem(SubsystemTravel), "travel")
	}
	ent.Step = next
	ent.State = EntityTraveling
	ent.record(sim.Clock, LabelMoved, sim.Model.Steps[next].ID)
	sim.queue.Schedule(&StartProcessEvent{time: sim.Clock + delay, Entity: e.Entity, Step: next})
}

// pickRoute returns the successor of step and the probability of that branch.
// The routing stream is consumed only when there is a real choice.
func (sim *Simulator) pickRoute(step *ProcessStep) (StepID, float64) {
	switch len(step.Routes) {
	case 0:
		return NoStep, 1
	case 1:
		return step.Routes[0].Next, step.Routes[0].Probability
	}
	u := sim.rng.ForSubsystem(SubsystemRouting).Float64()
	acc := 0.0
	for _, r := range step.Routes {
		acc += r.Probability
		if u < acc {
			return r.Next, r.Probability
		}
	}
	last := step.Routes[len(step.Routes)-1]
	return last.Next, last.Probability
}

func (sim *Simulator) depart(ent *Entity) {
	ent.State = EntityDeparted
	ent.DepartTime = sim.Clock
	ent.Step = NoStep
	ent.record(sim.Clock, LabelDeparted, "")
	sim.Metrics.Departed++
	sim.Metrics.CycleTimes = append(sim.Metrics.CycleTimes, ent.CycleTime())
	sim.live--
	logrus.Debugf("[t=%g] entity %d departed after %g", sim.Clock, ent.ID, ent.CycleTime())
}
