package sim

// StepID is a dense handle into Model.Steps.
type StepID int

// ResourceID is a dense handle into Model.Resources and the simulator's resource arena.
type ResourceID int

// NoStep and NoResource mark an absent reference.
const (
	NoStep     StepID     = -1
	NoResource ResourceID = -1
)

// Model is a compiled, validated ModelConfig. It is immutable once built and
// may be shared by any number of simulators (one per replication).
type Model struct {
	Horizon     float64
	MaxArrivals int
	Entry       StepID
	Arrival     Distribution
	// Optional attribute samplers; nil leaves the attribute unset.
	PriorityDist Distribution
	DueDateDist  Distribution
	Resources    []ResourceSpec
	Steps        []ProcessStep

	resourceIndex map[string]ResourceID
	stepIndex     map[string]StepID
	compiled      bool
}

// ResourceSpec is the static description a Resource is built from on every Initialize.
type ResourceSpec struct {
	ID         string
	Name       string
	Capacity   int
	Discipline Discipline
}

// ProcessStep binds one resource and one duration distribution, linked to
// successor steps or to departure.
type ProcessStep struct {
	ID       string
	Name     string
	Resource ResourceID
	Duration Distribution
	Travel   Distribution // nil = successor starts immediately
	Routes   []Route      // empty = departure
}

// Route is one outgoing branch. Next == NoStep means departure.
type Route struct {
	Next        StepID
	Probability float64
}

// IsTerminal reports whether entities completing this step always depart.
func (s *ProcessStep) IsTerminal() bool {
	return len(s.Routes) == 0
}

// StepByID resolves a step id to its handle.
func (m *Model) StepByID(id string) (StepID, bool) {
	h, ok := m.stepIndex[id]
	return h, ok
}

// ResourceByID resolves a resource id to its handle.
func (m *Model) ResourceByID(id string) (ResourceID, bool) {
	h, ok := m.resourceIndex[id]
	return h, ok
}
