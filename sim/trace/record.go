// Package trace provides decision-trace recording for process-flow analysis.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// ServiceRecord captures a single seize attempt at a resource.
type ServiceRecord struct {
	EntityID    int
	Clock       float64
	Step        string
	Resource    string
	Seized      bool
	Woken       bool // attempt issued by a release on the entity's behalf
	QueueLength int  // queue length after the attempt
}

// RoutingRecord captures the successor chosen for an entity leaving a step.
type RoutingRecord struct {
	EntityID    int
	Clock       float64
	FromStep    string
	ChosenStep  string  // empty = departure
	Probability float64 // probability of the chosen branch
}
