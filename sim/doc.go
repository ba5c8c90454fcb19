// Package sim provides the core discrete-event simulation engine for procsim.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - entity.go: Entity lifecycle (created → traveling → waiting → processing → departed)
//   - event.go: Event types that drive the simulation (Arrival, StartProcess, EndProcess)
//   - simulator.go: The event loop and the three event handlers
//
// # Architecture
//
// A ModelConfig (usually parsed from YAML) is compiled once into an immutable
// Model: every string reference is resolved to a dense integer handle and
// every distribution spec into a Distribution. A Simulator binds one Model to
// one seed and owns all mutable state for a single replication: the clock,
// the EventQueue, the entity arena and one Resource per ResourceSpec.
//
// Sub-packages:
//   - sim/stats/: Parallel replications and confidence intervals
//   - sim/trace/: Decision trace recording
//
// # Randomness
//
// Generators are never global. PartitionedRNG derives one stream per
// subsystem (arrivals, routing, travel, attributes, one per step) from the
// replication seed, so the same seed reproduces a run bit for bit and
// editing one step's distribution leaves the other streams untouched.
package sim
