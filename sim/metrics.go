// Tracks run-level and per-resource performance metrics such as cycle time,
// throughput, utilization and queueing.

package sim

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Warnings counts numeric anomalies and guard trips. They never abort a run.
type Warnings struct {
	ClampedSamples      int  `json:"clamped_samples"`
	EventBudgetExceeded bool `json:"event_budget_exceeded"`
}

// Add accumulates other into w.
func (w *Warnings) Add(other Warnings) {
	w.ClampedSamples += other.ClampedSamples
	w.EventBudgetExceeded = w.EventBudgetExceeded || other.EventBudgetExceeded
}

// Metrics holds the raw counters a run accumulates while it executes.
// Invariant: Departed <= Created at every step, equal once drained.
type Metrics struct {
	Created    int
	Departed   int
	EventCount int
	CycleTimes []float64 // one per departed entity, in departure order
	Warnings   Warnings
}

// NewMetrics returns zeroed counters.
func NewMetrics() *Metrics {
	return &Metrics{CycleTimes: make([]float64, 0)}
}

// CycleTimeSummary captures the distribution of cycle times in one run.
type CycleTimeSummary struct {
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// NewCycleTimeSummary computes a summary from raw values.
// Returns the zero value for empty input.
func NewCycleTimeSummary(values []float64) CycleTimeSummary {
	if len(values) == 0 {
		return CycleTimeSummary{}
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return CycleTimeSummary{
		Mean:  stat.Mean(sorted, nil),
		P50:   stat.Quantile(0.50, stat.LinInterp, sorted, nil),
		P95:   stat.Quantile(0.95, stat.LinInterp, sorted, nil),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Count: len(sorted),
	}
}

// ResourceMetrics is the end-of-run view of one resource.
type ResourceMetrics struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Capacity       int     `json:"capacity"`
	Utilization    float64 `json:"utilization"` // busy / (capacity · elapsed), capped at 1
	BusyTime       float64 `json:"busy_time"`
	SeizeCount     int     `json:"seize_count"`
	AvgWaitTime    float64 `json:"avg_wait_time"`
	AvgQueueLength float64 `json:"avg_queue_length"` // time-weighted
	MaxQueueLength int     `json:"max_queue_length"`
}

// RunStats is the result of one replication.
type RunStats struct {
	Seed         int64             `json:"seed"`
	AvgCycleTime float64           `json:"avg_cycle_time"`
	CycleTime    CycleTimeSummary  `json:"cycle_time"`
	Throughput   float64           `json:"throughput"` // departed per unit of simulated time
	Created      int               `json:"created"`
	Departed     int               `json:"departed"`
	ElapsedTime  float64           `json:"elapsed_time"`
	EventCount   int               `json:"event_count"`
	Resources    []ResourceMetrics `json:"resources"`
	Warnings     Warnings          `json:"warnings"`
}

// ResourceByID finds the metrics of one resource.
func (rs *RunStats) ResourceByID(id string) (ResourceMetrics, bool) {
	for _, r := range rs.Resources {
		if r.ID == id {
			return r, true
		}
	}
	return ResourceMetrics{}, false
}

func (sim *Simulator) computeStats() *RunStats {
	m := sim.Metrics
	elapsed := sim.Clock
	rs := &RunStats{
		Seed:        sim.Seed,
		CycleTime:   NewCycleTimeSummary(m.CycleTimes),
		Created:     m.Created,
		Departed:    m.Departed,
		ElapsedTime: elapsed,
		EventCount:  m.EventCount,
		Resources:   make([]ResourceMetrics, len(sim.resources)),
		Warnings:    m.Warnings,
	}
	rs.AvgCycleTime = rs.CycleTime.Mean
	if elapsed > 0 {
		rs.Throughput = float64(m.Departed) / elapsed
	}
	for i, r := range sim.resources {
		rm := ResourceMetrics{
			ID:             r.ID,
			Name:           r.Name,
			Capacity:       r.Capacity,
			BusyTime:       r.Stats.BusyTime,
			SeizeCount:     r.Stats.SeizeCount,
			MaxQueueLength: r.Stats.MaxQueueLength,
		}
		if elapsed > 0 {
			rm.Utilization = math.Min(1, r.Stats.BusyTime/(float64(r.Capacity)*elapsed))
			rm.AvgQueueLength = r.Stats.queueArea / elapsed
		}
		if r.Stats.SeizeCount > 0 {
			rm.AvgWaitTime = r.Stats.TotalWait / float64(r.Stats.SeizeCount)
		}
		rs.Resources[i] = rm
	}
	return rs
}
