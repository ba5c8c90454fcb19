// Package stats runs independent replications of a compiled model in
// parallel and summarises their metrics with confidence intervals.
package stats

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/procsim/procsim/sim"
)

// Run-level metric names.
const (
	MetricAvgCycleTime = "avg_cycle_time"
	MetricCycleTimeP95 = "cycle_time_p95"
	MetricThroughput   = "throughput"
	MetricCreated      = "created"
	MetricDeparted     = "departed"
	MetricElapsedTime  = "elapsed_time"
)

// Per-resource metric names.
const (
	MetricUtilization    = "utilization"
	MetricAvgWaitTime    = "avg_wait_time"
	MetricAvgQueueLength = "avg_queue_length"
	MetricMaxQueueLength = "max_queue_length"
)

// Options tunes a replication batch.
type Options struct {
	// Workers bounds the number of concurrent replications. <= 0 means GOMAXPROCS.
	Workers int
	// MaxEvents is the per-replication event budget (0 = unlimited).
	MaxEvents int
}

// Warnings totals numeric anomalies over a batch.
type Warnings struct {
	ClampedSamples     int `json:"clamped_samples"`
	BudgetExceededRuns int `json:"budget_exceeded_runs"`
}

// AggregateStats is the result of a replication batch.
type AggregateStats struct {
	BatchID      string                        `json:"batch_id"`
	Replications int                           `json:"replications"`
	BaseSeed     int64                         `json:"base_seed"`
	Metrics      map[string]Summary            `json:"metrics"`
	Resources    map[string]map[string]Summary `json:"resources"` // resource id → metric → summary
	Warnings     Warnings                      `json:"warnings"`
	Runs         []*sim.RunStats               `json:"runs"` // replication-index order
}

// RunReplications runs n independent replications of model. Replication i
// uses seed baseSeed+i and its own simulator. Results are reported in index
// order whatever order the workers finish in. The first error (a
// configuration error or ctx cancellation) cancels the remaining
// replications and fails the batch; numeric warnings never do.
func RunReplications(ctx context.Context, model *sim.Model, n int, baseSeed int64, opts Options) (*AggregateStats, error) {
	if n < 1 {
		return nil, fmt.Errorf("replications must be >= 1, got %d", n)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, n)

	batchID := uuid.New().String()
	ctx, span := tracer.Start(ctx, "stats.RunReplications", trace.WithAttributes(
		attribute.String("procsim.batch_id", batchID),
		attribute.Int("procsim.replications", n),
		attribute.Int64("procsim.base_seed", baseSeed),
		attribute.Int("procsim.workers", workers),
	))
	defer span.End()

	logrus.Infof("[batch %s] running %d replications on %d workers (seeds %d..%d)",
		batchID, n, workers, baseSeed, baseSeed+int64(n)-1)

	inst := getInstruments()
	results := make([]*sim.RunStats, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			seed := baseSeed + int64(i)
			s, err := sim.NewSimulator(model, seed)
			if err != nil {
				return fmt.Errorf("replication %d: %w", i, err)
			}
			start := time.Now()
			rs, err := s.RunContext(gctx, sim.RunOptions{MaxEvents: opts.MaxEvents})
			if err != nil {
				return fmt.Errorf("replication %d (seed %d): %w", i, seed, err)
			}
			inst.record(gctx, rs, time.Since(start))
			results[i] = rs
			logrus.Debugf("[batch %s] replication %d done: departed %d, avg cycle %g",
				batchID, i, rs.Departed, rs.AvgCycleTime)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, sim.ErrInvalidConfig) {
			logrus.Errorf("[batch %s] aborted: %v", batchID, err)
		}
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("batch %s cancelled: %w", batchID, err)
	}

	agg := Aggregate(results)
	agg.BatchID = batchID
	agg.BaseSeed = baseSeed
	if agg.Warnings.ClampedSamples > 0 || agg.Warnings.BudgetExceededRuns > 0 {
		logrus.Warnf("[batch %s] %d clamped samples, %d runs hit the event budget",
			batchID, agg.Warnings.ClampedSamples, agg.Warnings.BudgetExceededRuns)
	}
	return agg, nil
}

// Aggregate summarises already-completed runs. Runs keep their order.
func Aggregate(runs []*sim.RunStats) *AggregateStats {
	agg := &AggregateStats{
		Replications: len(runs),
		Metrics:      make(map[string]Summary),
		Resources:    make(map[string]map[string]Summary),
		Runs:         runs,
	}
	if len(runs) == 0 {
		return agg
	}

	column := func(f func(*sim.RunStats) float64) []float64 {
		out := make([]float64, len(runs))
		for i, r := range runs {
			out[i] = f(r)
		}
		return out
	}
	agg.Metrics[MetricAvgCycleTime] = Summarize(column(func(r *sim.RunStats) float64 { return r.AvgCycleTime }))
	agg.Metrics[MetricCycleTimeP95] = Summarize(column(func(r *sim.RunStats) float64 { return r.CycleTime.P95 }))
	agg.Metrics[MetricThroughput] = Summarize(column(func(r *sim.RunStats) float64 { return r.Throughput }))
	agg.Metrics[MetricCreated] = Summarize(column(func(r *sim.RunStats) float64 { return float64(r.Created) }))
	agg.Metrics[MetricDeparted] = Summarize(column(func(r *sim.RunStats) float64 { return float64(r.Departed) }))
	agg.Metrics[MetricElapsedTime] = Summarize(column(func(r *sim.RunStats) float64 { return r.ElapsedTime }))

	// Every run of one model reports the same resources in the same order.
	for j, res := range runs[0].Resources {
		resource := func(f func(sim.ResourceMetrics) float64) []float64 {
			return column(func(r *sim.RunStats) float64 { return f(r.Resources[j]) })
		}
		agg.Resources[res.ID] = map[string]Summary{
			MetricUtilization:    Summarize(resource(func(m sim.ResourceMetrics) float64 { return m.Utilization })),
			MetricAvgWaitTime:    Summarize(resource(func(m sim.ResourceMetrics) float64 { return m.AvgWaitTime })),
			MetricAvgQueueLength: Summarize(resource(func(m sim.ResourceMetrics) float64 { return m.AvgQueueLength })),
			MetricMaxQueueLength: Summarize(resource(func(m sim.ResourceMetrics) float64 { return float64(m.MaxQueueLength) })),
		}
	}

	for _, r := range runs {
		agg.Warnings.ClampedSamples += r.Warnings.ClampedSamples
		if r.Warnings.EventBudgetExceeded {
			agg.Warnings.BudgetExceededRuns++
		}
	}
	return agg
}
