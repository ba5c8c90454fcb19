package stats

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/procsim/procsim/sim"
)

const instrumentationName = "github.com/procsim/procsim/sim/stats"

// The global providers delegate to whatever telemetry.Init installs later,
// so package-level handles are safe.
var tracer = otel.Tracer(instrumentationName)

type instruments struct {
	replications metric.Int64Counter
	events       metric.Int64Counter
	clamped      metric.Int64Counter
	wallTime     metric.Float64Histogram
	cycleTime    metric.Float64Histogram
}

var (
	instOnce sync.Once
	inst     *instruments
)

func getInstruments() *instruments {
	instOnce.Do(func() {
		inst = newInstruments(otel.Meter(instrumentationName))
	})
	return inst
}

// newInstruments creates the batch instruments. An instrument that fails to
// register is left nil and skipped; telemetry never fails a run.
func newInstruments(meter metric.Meter) *instruments {
	in := &instruments{}
	var err error
	if in.replications, err = meter.Int64Counter("procsim.replications",
		metric.WithDescription("Completed replications")); err != nil {
		logrus.Warnf("telemetry: %v", err)
	}
	if in.events, err = meter.Int64Counter("procsim.events",
		metric.WithDescription("Events processed across replications")); err != nil {
		logrus.Warnf("telemetry: %v", err)
	}
	if in.clamped, err = meter.Int64Counter("procsim.clamped_samples",
		metric.WithDescription("Sampled values clamped to zero")); err != nil {
		logrus.Warnf("telemetry: %v", err)
	}
	if in.wallTime, err = meter.Float64Histogram("procsim.replication.duration",
		metric.WithDescription("Wall-clock time per replication"), metric.WithUnit("s")); err != nil {
		logrus.Warnf("telemetry: %v", err)
	}
	if in.cycleTime, err = meter.Float64Histogram("procsim.avg_cycle_time",
		metric.WithDescription("Average simulated cycle time per replication")); err != nil {
		logrus.Warnf("telemetry: %v", err)
	}
	return in
}

func (in *instruments) record(ctx context.Context, rs *sim.RunStats, wall time.Duration) {
	if in.replications != nil {
		in.replications.Add(ctx, 1)
	}
	if in.events != nil {
		in.events.Add(ctx, int64(rs.EventCount))
	}
	if in.clamped != nil && rs.Warnings.ClampedSamples > 0 {
		in.clamped.Add(ctx, int64(rs.Warnings.ClampedSamples))
	}
	if in.wallTime != nil {
		in.wallTime.Record(ctx, wall.Seconds())
	}
	if in.cycleTime != nil {
		in.cycleTime.Record(ctx, rs.AvgCycleTime)
	}
}
