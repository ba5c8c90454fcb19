package stats

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procsim/procsim/sim"
)

func dist(kind sim.DistKind, params map[string]float64) sim.DistSpec {
	return sim.DistSpec{Kind: kind, Params: params}
}

// jobShop is two stations in series with exponential arrivals and a 10% rework loop.
func jobShop(t *testing.T) *sim.Model {
	t.Helper()
	cfg := &sim.ModelConfig{
		Horizon: 240,
		Entry:   "cut",
		Arrival: dist(sim.KindExponential, map[string]float64{"mean": 6}),
		Resources: []sim.ResourceConfig{
			{ID: "saw", Capacity: 1},
			{ID: "drill", Capacity: 2},
		},
		Steps: []sim.ProcessStepConfig{
			{ID: "cut", Resource: "saw", Duration: dist(sim.KindExponential, map[string]float64{"mean": 4}), Next: "bore"},
			{
				ID: "bore", Resource: "drill",
				Duration: dist(sim.KindTriangular, map[string]float64{"min": 3, "mode": 6, "max": 10}),
				Routes:   []sim.RouteConfig{{Step: "cut", Probability: 0.1}, {Step: "", Probability: 0.9}},
			},
		},
	}
	m, err := cfg.Compile()
	require.NoError(t, err)
	return m
}

func TestRunReplications_SeedsAndOrder(t *testing.T) {
	// GIVEN 12 replications on 4 workers
	agg, err := RunReplications(context.Background(), jobShop(t), 12, 100, Options{Workers: 4})
	require.NoError(t, err)

	// THEN run i used seed 100+i and results are in index order
	require.Len(t, agg.Runs, 12)
	for i, r := range agg.Runs {
		require.NotNil(t, r)
		assert.Equal(t, int64(100+i), r.Seed)
		assert.Equal(t, r.Created, r.Departed)
	}
	assert.Equal(t, 12, agg.Replications)
	assert.Equal(t, int64(100), agg.BaseSeed)
	assert.NotEmpty(t, agg.BatchID)
}

func TestRunReplications_ParallelMatchesSequential(t *testing.T) {
	model := jobShop(t)

	seq, err := RunReplications(context.Background(), model, 8, 7, Options{Workers: 1})
	require.NoError(t, err)
	par, err := RunReplications(context.Background(), model, 8, 7, Options{Workers: 8})
	require.NoError(t, err)

	assert.Equal(t, seq.Runs, par.Runs)
	assert.Equal(t, seq.Metrics, par.Metrics)
	assert.Equal(t, seq.Resources, par.Resources)
	assert.NotEqual(t, seq.BatchID, par.BatchID)
}

func TestRunReplications_MetricKeys(t *testing.T) {
	agg, err := RunReplications(context.Background(), jobShop(t), 3, 1, Options{})
	require.NoError(t, err)

	for _, name := range []string{MetricAvgCycleTime, MetricCycleTimeP95, MetricThroughput, MetricCreated, MetricDeparted, MetricElapsedTime} {
		s, ok := agg.Metrics[name]
		if assert.True(t, ok, name) {
			assert.Equal(t, 3, s.N, name)
		}
	}
	for _, id := range []string{"saw", "drill"} {
		res, ok := agg.Resources[id]
		require.True(t, ok, id)
		for _, name := range []string{MetricUtilization, MetricAvgWaitTime, MetricAvgQueueLength, MetricMaxQueueLength} {
			assert.Contains(t, res, name)
		}
		assert.LessOrEqual(t, res[MetricUtilization].Max, 1.0)
	}
}

func TestRunReplications_CIWidthDecreases(t *testing.T) {
	model := jobShop(t)

	small, err := RunReplications(context.Background(), model, 10, 1, Options{})
	require.NoError(t, err)
	large, err := RunReplications(context.Background(), model, 100, 1, Options{})
	require.NoError(t, err)

	assert.Less(t, large.Metrics[MetricAvgCycleTime].HalfWidth95, small.Metrics[MetricAvgCycleTime].HalfWidth95)
	assert.Less(t, large.Metrics[MetricThroughput].HalfWidth95, small.Metrics[MetricThroughput].HalfWidth95)
}

func TestRunReplications_ConfigErrorFailsBatch(t *testing.T) {
	_, err := RunReplications(context.Background(), &sim.Model{}, 5, 1, Options{Workers: 2})
	assert.ErrorIs(t, err, sim.ErrInvalidConfig)

	_, err = RunReplications(context.Background(), nil, 5, 1, Options{})
	assert.ErrorIs(t, err, sim.ErrInvalidConfig)
}

func TestRunReplications_RejectsZeroReplications(t *testing.T) {
	_, err := RunReplications(context.Background(), jobShop(t), 0, 1, Options{})
	assert.Error(t, err)
}

func TestRunReplications_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RunReplications(ctx, jobShop(t), 4, 1, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunReplications_WarningsAreSummedNotFatal(t *testing.T) {
	// GIVEN a duration that is often negative and a tight event budget
	cfg := &sim.ModelConfig{
		Horizon:   100,
		Entry:     "serve",
		Arrival:   dist(sim.KindExponential, map[string]float64{"mean": 2}),
		Resources: []sim.ResourceConfig{{ID: "desk", Capacity: 1}},
		Steps: []sim.ProcessStepConfig{
			{ID: "serve", Resource: "desk", Duration: dist(sim.KindNormal, map[string]float64{"mean": 1, "stddev": 20})},
		},
	}
	model, err := cfg.Compile()
	require.NoError(t, err)

	// WHEN replicated
	agg, err := RunReplications(context.Background(), model, 4, 9, Options{MaxEvents: 20})

	// THEN the batch succeeds with totals over all runs
	require.NoError(t, err)
	total, budget := 0, 0
	for _, r := range agg.Runs {
		total += r.Warnings.ClampedSamples
		if r.Warnings.EventBudgetExceeded {
			budget++
		}
	}
	assert.Positive(t, total)
	assert.Equal(t, total, agg.Warnings.ClampedSamples)
	assert.Equal(t, budget, agg.Warnings.BudgetExceededRuns)
	assert.Equal(t, 4, budget)
}

func TestAggregate_Empty(t *testing.T) {
	agg := Aggregate(nil)
	assert.Equal(t, 0, agg.Replications)
	assert.Empty(t, agg.Metrics)
}
