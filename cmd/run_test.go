package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procsim/procsim/internal/store"
	"github.com/procsim/procsim/sim"
	"github.com/procsim/procsim/sim/stats"
)

const twoStationModel = "../examples/two-station.yaml"

func TestExecuteRun_SingleRunPrintsRunStats(t *testing.T) {
	// GIVEN the two-station example and a fixed seed
	var stdout, diag bytes.Buffer
	opts := runOptions{ConfigPath: twoStationModel, Seed: 42, Replications: 1, TraceLevel: "events"}

	// WHEN run
	err := executeRun(context.Background(), opts, &stdout, &diag)

	// THEN stdout holds RunStats JSON and the trace summary goes to diag
	require.NoError(t, err)
	var rs sim.RunStats
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &rs))
	assert.Equal(t, int64(42), rs.Seed)
	assert.Equal(t, rs.Created, rs.Departed)
	assert.GreaterOrEqual(t, rs.AvgCycleTime, 8.0)
	assert.Len(t, rs.Resources, 2)
	assert.Contains(t, diag.String(), "Trace Summary")
}

func TestExecuteRun_SameSeedSameOutput(t *testing.T) {
	var a, b bytes.Buffer
	opts := runOptions{ConfigPath: "../examples/job-shop.yaml", Seed: 3, Replications: 1}
	require.NoError(t, executeRun(context.Background(), opts, &a, &bytes.Buffer{}))
	require.NoError(t, executeRun(context.Background(), opts, &b, &bytes.Buffer{}))
	assert.Equal(t, a.String(), b.String())
}

func TestExecuteRun_ReplicationsSavedToResultsDB(t *testing.T) {
	// GIVEN a batch of 5 replications and a results database
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "results.db")
	out := filepath.Join(dir, "out.json")
	opts := runOptions{
		ConfigPath:   twoStationModel,
		Seed:         10,
		Replications: 5,
		Workers:      2,
		ResultsDB:    dbPath,
		OutputPath:   out,
	}

	// WHEN run
	require.NoError(t, executeRun(context.Background(), opts, &bytes.Buffer{}, &bytes.Buffer{}))

	// THEN the output file holds the aggregate
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var agg stats.AggregateStats
	require.NoError(t, json.Unmarshal(data, &agg))
	assert.Equal(t, 5, agg.Replications)
	assert.Equal(t, 5, agg.Metrics[stats.MetricAvgCycleTime].N)
	require.Len(t, agg.Runs, 5)
	assert.Equal(t, int64(14), agg.Runs[4].Seed)

	// AND the batch is in the database under its id
	db, err := store.Open(context.Background(), dbPath)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	rec, err := db.GetBatch(context.Background(), agg.BatchID)
	require.NoError(t, err)
	assert.Equal(t, twoStationModel, rec.Model)
}

func TestExecuteRun_RejectsBadOptions(t *testing.T) {
	tests := []struct {
		name string
		opts runOptions
	}{
		{"missing config", runOptions{Replications: 1}},
		{"zero replications", runOptions{ConfigPath: twoStationModel}},
		{"bad trace level", runOptions{ConfigPath: twoStationModel, Replications: 1, TraceLevel: "verbose"}},
		{"missing file", runOptions{ConfigPath: "does-not-exist.yaml", Replications: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := executeRun(context.Background(), tt.opts, &bytes.Buffer{}, &bytes.Buffer{})
			assert.Error(t, err)
		})
	}
}

func TestExecuteRun_InvalidModelReportsConfigError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
horizon: 10
entry: a
arrival: {kind: exponential, params: {mean: 1}}
resources: [{id: r, capacity: 0}]
steps: [{id: a, resource: r, duration: {kind: constant, params: {value: 1}}}]
`), 0o644))

	err := executeRun(context.Background(), runOptions{ConfigPath: path, Replications: 1}, &bytes.Buffer{}, &bytes.Buffer{})

	assert.ErrorIs(t, err, sim.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "resources[0].capacity")
}
