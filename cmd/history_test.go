package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListHistory_ShowsStoredBatches(t *testing.T) {
	// GIVEN two stored batches
	dbPath := filepath.Join(t.TempDir(), "results.db")
	for _, seed := range []int64{1, 2} {
		opts := runOptions{ConfigPath: twoStationModel, Seed: seed, Replications: 3, ResultsDB: dbPath}
		require.NoError(t, executeRun(context.Background(), opts, &bytes.Buffer{}, &bytes.Buffer{}))
	}

	// WHEN listed with a limit of one
	var out bytes.Buffer
	require.NoError(t, listHistory(context.Background(), dbPath, 1, &out))

	// THEN a header and one row are printed
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "BATCH")
	assert.Contains(t, lines[1], "two-station.yaml")
}

func TestListHistory_RequiresPath(t *testing.T) {
	assert.Error(t, listHistory(context.Background(), "", 10, &bytes.Buffer{}))
}
