package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/procsim/procsim/sim/stats"
)

// timeLayout is fixed-width so that text order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// BatchRecord is one stored replication batch.
type BatchRecord struct {
	ID        string
	CreatedAt time.Time
	Model     string // free-form label, usually the config path
	Stats     *stats.AggregateStats
}

// BatchSummary is the listing view of a stored batch.
type BatchSummary struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Model        string    `json:"model"`
	Replications int       `json:"replications"`
	BaseSeed     int64     `json:"base_seed"`
	AvgCycleTime float64   `json:"avg_cycle_time"`
	Throughput   float64   `json:"throughput"`
}

// SaveBatch stores an aggregate under its BatchID. CreatedAt defaults to now.
func (db *DB) SaveBatch(ctx context.Context, rec BatchRecord) error {
	if rec.Stats == nil {
		return fmt.Errorf("storage: save batch: nil stats")
	}
	id := rec.ID
	if id == "" {
		id = rec.Stats.BatchID
	}
	if id == "" {
		return fmt.Errorf("storage: save batch: missing batch id")
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	payload, err := json.Marshal(rec.Stats)
	if err != nil {
		return fmt.Errorf("storage: encode batch %s: %w", id, err)
	}

	_, err = db.db.ExecContext(ctx, `
		INSERT INTO batches (id, created_at, model, replications, base_seed, avg_cycle_time, throughput, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		created.UTC().Format(timeLayout),
		rec.Model,
		rec.Stats.Replications,
		rec.Stats.BaseSeed,
		rec.Stats.Metrics[stats.MetricAvgCycleTime].Mean,
		rec.Stats.Metrics[stats.MetricThroughput].Mean,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("storage: insert batch %s: %w", id, err)
	}
	return nil
}

// GetBatch loads a stored batch by id.
func (db *DB) GetBatch(ctx context.Context, id string) (*BatchRecord, error) {
	var (
		created, model, payload string
	)
	err := db.db.QueryRowContext(ctx,
		`SELECT created_at, model, payload FROM batches WHERE id = ?`, id,
	).Scan(&created, &model, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("storage: batch %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get batch %s: %w", id, err)
	}

	rec := &BatchRecord{ID: id, Model: model, Stats: &stats.AggregateStats{}}
	if rec.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("storage: batch %s: parse created_at: %w", id, err)
	}
	if err := json.Unmarshal([]byte(payload), rec.Stats); err != nil {
		return nil, fmt.Errorf("storage: decode batch %s: %w", id, err)
	}
	return rec, nil
}

// ListBatches returns up to limit batches, newest first. limit <= 0 means all.
func (db *DB) ListBatches(ctx context.Context, limit int) ([]BatchSummary, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, created_at, model, replications, base_seed, avg_cycle_time, throughput
		FROM batches
		ORDER BY created_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: list batches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []BatchSummary
	for rows.Next() {
		var (
			s       BatchSummary
			created string
		)
		if err := rows.Scan(&s.ID, &created, &s.Model, &s.Replications, &s.BaseSeed, &s.AvgCycleTime, &s.Throughput); err != nil {
			return nil, fmt.Errorf("storage: scan batch: %w", err)
		}
		if s.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("storage: batch %s: parse created_at: %w", s.ID, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: list batches: %w", err)
	}
	return out, nil
}
