// Package store keeps replication batch results in a local SQLite file so
// scenarios can be compared across invocations.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite handle.
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the results database at path and applies
// pending migrations. Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	// SQLite serialises writers; one connection also keeps ":memory:" to a single database.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("storage: ping %s: %w", path, err)
	}
	db := &DB{db: sqlDB}
	if err := db.runMigrations(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	logrus.Debugf("storage: opened %s", path)
	return db, nil
}

// Close releases the database handle.
func (db *DB) Close() error {
	return db.db.Close()
}
