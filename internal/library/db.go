// Package library implements the persistent media catalog: the five media
// item tables, provider mappings, settings, cache and the loudness/play-log
// side tables.
package library

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/medleyd/medley/internal/events"
	"github.com/medleyd/medley/internal/logger"
)

// DB is the library database handle. All statements are short-lived; no
// multi-statement transaction is held across blocking calls.
type DB struct {
	*sqlx.DB
	bus *events.Bus
	log *logger.Logger
}

// Open opens (or creates) the library database, applies pragmas and runs
// the schema migration.
func Open(dsn string, bus *events.Bus, log *logger.Logger) (*DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	// Set pragmas for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	d := &DB{DB: db, bus: bus, log: log.WithComponent("library")}
	if err := d.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return d, nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}

func (db *DB) publish(t events.Type, objectID string, data any) {
	if db.bus != nil {
		db.bus.Publish(t, objectID, data)
	}
}
