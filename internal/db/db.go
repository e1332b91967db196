// Package db provides the SQLite connection and schema for huelink.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database connection
type DB struct {
	*sql.DB
}

// Open opens the database and initializes the schema
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DB{db}, nil
}

// initSchema creates all required tables
func initSchema(db *sql.DB) error {
	// Activity ledger - append-only history of discovery and pairing runs.
	// Application keys are never stored here.
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS activity_ledger (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_type TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			run_id TEXT NOT NULL,
			bridge_id TEXT,
			payload TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_activity_type_ts ON activity_ledger(event_type, timestamp);
		CREATE INDEX IF NOT EXISTS idx_activity_run ON activity_ledger(run_id);
		CREATE INDEX IF NOT EXISTS idx_activity_bridge ON activity_ledger(bridge_id) WHERE bridge_id IS NOT NULL;
	`)
	if err != nil {
		return fmt.Errorf("failed to create activity_ledger table: %w", err)
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
