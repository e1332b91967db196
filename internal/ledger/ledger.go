// Package ledger keeps an append-only history of discovery and pairing runs.
// It records which bridges were seen and how pairing ended, never the keys
// a bridge issued.
package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event in the ledger
type EventType string

const (
	EventDiscoveryCompleted EventType = "discovery_completed"
	EventPairingAttempted   EventType = "pairing_attempted"
	EventPairingFinished    EventType = "pairing_finished"
)

// Entry represents a single event in the ledger
type Entry struct {
	ID        int64
	EventType EventType
	Timestamp time.Time
	RunID     string
	BridgeID  string // Empty for discovery runs
	Payload   map[string]any
}

// Ledger provides append-only event logging
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new Ledger using the provided database connection
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// NewRunID returns an identifier that ties the events of one run together
func NewRunID() string {
	return uuid.NewString()
}

// Append adds a new event to the ledger
func (l *Ledger) Append(eventType EventType, runID, bridgeID string, payload map[string]any) error {
	var payloadJSON []byte
	var err error

	if payload != nil {
		payloadJSON, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
	}

	var bridge sql.NullString
	if bridgeID != "" {
		bridge = sql.NullString{String: bridgeID, Valid: true}
	}

	_, err = l.db.Exec(`
		INSERT INTO activity_ledger (event_type, timestamp, run_id, bridge_id, payload)
		VALUES (?, ?, ?, ?, ?)
	`, string(eventType), l.now().UTC().Unix(), runID, bridge, string(payloadJSON))
	if err != nil {
		return fmt.Errorf("failed to append %s: %w", eventType, err)
	}
	return nil
}

// Recent returns the newest entries, newest first
func (l *Ledger) Recent(limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, event_type, timestamp, run_id, bridge_id, payload
		FROM activity_ledger
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// GetByType returns entries filtered by event type
func (l *Ledger) GetByType(eventType EventType, limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, event_type, timestamp, run_id, bridge_id, payload
		FROM activity_ledger
		WHERE event_type = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, string(eventType), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// GetByRun returns the entries of one run in the order they were written
func (l *Ledger) GetByRun(runID string) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, event_type, timestamp, run_id, bridge_id, payload
		FROM activity_ledger
		WHERE run_id = ?
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// DeleteOlderThan removes entries older than the specified duration (retention policy)
func (l *Ledger) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := l.now().Add(-retention).UTC().Unix()
	result, err := l.db.Exec(`
		DELETE FROM activity_ledger WHERE timestamp < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (l *Ledger) scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var payloadStr, bridgeID sql.NullString
		var timestamp int64

		err := rows.Scan(&entry.ID, &entry.EventType, &timestamp, &entry.RunID, &bridgeID, &payloadStr)
		if err != nil {
			return nil, err
		}

		entry.Timestamp = time.Unix(timestamp, 0).UTC()
		if bridgeID.Valid {
			entry.BridgeID = bridgeID.String
		}

		if payloadStr.Valid && payloadStr.String != "" {
			entry.Payload = make(map[string]any)
			if err := json.Unmarshal([]byte(payloadStr.String), &entry.Payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
			}
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
