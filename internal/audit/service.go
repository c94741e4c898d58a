// Package audit persists an interaction and configuration-change trail to
// sqlite so operators can see who pressed and edited what.
package audit

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type Service struct {
	db *sql.DB
}

// NewService opens (or creates) the audit database at dbPath.
func NewService(dbPath string) (*Service, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open audit db: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Service{db: db}, nil
}

// NewServiceWithDB wraps an existing database handle, applying the schema.
// Used by tests that inject an in-memory database.
func NewServiceWithDB(db *sql.DB) (*Service, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Service{db: db}, nil
}

// Record writes one event. CreatedAt defaults to now.
func (s *Service) Record(ev Event) error {
	created := ev.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO events (trace_id, channel, sender_id, event_type, label, menu, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.TraceID, ev.Channel, ev.SenderID, ev.EventType, ev.Label, ev.Menu, ev.Detail, created)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// Recent returns the newest events, newest first.
func (s *Service) Recent(limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, trace_id, channel, sender_id, event_type, label, menu, detail, created_at
		FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.TraceID, &ev.Channel, &ev.SenderID,
			&ev.EventType, &ev.Label, &ev.Menu, &ev.Detail, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// BySender returns the newest events for one sender, newest first.
func (s *Service) BySender(senderID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, trace_id, channel, sender_id, event_type, label, menu, detail, created_at
		FROM events WHERE sender_id = ? ORDER BY id DESC LIMIT ?`, senderID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.TraceID, &ev.Channel, &ev.SenderID,
			&ev.EventType, &ev.Label, &ev.Menu, &ev.Detail, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// PruneBefore removes events older than cutoff and returns how many went.
func (s *Service) PruneBefore(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM events WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune events: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (s *Service) Close() error {
	return s.db.Close()
}
