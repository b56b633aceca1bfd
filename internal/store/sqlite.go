package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"eldercare-mcp/internal/core"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS patients (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS events (
	id           TEXT PRIMARY KEY,
	chain_id     TEXT NOT NULL,
	source_agent TEXT NOT NULL,
	target_agent TEXT NOT NULL,
	event_type   TEXT NOT NULL,
	patient_id   TEXT NOT NULL,
	payload_kind TEXT NOT NULL DEFAULT '',
	payload      TEXT NOT NULL DEFAULT '',
	created_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS events_patient ON events (patient_id, created_at);
`

// SQLiteStore persists patients and events in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath and ensures the
// schema exists. The caller is responsible for calling Close.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1) // prevent SQLITE_BUSY
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// AppendEvent inserts one event row.
func (s *SQLiteStore) AppendEvent(ctx context.Context, ev core.Event) error {
	kind, payload, err := core.EncodePayload(ev.Payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events
			(id, chain_id, source_agent, target_agent, event_type, patient_id, payload_kind, payload, created_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		ev.ID, ev.ChainID, ev.Source, ev.Target, ev.Type, ev.PatientID,
		kind, string(payload), formatTime(ev.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("%w: insert event %s: %v", ErrPersistence, ev.ID, err)
	}
	return nil
}

// SamplePatientID returns the oldest patient's id.
func (s *SQLiteStore) SamplePatientID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM patients ORDER BY created_at, id LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoPatients
	}
	if err != nil {
		return "", fmt.Errorf("%w: select patient: %v", ErrPersistence, err)
	}
	return id, nil
}

// AddPatient inserts or renames a patient.
func (s *SQLiteStore) AddPatient(ctx context.Context, p Patient) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO patients (id, name, created_at) VALUES (?,?,?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		p.ID, p.Name, formatTime(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("%w: insert patient %s: %v", ErrPersistence, p.ID, err)
	}
	return nil
}

// ListEvents returns the newest events, optionally for one patient.
func (s *SQLiteStore) ListEvents(ctx context.Context, patientID string, limit int) ([]core.Event, error) {
	query := `SELECT id, chain_id, source_agent, target_agent, event_type, patient_id, payload_kind, payload, created_at
		FROM events`
	var args []any
	if patientID != "" {
		query += ` WHERE patient_id = ?`
		args = append(args, patientID)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list events: %v", ErrPersistence, err)
	}
	defer rows.Close()

	var out []core.Event
	for rows.Next() {
		var (
			ev            core.Event
			kind, payload string
			createdAt     string
		)
		if err := rows.Scan(&ev.ID, &ev.ChainID, &ev.Source, &ev.Target, &ev.Type, &ev.PatientID, &kind, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scan event: %v", ErrPersistence, err)
		}
		if ev.Payload, err = core.DecodePayload(kind, []byte(payload)); err != nil {
			return nil, fmt.Errorf("%w: event %s: %v", ErrPersistence, ev.ID, err)
		}
		if ev.Timestamp, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("%w: event %s timestamp: %v", ErrPersistence, ev.ID, err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list events: %v", ErrPersistence, err)
	}
	return out, nil
}

// timeLayout is fixed width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

var _ Store = (*SQLiteStore)(nil)
