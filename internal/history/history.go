// Package history keeps a SQLite journal of the snapshots a watch session
// observed, so a finished run can be inspected afterwards.
package history

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/raysh454/moku-watch/internal/jobstatus"
	"github.com/raysh454/moku-watch/internal/logging"
	"github.com/raysh454/moku-watch/internal/progress"

	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed schema.sql
var schemaFS embed.FS

var ErrClosed = errors.New("history store is closed")

// Entry is one recorded observation.
type Entry struct {
	ID         int64
	SessionID  string
	JobID      string
	Status     jobstatus.Status
	Percent    *int
	Step       *string
	ObservedAt time.Time
	Snapshot   jobstatus.Snapshot
}

// Store is the SQLite-backed journal.
type Store struct {
	db     *sql.DB
	logger logging.Logger
	now    func() time.Time
}

// NewSessionID returns a fresh id for grouping one watch session's entries.
func NewSessionID() string {
	return uuid.NewString()
}

// Open opens (creating if needed) the journal at path and applies the schema.
func Open(path string, logger logging.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("history path is required")
	}
	if logger == nil {
		logger = logging.Nop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure history dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	// Writes come from one monitor goroutine; a single connection avoids
	// SQLITE_BUSY between pool members.
	db.SetMaxOpenConns(1)

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}

	return &Store{
		db:     db,
		logger: logger.With(logging.Field{Key: "component", Value: "history"}),
		now:    time.Now,
	}, nil
}

// Record appends one observation of snap for the given session.
func (s *Store) Record(ctx context.Context, sessionID string, snap jobstatus.Snapshot, n progress.Normalized) error {
	if s.db == nil {
		return ErrClosed
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	var percent sql.NullInt64
	if n.Percent != nil {
		percent = sql.NullInt64{Int64: int64(*n.Percent), Valid: true}
	}
	var step sql.NullString
	if n.Step != nil {
		step = sql.NullString{String: *n.Step, Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO observations (session_id, job_id, status, percent, step, observed_at, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, snap.JobID, string(snap.Status), percent, step, s.now().UTC().UnixNano(), string(payload))
	if err != nil {
		return fmt.Errorf("insert observation: %w", err)
	}
	s.logger.Debug("recorded observation",
		logging.Field{Key: "job_id", Value: snap.JobID},
		logging.Field{Key: "status", Value: string(snap.Status)})
	return nil
}

// List returns every observation of jobID in the order it was recorded.
func (s *Store) List(ctx context.Context, jobID string) ([]Entry, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, job_id, status, percent, step, observed_at, payload
		 FROM observations WHERE job_id = ? ORDER BY id`, jobID)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			status  string
			percent sql.NullInt64
			step    sql.NullString
			nanos   int64
			payload string
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.JobID, &status, &percent, &step, &nanos, &payload); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		e.Status = jobstatus.Status(status)
		if percent.Valid {
			p := int(percent.Int64)
			e.Percent = &p
		}
		if step.Valid {
			st := step.String
			e.Step = &st
		}
		e.ObservedAt = time.Unix(0, nanos).UTC()
		if err := json.Unmarshal([]byte(payload), &e.Snapshot); err != nil {
			return nil, fmt.Errorf("decode snapshot %d: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the database. Further calls return ErrClosed.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
