// Package postgres persists audit events in an append-only PostgreSQL outbox.
// Uses database/sql with the lib/pq driver; the table is append-only and rows
// are never updated once written.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	id "veristage/pkg/domain"
	audit "veristage/pkg/platform/audit"
)

// Store writes audit events to the audit_events table.
type Store struct {
	db *sql.DB
}

// New constructs a Postgres-backed audit store over an existing connection.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to Postgres with the lib/pq driver and returns a store.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping audit database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events
			(category, occurred_at, applicant_id, action, stage, actor_id, detail, request_id, device)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		string(event.Category),
		event.Timestamp,
		event.ApplicantID.String(),
		string(event.Action),
		event.Stage,
		event.ActorID,
		event.Detail,
		event.RequestID,
		event.Device,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// ListByApplicant returns events for one applicant in chronological order.
func (s *Store) ListByApplicant(ctx context.Context, applicantID id.ApplicantID) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, occurred_at, applicant_id, action, stage, actor_id, detail, request_id, device
		FROM audit_events
		WHERE applicant_id = $1
		ORDER BY occurred_at`,
		applicantID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var e audit.Event
		var category, action, applicant string
		if err := rows.Scan(&category, &e.Timestamp, &applicant, &action, &e.Stage,
			&e.ActorID, &e.Detail, &e.RequestID, &e.Device); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		e.Action = audit.Action(action)
		parsed, err := id.ParseApplicantID(applicant)
		if err != nil {
			return nil, fmt.Errorf("scan audit event applicant id: %w", err)
		}
		e.ApplicantID = parsed
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
