package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/andresmejia3/headtrack/internal/relay"
)

// Store keeps the relay session audit log in PostgreSQL.
type Store struct {
	mu   sync.Mutex
	conn *pgx.Conn
}

// SessionRecord is one row of the audit log.
type SessionRecord struct {
	ID                uuid.UUID
	CameraID          int
	Model             int
	Port              int
	StartedAt         time.Time
	StoppedAt         *time.Time
	RecordsDecoded    int64
	PacketsMalformed  int64
	PartialsDiscarded int64
	ErrorKind         string
	ErrorMessage      string
}

// Running reports whether the session has no recorded stop.
func (r SessionRecord) Running() bool { return r.StoppedAt == nil }

// New establishes a connection to the database and ensures the schema is initialized.
func New(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS relay_sessions (
			id UUID PRIMARY KEY,
			camera_id INT NOT NULL,
			model INT NOT NULL,
			port INT NOT NULL DEFAULT 0,
			started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			stopped_at TIMESTAMPTZ,
			records_decoded BIGINT NOT NULL DEFAULT 0,
			packets_malformed BIGINT NOT NULL DEFAULT 0,
			partials_discarded BIGINT NOT NULL DEFAULT 0,
			error_kind TEXT NOT NULL DEFAULT '',
			error_message TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS relay_sessions_started_at_idx ON relay_sessions (started_at DESC);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Store) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// SessionStarted inserts the session row.
func (s *Store) SessionStarted(ctx context.Context, sum relay.Summary) error {
	id, err := uuid.Parse(sum.ID)
	if err != nil {
		return fmt.Errorf("invalid session id %q: %w", sum.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.conn.Exec(ctx, `
		INSERT INTO relay_sessions (id, camera_id, model, port, started_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, id, sum.CameraID, sum.Model, sum.Port, sum.StartedAt)
	return err
}

// SessionStopped records the outcome and counters. Sessions that failed to
// start were never inserted, so the row is created here.
func (s *Store) SessionStopped(ctx context.Context, sum relay.Summary) error {
	id, err := uuid.Parse(sum.ID)
	if err != nil {
		return fmt.Errorf("invalid session id %q: %w", sum.ID, err)
	}
	stoppedAt := sum.StoppedAt
	if stoppedAt.IsZero() {
		stoppedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.conn.Exec(ctx, `
		INSERT INTO relay_sessions (id, camera_id, model, port, started_at, stopped_at,
			records_decoded, packets_malformed, partials_discarded, error_kind, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			stopped_at = EXCLUDED.stopped_at,
			records_decoded = EXCLUDED.records_decoded,
			packets_malformed = EXCLUDED.packets_malformed,
			partials_discarded = EXCLUDED.partials_discarded,
			error_kind = EXCLUDED.error_kind,
			error_message = EXCLUDED.error_message
	`, id, sum.CameraID, sum.Model, sum.Port, sum.StartedAt, stoppedAt,
		int64(sum.Stats.Decoded), int64(sum.Stats.Malformed), int64(sum.Stats.PartialsDiscarded),
		string(sum.ErrorKind), sum.ErrorMessage)
	return err
}

// ListSessions returns the most recent sessions first. A limit of zero or
// less returns all of them.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	query := `
		SELECT id, camera_id, model, port, started_at, stopped_at,
			records_decoded, packets_malformed, partials_discarded, error_kind, error_message
		FROM relay_sessions
		ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var r SessionRecord
		if err := rows.Scan(&r.ID, &r.CameraID, &r.Model, &r.Port, &r.StartedAt, &r.StoppedAt,
			&r.RecordsDecoded, &r.PacketsMalformed, &r.PartialsDiscarded, &r.ErrorKind, &r.ErrorMessage); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Reset drops all application tables to clear the database state.
// This is useful for development to force a schema refresh without migrations.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.conn.Exec(ctx, `DROP TABLE IF EXISTS relay_sessions CASCADE;`)
	return err
}
