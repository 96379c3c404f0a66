// Package history persists free-form analysis records to PostgreSQL. The
// engine has no persistence responsibility of its own; this adapter is the
// durable history-log collaborator.
package history

import (
	"context"

	"statlab/internal/errors"
	"statlab/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS analysis_history (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	summary    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`

// PostgresStore implements ports.HistoryStore on PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects and ensures the history table exists.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to history database")
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, errors.Wrap(err, "failed to ensure history schema")
	}
	return &PostgresStore{db: db}, nil
}

// Record inserts one analysis record.
func (s *PostgresStore) Record(ctx context.Context, record ports.AnalysisRecord) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO analysis_history (id, kind, summary, created_at)
		VALUES (:id, :kind, :summary, :created_at)
	`, record)
	return err
}

// Recent returns the newest records, newest first.
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]ports.AnalysisRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []ports.AnalysisRecord
	err := s.db.SelectContext(ctx, &records, `
		SELECT id, kind, summary, created_at
		FROM analysis_history
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	return records, err
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
