// Package storage persists documents, claims, conflicts and consolidation
// runs in PostgreSQL with pgvector.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

// ErrNotFound is returned when a row does not exist
var ErrNotFound = errors.New("not found")

// Open connects to PostgreSQL and verifies the connection
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// Migrate creates the schema if it does not exist. dimension is the
// embedding vector size.
func Migrate(ctx context.Context, db *sql.DB, dimension int) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			scopes TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			source_path TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sections (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			header TEXT NOT NULL DEFAULT '',
			level INT NOT NULL DEFAULT 0,
			content TEXT NOT NULL DEFAULT '',
			position INT NOT NULL
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS claims (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL DEFAULT '',
			section_id TEXT NOT NULL DEFAULT '',
			original_text TEXT NOT NULL,
			subject TEXT NOT NULL,
			predicate TEXT NOT NULL,
			object TEXT NOT NULL,
			qualifier TEXT NOT NULL DEFAULT '',
			confidence DOUBLE PRECISION NOT NULL,
			span_start INT NOT NULL DEFAULT 0,
			span_end INT NOT NULL DEFAULT 0,
			embedding vector(%d),
			created_at TIMESTAMPTZ NOT NULL
		)`, dimension),
		`CREATE INDEX IF NOT EXISTS claims_document_id_idx ON claims (document_id)`,
		`CREATE TABLE IF NOT EXISTS consolidation_runs (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			strategy JSONB NOT NULL,
			document_ids TEXT[] NOT NULL DEFAULT '{}',
			result JSONB,
			error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS run_conflicts (
			run_id UUID NOT NULL REFERENCES consolidation_runs(id) ON DELETE CASCADE,
			id TEXT NOT NULL,
			claim_a_id TEXT NOT NULL,
			claim_b_id TEXT NOT NULL,
			conflict_type TEXT NOT NULL,
			detected_by TEXT NOT NULL,
			strength DOUBLE PRECISION NOT NULL,
			verified BOOLEAN NOT NULL,
			payload JSONB NOT NULL,
			position INT NOT NULL,
			PRIMARY KEY (run_id, id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return nil
}
