package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/todmy/doc-consolidator/pkg/models"
)

// ConflictRepository stores the detected conflicts of a run
type ConflictRepository interface {
	SaveBatch(ctx context.Context, runID uuid.UUID, conflicts []models.Conflict) error
	GetByRunID(ctx context.Context, runID uuid.UUID) ([]models.Conflict, error)
}

// PostgresConflictRepository implements ConflictRepository using PostgreSQL
type PostgresConflictRepository struct {
	db *sql.DB
}

// NewPostgresConflictRepository creates a new PostgresConflictRepository
func NewPostgresConflictRepository(db *sql.DB) *PostgresConflictRepository {
	return &PostgresConflictRepository{db: db}
}

// SaveBatch inserts conflicts in detection order in a single transaction
func (r *PostgresConflictRepository) SaveBatch(ctx context.Context, runID uuid.UUID, conflicts []models.Conflict) error {
	if len(conflicts) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin conflict tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_conflicts (run_id, id, claim_a_id, claim_b_id, conflict_type, detected_by, strength, verified, payload, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`)
	if err != nil {
		return fmt.Errorf("prepare conflict insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range conflicts {
		payload, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("encode conflict %s: %w", c.ID, err)
		}

		_, err = stmt.ExecContext(ctx,
			runID,
			c.ID,
			c.ClaimA.ClaimID,
			c.ClaimB.ClaimID,
			string(c.ConflictType),
			string(c.DetectedBy),
			c.Strength,
			c.Verified,
			payload,
			i,
		)
		if err != nil {
			return fmt.Errorf("insert conflict %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// GetByRunID returns a run's conflicts in detection order
func (r *PostgresConflictRepository) GetByRunID(ctx context.Context, runID uuid.UUID) ([]models.Conflict, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT payload
		FROM run_conflicts
		WHERE run_id = $1
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("get conflicts: %w", err)
	}
	defer rows.Close()

	conflicts := make([]models.Conflict, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan conflict: %w", err)
		}
		var c models.Conflict
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, fmt.Errorf("decode conflict: %w", err)
		}
		conflicts = append(conflicts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return conflicts, nil
}
