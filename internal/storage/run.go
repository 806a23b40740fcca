package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/todmy/doc-consolidator/pkg/models"
)

// RunStatus is the lifecycle state of a consolidation run
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is one consolidation of a set of documents
type Run struct {
	ID          uuid.UUID
	UserID      string
	Status      RunStatus
	Strategy    models.MergeStrategy
	DocumentIDs []string
	Result      *models.MergeResult
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RunRepository defines the interface for consolidation run storage
type RunRepository interface {
	Create(ctx context.Context, run *Run) error
	GetByID(ctx context.Context, id uuid.UUID) (*Run, error)
	GetByUserID(ctx context.Context, userID string) ([]*Run, error)
	Complete(ctx context.Context, id uuid.UUID, result *models.MergeResult) error
	Fail(ctx context.Context, id uuid.UUID, reason string) error
}

// PostgresRunRepository implements RunRepository using PostgreSQL
type PostgresRunRepository struct {
	db *sql.DB
}

// NewPostgresRunRepository creates a new PostgresRunRepository
func NewPostgresRunRepository(db *sql.DB) *PostgresRunRepository {
	return &PostgresRunRepository{db: db}
}

// Create inserts a new pending run
func (r *PostgresRunRepository) Create(ctx context.Context, run *Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.Status == "" {
		run.Status = RunPending
	}

	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	if run.UpdatedAt.IsZero() {
		run.UpdatedAt = now
	}

	strategy, err := json.Marshal(run.Strategy)
	if err != nil {
		return fmt.Errorf("encode strategy: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO consolidation_runs (id, user_id, status, strategy, document_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		run.ID,
		run.UserID,
		string(run.Status),
		strategy,
		pqStrings(run.DocumentIDs),
		run.CreatedAt,
		run.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	return nil
}

const runColumns = `id, user_id, status, strategy, document_ids, result, error, created_at, updated_at`

// GetByID retrieves a run by its ID
func (r *PostgresRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*Run, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM consolidation_runs WHERE id = $1`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	return run, nil
}

// GetByUserID retrieves all runs started by a user, newest first
func (r *PostgresRunRepository) GetByUserID(ctx context.Context, userID string) ([]*Run, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM consolidation_runs
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// Complete stores the merge result and marks the run completed
func (r *PostgresRunRepository) Complete(ctx context.Context, id uuid.UUID, result *models.MergeResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	return r.finish(ctx, id, RunCompleted, payload, "")
}

// Fail marks the run failed with a reason
func (r *PostgresRunRepository) Fail(ctx context.Context, id uuid.UUID, reason string) error {
	return r.finish(ctx, id, RunFailed, nil, reason)
}

func (r *PostgresRunRepository) finish(ctx context.Context, id uuid.UUID, status RunStatus, result []byte, reason string) error {
	var payload any
	if result != nil {
		payload = result
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE consolidation_runs
		SET status = $2, result = $3, error = $4, updated_at = $5
		WHERE id = $1
	`, id, string(status), payload, reason, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRun(row scanner) (*Run, error) {
	var (
		run      Run
		status   string
		strategy []byte
		result   []byte
	)
	err := row.Scan(
		&run.ID,
		&run.UserID,
		&status,
		&strategy,
		pq.Array(&run.DocumentIDs),
		&result,
		&run.Error,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	run.Status = RunStatus(status)
	if err := json.Unmarshal(strategy, &run.Strategy); err != nil {
		return nil, fmt.Errorf("decode strategy: %w", err)
	}
	if len(result) > 0 {
		run.Result = &models.MergeResult{}
		if err := json.Unmarshal(result, run.Result); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
	}

	return &run, nil
}

// pqStrings never sends NULL for an empty list
func pqStrings(values []string) any {
	if values == nil {
		values = []string{}
	}
	return pq.Array(values)
}
