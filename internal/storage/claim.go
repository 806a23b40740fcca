package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/todmy/doc-consolidator/pkg/models"
)

// Claim is a stored claim with its optional embedding
type Claim struct {
	models.AtomicClaim
	Embedding []float32
	CreatedAt time.Time
}

// ClaimWithSimilarity represents a claim with its similarity score
type ClaimWithSimilarity struct {
	Claim      models.AtomicClaim
	Similarity float64
}

// ClaimRepository defines the interface for claim storage operations
type ClaimRepository interface {
	CreateBatch(ctx context.Context, claims []*Claim) error
	GetByDocumentIDs(ctx context.Context, documentIDs []string) ([]models.AtomicClaim, error)
	FindSimilar(ctx context.Context, embedding []float32, limit int, threshold float64) ([]ClaimWithSimilarity, error)
	DeleteByDocumentID(ctx context.Context, documentID string) error
}

// PostgresClaimRepository implements ClaimRepository using PostgreSQL with pgvector
type PostgresClaimRepository struct {
	db *sql.DB
}

// NewPostgresClaimRepository creates a new PostgresClaimRepository
func NewPostgresClaimRepository(db *sql.DB) *PostgresClaimRepository {
	return &PostgresClaimRepository{db: db}
}

const claimColumns = `id, document_id, section_id, original_text, subject, predicate, object, qualifier, confidence, span_start, span_end`

// CreateBatch upserts claims in a single transaction
func (r *PostgresClaimRepository) CreateBatch(ctx context.Context, claims []*Claim) error {
	if len(claims) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin claim tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO claims (`+claimColumns+`, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			original_text = EXCLUDED.original_text,
			subject = EXCLUDED.subject,
			predicate = EXCLUDED.predicate,
			object = EXCLUDED.object,
			qualifier = EXCLUDED.qualifier,
			confidence = EXCLUDED.confidence,
			embedding = COALESCE(EXCLUDED.embedding, claims.embedding)
	`)
	if err != nil {
		return fmt.Errorf("prepare claim insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, c := range claims {
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}

		var embedding any
		if len(c.Embedding) > 0 {
			embedding = pgvector.NewVector(c.Embedding)
		}

		_, err := stmt.ExecContext(ctx,
			c.ID,
			c.DocumentID,
			c.SourceSectionID,
			c.OriginalText,
			c.Subject,
			c.Predicate,
			c.Object,
			c.Qualifier,
			c.Confidence,
			c.SourceSpan.Start,
			c.SourceSpan.End,
			embedding,
			c.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert claim %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// GetByDocumentIDs retrieves the claims of the given documents
func (r *PostgresClaimRepository) GetByDocumentIDs(ctx context.Context, documentIDs []string) ([]models.AtomicClaim, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+claimColumns+`
		FROM claims
		WHERE document_id = ANY($1)
		ORDER BY document_id, section_id, span_start, id
	`, pqStrings(documentIDs))
	if err != nil {
		return nil, fmt.Errorf("get claims: %w", err)
	}
	defer rows.Close()

	claims := make([]models.AtomicClaim, 0)
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return claims, nil
}

// FindSimilar finds claims similar to the given embedding using pgvector cosine distance
func (r *PostgresClaimRepository) FindSimilar(ctx context.Context, embedding []float32, limit int, threshold float64) ([]ClaimWithSimilarity, error) {
	if limit <= 0 {
		limit = 10
	}
	if threshold <= 0 {
		threshold = 0.75
	}

	vec := pgvector.NewVector(embedding)
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+claimColumns+`, 1 - (embedding <=> $1) AS similarity
		FROM claims
		WHERE embedding IS NOT NULL AND 1 - (embedding <=> $1) >= $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`, vec, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("find similar claims: %w", err)
	}
	defer rows.Close()

	var results []ClaimWithSimilarity
	for rows.Next() {
		var (
			c          models.AtomicClaim
			similarity float64
		)
		err := rows.Scan(
			&c.ID, &c.DocumentID, &c.SourceSectionID, &c.OriginalText,
			&c.Subject, &c.Predicate, &c.Object, &c.Qualifier,
			&c.Confidence, &c.SourceSpan.Start, &c.SourceSpan.End,
			&similarity,
		)
		if err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		results = append(results, ClaimWithSimilarity{Claim: c, Similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// DeleteByDocumentID removes all claims for a document
func (r *PostgresClaimRepository) DeleteByDocumentID(ctx context.Context, documentID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM claims WHERE document_id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("delete claims: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanClaim(row scanner) (models.AtomicClaim, error) {
	var c models.AtomicClaim
	err := row.Scan(
		&c.ID, &c.DocumentID, &c.SourceSectionID, &c.OriginalText,
		&c.Subject, &c.Predicate, &c.Object, &c.Qualifier,
		&c.Confidence, &c.SourceSpan.Start, &c.SourceSpan.End,
	)
	if err != nil {
		return models.AtomicClaim{}, fmt.Errorf("scan claim: %w", err)
	}
	return c, nil
}
