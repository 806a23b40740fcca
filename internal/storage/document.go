package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/todmy/doc-consolidator/pkg/models"
)

// DocumentRepository defines the interface for document storage operations
type DocumentRepository interface {
	Create(ctx context.Context, document *models.Document) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Document, error)
	Delete(ctx context.Context, id string) error
}

// PostgresDocumentRepository implements DocumentRepository using PostgreSQL
type PostgresDocumentRepository struct {
	db *sql.DB
}

// NewPostgresDocumentRepository creates a new PostgresDocumentRepository
func NewPostgresDocumentRepository(db *sql.DB) *PostgresDocumentRepository {
	return &PostgresDocumentRepository{db: db}
}

// Create inserts a document and its sections in one transaction. Missing
// ids are generated.
func (r *PostgresDocumentRepository) Create(ctx context.Context, document *models.Document) error {
	if document.ID == "" {
		document.ID = uuid.New().String()
	}
	if document.CreatedAt.IsZero() {
		document.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin document tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, title, source_path, created_at)
		VALUES ($1, $2, $3, $4)
	`, document.ID, document.Title, document.SourcePath, document.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	for i := range document.Sections {
		s := &document.Sections[i]
		if s.ID == "" {
			s.ID = uuid.New().String()
		}
		s.DocumentID = document.ID

		_, err := tx.ExecContext(ctx, `
			INSERT INTO sections (id, document_id, header, level, content, position)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, s.ID, s.DocumentID, s.Header, s.Level, s.Content, i)
		if err != nil {
			return fmt.Errorf("insert section %s: %w", s.ID, err)
		}
	}

	return tx.Commit()
}

// GetByID retrieves a document with its sections
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	document := &models.Document{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, title, source_path, created_at
		FROM documents
		WHERE id = $1
	`, id).Scan(
		&document.ID,
		&document.Title,
		&document.SourcePath,
		&document.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	sections, err := r.sections(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	document.Sections = sections[id]

	return document, nil
}

// GetByIDs retrieves documents in the order of ids. Unknown ids are skipped.
func (r *PostgresDocumentRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Document, error) {
	if len(ids) == 0 {
		return []models.Document{}, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, source_path, created_at
		FROM documents
		WHERE id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get documents: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]models.Document, len(ids))
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.Title, &d.SourcePath, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		byID[d.ID] = d
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sections, err := r.sections(ctx, ids)
	if err != nil {
		return nil, err
	}

	documents := make([]models.Document, 0, len(byID))
	for _, id := range ids {
		d, ok := byID[id]
		if !ok {
			continue
		}
		d.Sections = sections[id]
		documents = append(documents, d)
	}

	return documents, nil
}

// Delete removes a document. Sections are removed by cascade.
func (r *PostgresDocumentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresDocumentRepository) sections(ctx context.Context, documentIDs []string) (map[string][]models.Section, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, document_id, header, level, content
		FROM sections
		WHERE document_id = ANY($1)
		ORDER BY document_id, position ASC
	`, pq.Array(documentIDs))
	if err != nil {
		return nil, fmt.Errorf("get sections: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]models.Section)
	for rows.Next() {
		var s models.Section
		if err := rows.Scan(&s.ID, &s.DocumentID, &s.Header, &s.Level, &s.Content); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		out[s.DocumentID] = append(out[s.DocumentID], s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}
