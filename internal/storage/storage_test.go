package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/todmy/doc-consolidator/pkg/models"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestMigrate(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec("CREATE EXTENSION IF NOT EXISTS vector").WillReturnResult(sqlmock.NewResult(0, 0))
	for i := 0; i < 7; i++ {
		mock.ExpectExec("CREATE").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	if err := Migrate(context.Background(), db, 1536); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresDocumentRepository_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresDocumentRepository(db)

	doc := &models.Document{
		Title:      "Pump Guide",
		SourcePath: "specs/pump.md",
		CreatedAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Sections: []models.Section{
			{ID: "s1", Header: "Bolts", Level: 2, Content: "8 bolts"},
			{Header: "Torque", Level: 2, Content: "40 Nm"},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO documents").
		WithArgs(sqlmock.AnyArg(), doc.Title, doc.SourcePath, doc.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO sections").
		WithArgs("s1", sqlmock.AnyArg(), "Bolts", 2, "8 bolts", 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO sections").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "Torque", 2, "40 Nm", 1).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if doc.ID == "" {
		t.Error("expected document ID to be generated")
	}
	if doc.Sections[1].ID == "" {
		t.Error("expected section ID to be generated")
	}
	if doc.Sections[0].DocumentID != doc.ID {
		t.Errorf("expected section document ID %s, got %s", doc.ID, doc.Sections[0].DocumentID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresDocumentRepository_CreateRollsBack(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresDocumentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO documents").WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Document{ID: "d1"})
	if err == nil {
		t.Fatal("expected error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresDocumentRepository_GetByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresDocumentRepository(db)

	created := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM documents WHERE id").
		WithArgs("d1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "source_path", "created_at"}).
			AddRow("d1", "Pump Notes", "notes/pump.md", created))
	mock.ExpectQuery("SELECT (.+) FROM sections").
		WillReturnRows(sqlmock.NewRows([]string{"id", "document_id", "header", "level", "content"}).
			AddRow("s1", "d1", "Bolts", 2, "12 bolts").
			AddRow("s2", "d1", "Torque", 2, "45 Nm"))

	doc, err := repo.GetByID(context.Background(), "d1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if doc.SourcePath != "notes/pump.md" {
		t.Errorf("expected source path notes/pump.md, got %s", doc.SourcePath)
	}
	if !doc.CreatedAt.Equal(created) {
		t.Errorf("expected created_at %v, got %v", created, doc.CreatedAt)
	}
	if len(doc.Sections) != 2 || doc.Sections[1].ID != "s2" {
		t.Errorf("expected two sections in order, got %+v", doc.Sections)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresDocumentRepository_GetByID_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresDocumentRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM documents WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	doc, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if doc != nil {
		t.Error("expected nil document")
	}
}

func TestPostgresDocumentRepository_GetByIDs_KeepsOrder(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresDocumentRepository(db)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM documents WHERE id = ANY").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "source_path", "created_at"}).
			AddRow("d1", "A", "a.md", now).
			AddRow("d2", "B", "b.md", now))
	mock.ExpectQuery("SELECT (.+) FROM sections").
		WillReturnRows(sqlmock.NewRows([]string{"id", "document_id", "header", "level", "content"}).
			AddRow("s1", "d1", "H", 1, "c"))

	docs, err := repo.GetByIDs(context.Background(), []string{"d2", "missing", "d1"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(docs) != 2 || docs[0].ID != "d2" || docs[1].ID != "d1" {
		t.Fatalf("expected [d2 d1], got %+v", docs)
	}
	if len(docs[1].Sections) != 1 {
		t.Errorf("expected d1 to have one section, got %d", len(docs[1].Sections))
	}
}

func TestPostgresClaimRepository_CreateBatch(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresClaimRepository(db)

	claims := []*Claim{
		{AtomicClaim: models.AtomicClaim{ID: "c1", Subject: "bolt_count", Predicate: "value", Object: "8", Confidence: 0.9}, Embedding: []float32{0.1, 0.2}},
		{AtomicClaim: models.AtomicClaim{ID: "c2", Subject: "torque", Predicate: "value", Object: "40 Nm", Confidence: 0.8}},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO claims")
	prep.ExpectExec().
		WithArgs("c1", "", "", "", "bolt_count", "value", "8", "", 0.9, 0, 0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().
		WithArgs("c2", "", "", "", "torque", "value", "40 Nm", "", 0.8, 0, 0, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := repo.CreateBatch(context.Background(), claims); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if claims[0].CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresClaimRepository_FindSimilar(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresClaimRepository(db)

	columns := []string{"id", "document_id", "section_id", "original_text", "subject", "predicate", "object", "qualifier", "confidence", "span_start", "span_end", "similarity"}
	mock.ExpectQuery("SELECT (.+) FROM claims WHERE embedding IS NOT NULL").
		WithArgs(sqlmock.AnyArg(), 0.75, 10).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("c2", "d2", "s2", "12 bolts", "bolt_count", "value", "12", "", 0.8, 0, 8, 0.93))

	results, err := repo.FindSimilar(context.Background(), []float32{0.1, 0.2}, 0, 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Claim.SourceSectionID != "s2" || results[0].Similarity != 0.93 {
		t.Errorf("unexpected result %+v", results[0])
	}
	if results[0].Claim.SourceSpan.End != 8 {
		t.Errorf("expected span end 8, got %d", results[0].Claim.SourceSpan.End)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresClaimRepository_GetByDocumentIDs(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresClaimRepository(db)

	columns := []string{"id", "document_id", "section_id", "original_text", "subject", "predicate", "object", "qualifier", "confidence", "span_start", "span_end"}
	mock.ExpectQuery("SELECT (.+) FROM claims WHERE document_id = ANY").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("c1", "d1", "s1", "8 bolts", "bolt_count", "value", "8", "", 0.9, 0, 7))

	claims, err := repo.GetByDocumentIDs(context.Background(), []string{"d1"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(claims) != 1 || claims[0].Object != "8" || claims[0].DocumentID != "d1" {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestPostgresRunRepository_CreateAndGet(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresRunRepository(db)

	run := &Run{
		UserID:      "user-1",
		Strategy:    models.MergeStrategy{Mode: models.ModeNewestWins},
		DocumentIDs: []string{"d1", "d2"},
	}

	mock.ExpectExec("INSERT INTO consolidation_runs").
		WithArgs(sqlmock.AnyArg(), "user-1", "pending", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), run); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if run.ID == uuid.Nil {
		t.Fatal("expected run ID to be generated")
	}

	strategy, _ := json.Marshal(run.Strategy)
	result, _ := json.Marshal(models.MergeResult{Title: "Pump Guide", ConflictsFlagged: []models.FlaggedConflict{{Reason: "Strategy requires manual resolution"}}})
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM consolidation_runs WHERE id").
		WithArgs(run.ID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "status", "strategy", "document_ids", "result", "error", "created_at", "updated_at"}).
			AddRow(run.ID.String(), "user-1", "completed", strategy, "{d1,d2}", result, "", now, now))

	got, err := repo.GetByID(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if got.Status != RunCompleted {
		t.Errorf("expected status completed, got %s", got.Status)
	}
	if got.Strategy.Mode != models.ModeNewestWins {
		t.Errorf("expected newest_wins strategy, got %s", got.Strategy.Mode)
	}
	if len(got.DocumentIDs) != 2 || got.DocumentIDs[1] != "d2" {
		t.Errorf("expected document ids [d1 d2], got %v", got.DocumentIDs)
	}
	if got.Result == nil || got.Result.Title != "Pump Guide" || len(got.Result.ConflictsFlagged) != 1 {
		t.Errorf("unexpected result %+v", got.Result)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresRunRepository_GetByID_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresRunRepository(db)

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM consolidation_runs WHERE id").
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresRunRepository_Complete(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresRunRepository(db)

	id := uuid.New()
	mock.ExpectExec("UPDATE consolidation_runs").
		WithArgs(id, "completed", sqlmock.AnyArg(), "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Complete(context.Background(), id, &models.MergeResult{Title: "T"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	mock.ExpectExec("UPDATE consolidation_runs").
		WithArgs(id, "failed", nil, "llm unavailable", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Fail(context.Background(), id, "llm unavailable"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing run, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresConflictRepository_SaveAndGet(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresConflictRepository(db)

	runID := uuid.New()
	conflicts := []models.Conflict{{
		ID:           "k1",
		ClaimA:       models.ClaimRef{ClaimID: "c1", Text: "8 bolts"},
		ClaimB:       models.ClaimRef{ClaimID: "c2", Text: "12 bolts"},
		ConflictType: models.ConflictValue,
		DetectedBy:   models.DetectedByValueExtraction,
		Strength:     0.95,
	}}

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO run_conflicts").ExpectExec().
		WithArgs(runID, "k1", "c1", "c2", "value_conflict", "value_extraction", 0.95, false, sqlmock.AnyArg(), 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := repo.SaveBatch(context.Background(), runID, conflicts); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	payload, _ := json.Marshal(conflicts[0])
	mock.ExpectQuery("SELECT payload FROM run_conflicts").
		WithArgs(runID).
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload))

	got, err := repo.GetByRunID(context.Background(), runID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(got) != 1 || got[0].ClaimB.Text != "12 bolts" || got[0].Strength != 0.95 {
		t.Errorf("unexpected conflicts %+v", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
