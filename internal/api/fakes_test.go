package api

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/todmy/doc-consolidator/internal/auth"
	"github.com/todmy/doc-consolidator/internal/storage"
	"github.com/todmy/doc-consolidator/pkg/models"
)

const (
	runnerToken   = "runner-token"
	reviewerToken = "reviewer-token"
	outsiderToken = "outsider-token"
)

type fakeAuth struct{}

func (fakeAuth) Register(ctx context.Context, email, password string) (*auth.User, error) {
	return &auth.User{ID: "new-user", Email: email}, nil
}

func (fakeAuth) Login(ctx context.Context, email, password string) (string, *auth.User, error) {
	return "", nil, auth.ErrInvalidCredentials
}

func (fakeAuth) ValidateToken(token string) (*auth.Claims, error) {
	switch token {
	case runnerToken:
		return &auth.Claims{UserID: "u1", Scopes: []string{auth.ScopeConsolidate, auth.ScopeReview}}, nil
	case reviewerToken:
		return &auth.Claims{UserID: "u1", Scopes: []string{auth.ScopeReview}}, nil
	case outsiderToken:
		return &auth.Claims{UserID: "u2", Scopes: []string{auth.ScopeConsolidate, auth.ScopeReview}}, nil
	}
	return nil, auth.ErrInvalidToken
}

type memDocuments struct {
	mu   sync.Mutex
	docs map[string]models.Document
}

func (m *memDocuments) Create(ctx context.Context, d *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	m.docs[d.ID] = *d
	return nil
}

func (m *memDocuments) GetByID(ctx context.Context, id string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &d, nil
}

func (m *memDocuments) GetByIDs(ctx context.Context, ids []string) ([]models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Document, 0, len(ids))
	for _, id := range ids {
		if d, ok := m.docs[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memDocuments) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

type memClaims struct {
	mu     sync.Mutex
	claims []*storage.Claim
	query  []float32
}

func (m *memClaims) CreateBatch(ctx context.Context, claims []*storage.Claim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims = append(m.claims, claims...)
	return nil
}

func (m *memClaims) GetByDocumentIDs(ctx context.Context, documentIDs []string) ([]models.AtomicClaim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AtomicClaim
	for _, c := range m.claims {
		if slices.Contains(documentIDs, c.DocumentID) {
			out = append(out, c.AtomicClaim)
		}
	}
	return out, nil
}

func (m *memClaims) FindSimilar(ctx context.Context, embedding []float32, limit int, threshold float64) ([]storage.ClaimWithSimilarity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.query = embedding
	var out []storage.ClaimWithSimilarity
	for _, c := range m.claims {
		if len(out) == limit {
			break
		}
		out = append(out, storage.ClaimWithSimilarity{Claim: c.AtomicClaim, Similarity: 0.9})
	}
	return out, nil
}

func (m *memClaims) DeleteByDocumentID(ctx context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims = slices.DeleteFunc(m.claims, func(c *storage.Claim) bool { return c.DocumentID == documentID })
	return nil
}

type memRuns struct {
	mu   sync.Mutex
	runs map[uuid.UUID]storage.Run
}

func (m *memRuns) Create(ctx context.Context, run *storage.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run.ID = uuid.New()
	run.Status = storage.RunPending
	run.CreatedAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	run.UpdatedAt = run.CreatedAt
	m.runs[run.ID] = *run
	return nil
}

func (m *memRuns) GetByID(ctx context.Context, id uuid.UUID) (*storage.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &run, nil
}

func (m *memRuns) GetByUserID(ctx context.Context, userID string) ([]*storage.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*storage.Run
	for _, run := range m.runs {
		if run.UserID == userID {
			out = append(out, &run)
		}
	}
	return out, nil
}

func (m *memRuns) Complete(ctx context.Context, id uuid.UUID, result *models.MergeResult) error {
	return m.finish(id, storage.RunCompleted, result, "")
}

func (m *memRuns) Fail(ctx context.Context, id uuid.UUID, reason string) error {
	return m.finish(id, storage.RunFailed, nil, reason)
}

func (m *memRuns) finish(id uuid.UUID, status storage.RunStatus, result *models.MergeResult, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return errors.New("unknown run")
	}
	run.Status = status
	run.Result = result
	run.Error = reason
	m.runs[id] = run
	return nil
}

type memConflicts struct {
	mu        sync.Mutex
	conflicts map[uuid.UUID][]models.Conflict
}

func (m *memConflicts) SaveBatch(ctx context.Context, runID uuid.UUID, conflicts []models.Conflict) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflicts[runID] = conflicts
	return nil
}

func (m *memConflicts) GetByRunID(ctx context.Context, runID uuid.UUID) ([]models.Conflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.conflicts[runID]
	if out == nil {
		out = []models.Conflict{}
	}
	return out, nil
}

type fixedEmbedder struct{}

func (fixedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, float32(i)}
	}
	return out, nil
}
