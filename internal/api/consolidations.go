package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/todmy/doc-consolidator/internal/auth"
	"github.com/todmy/doc-consolidator/internal/merge"
	"github.com/todmy/doc-consolidator/internal/storage"
	"github.com/todmy/doc-consolidator/pkg/models"
)

// ConsolidationRequest starts a consolidation of stored documents
type ConsolidationRequest struct {
	DocumentIDs []string             `json:"document_ids"`
	Strategy    models.MergeStrategy `json:"strategy"`
}

// RunResponse represents a consolidation run in the API response
type RunResponse struct {
	ID          string               `json:"id"`
	Status      storage.RunStatus    `json:"status"`
	Strategy    models.MergeStrategy `json:"strategy"`
	DocumentIDs []string             `json:"document_ids"`
	Error       string               `json:"error,omitempty"`
	Statistics  *models.Statistics   `json:"statistics,omitempty"`
	Result      *models.MergeResult  `json:"result,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

func toRunResponse(run *storage.Run, withResult bool) RunResponse {
	resp := RunResponse{
		ID:          run.ID.String(),
		Status:      run.Status,
		Strategy:    run.Strategy,
		DocumentIDs: run.DocumentIDs,
		Error:       run.Error,
		CreatedAt:   run.CreatedAt,
		UpdatedAt:   run.UpdatedAt,
	}
	if run.Result != nil {
		stats := run.Result.Statistics
		resp.Statistics = &stats
		if withResult {
			resp.Result = run.Result
		}
	}
	return resp
}

// handleCreateConsolidation detects conflicts among the claims of the given
// documents and merges them. The run is recorded whether it succeeds or not.
func (s *Server) handleCreateConsolidation(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ConsolidationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if len(req.DocumentIDs) == 0 {
		respondError(w, http.StatusBadRequest, "document_ids is required")
		return
	}
	if err := req.Strategy.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	docs, err := s.documentRepo.GetByIDs(r.Context(), req.DocumentIDs)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch documents")
		return
	}
	if missing := missingDocument(req.DocumentIDs, docs); missing != "" {
		respondError(w, http.StatusNotFound, "document not found: "+missing)
		return
	}

	docClaims, err := s.claimRepo.GetByDocumentIDs(r.Context(), req.DocumentIDs)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch claims")
		return
	}

	run := &storage.Run{
		UserID:      claims.UserID,
		Strategy:    req.Strategy,
		DocumentIDs: req.DocumentIDs,
	}
	if err := s.runRepo.Create(r.Context(), run); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create consolidation")
		return
	}

	outcome, err := s.pipeline.Consolidate(r.Context(), docs, docClaims, req.Strategy)
	if err != nil {
		if failErr := s.runRepo.Fail(r.Context(), run.ID, err.Error()); failErr != nil {
			s.log.Error("mark run failed", "run_id", run.ID, "error", failErr)
		}
		s.respondMergeError(w, err)
		return
	}

	if err := s.conflictRepo.SaveBatch(r.Context(), run.ID, outcome.Conflicts); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save conflicts")
		return
	}
	if err := s.runRepo.Complete(r.Context(), run.ID, outcome.Result); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save consolidation")
		return
	}

	run.Status = storage.RunCompleted
	run.Result = outcome.Result

	s.log.Info("consolidation complete",
		"run_id", run.ID,
		"documents", len(docs),
		"claims", len(docClaims),
		"conflicts", len(outcome.Conflicts),
		"flagged", len(outcome.Result.ConflictsFlagged))

	respondJSON(w, http.StatusCreated, toRunResponse(run, true))
}

func (s *Server) handleListConsolidations(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	runs, err := s.runRepo.GetByUserID(r.Context(), claims.UserID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch consolidations")
		return
	}

	response := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		response = append(response, toRunResponse(run, false))
	}

	respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleGetConsolidation(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, toRunResponse(run, true))
}

func (s *Server) handleGetRunConflicts(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}

	conflicts, err := s.conflictRepo.GetByRunID(r.Context(), run.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch conflicts")
		return
	}

	respondJSON(w, http.StatusOK, conflicts)
}

// handleGetFlagged returns the review queue of a completed run
func (s *Server) handleGetFlagged(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	if run.Result == nil {
		respondError(w, http.StatusConflict, "consolidation has no result")
		return
	}

	respondJSON(w, http.StatusOK, run.Result.ConflictsFlagged)
}

// handleGetMergedDocument returns the merged document as markdown, or as HTML
// with ?format=html
func (s *Server) handleGetMergedDocument(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	if run.Result == nil {
		respondError(w, http.StatusConflict, "consolidation has no result")
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(run.Result.Content))
	case "html":
		html, err := merge.RenderHTML(run.Result)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to render document")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(html))
	default:
		respondError(w, http.StatusBadRequest, "format must be markdown or html")
	}
}

// loadRun resolves {runID} and checks that the caller owns the run
func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (*storage.Run, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid run id")
		return nil, false
	}

	run, err := s.runRepo.GetByID(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		respondError(w, http.StatusNotFound, "consolidation not found")
		return nil, false
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch consolidation")
		return nil, false
	}

	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok || run.UserID != claims.UserID {
		respondError(w, http.StatusForbidden, "access denied")
		return nil, false
	}

	return run, true
}

func missingDocument(ids []string, docs []models.Document) string {
	found := make(map[string]bool, len(docs))
	for _, d := range docs {
		found[d.ID] = true
	}
	for _, id := range ids {
		if !found[id] {
			return id
		}
	}
	return ""
}
