package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/todmy/doc-consolidator/internal/llm"
	"github.com/todmy/doc-consolidator/internal/merge"
	"github.com/todmy/doc-consolidator/internal/validate"
	"github.com/todmy/doc-consolidator/pkg/models"
)

const (
	maxBodySize        = 10 << 20 // 10 MB
	defaultSimilarSize = 10
	maxSimilarSize     = 100
)

// ClaimsRequest carries claims for validation or detection
type ClaimsRequest struct {
	Claims []models.AtomicClaim `json:"claims"`
}

// MergeRequest is the body of POST /merge
type MergeRequest struct {
	Documents []models.Document    `json:"documents"`
	Claims    []models.AtomicClaim `json:"claims"`
	Conflicts []models.Conflict    `json:"conflicts"`
	Strategy  models.MergeStrategy `json:"strategy"`
}

// SimilarClaimResponse is one hit of GET /claims/similar
type SimilarClaimResponse struct {
	Claim      models.AtomicClaim `json:"claim"`
	Similarity float64            `json:"similarity"`
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleValidateClaims(w http.ResponseWriter, r *http.Request) {
	var req ClaimsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"findings": validate.ValidateAll(req.Claims),
	})
}

func (s *Server) handleDetectConflicts(w http.ResponseWriter, r *http.Request) {
	var req ClaimsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	conflicts, err := s.pipeline.Detector.DetectConflicts(r.Context(), req.Claims)
	if err != nil {
		s.log.Error("conflict detection failed", "claims", len(req.Claims), "error", err)
		respondError(w, http.StatusInternalServerError, "conflict detection failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"conflicts": conflicts,
	})
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req MergeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := req.Strategy.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.pipeline.Merger.Merge(r.Context(), req.Documents, req.Claims, req.Conflicts, req.Strategy)
	if err != nil {
		s.respondMergeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) respondMergeError(w http.ResponseWriter, err error) {
	if errors.Is(err, merge.ErrNoProvider) {
		respondError(w, http.StatusBadRequest, "smart mode requires an LLM provider")
		return
	}
	if llm.IsParseError(err) {
		s.log.Error("merge resolution unparseable", "error", err)
		respondError(w, http.StatusBadGateway, "model returned an unparseable resolution")
		return
	}
	s.log.Error("merge failed", "error", err)
	respondError(w, http.StatusInternalServerError, "merge failed")
}

func (s *Server) handleSimilarClaims(w http.ResponseWriter, r *http.Request) {
	text := strings.TrimSpace(r.URL.Query().Get("text"))
	if text == "" {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	limit := defaultSimilarSize
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxSimilarSize {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxSimilarSize))
			return
		}
		limit = n
	}

	var threshold float64
	if v := r.URL.Query().Get("threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			respondError(w, http.StatusBadRequest, "threshold must be between 0 and 1")
			return
		}
		threshold = f
	}

	if s.embedder == nil {
		respondError(w, http.StatusServiceUnavailable, "embeddings are not configured")
		return
	}

	vectors, err := s.embedder.EmbedTexts(r.Context(), []string{text})
	if err != nil || len(vectors) != 1 {
		s.log.Error("embed query failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to embed query")
		return
	}

	hits, err := s.claimRepo.FindSimilar(r.Context(), vectors[0], limit, threshold)
	if err != nil {
		s.log.Error("similar claim search failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to search claims")
		return
	}

	response := make([]SimilarClaimResponse, 0, len(hits))
	for _, h := range hits {
		response = append(response, SimilarClaimResponse{Claim: h.Claim, Similarity: h.Similarity})
	}

	respondJSON(w, http.StatusOK, response)
}
