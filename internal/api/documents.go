package api

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/todmy/doc-consolidator/internal/parser"
	"github.com/todmy/doc-consolidator/internal/storage"
	"github.com/todmy/doc-consolidator/pkg/models"
)

const maxUploadSize = 10 << 20 // 10 MB

var allowedExts = map[string]bool{".md": true, ".markdown": true, ".txt": true}

// UploadResponse represents the response after file upload
type UploadResponse struct {
	DocumentID string                     `json:"document_id"`
	Title      string                     `json:"title"`
	Sections   int                        `json:"sections"`
	Claims     int                        `json:"claims"`
	Findings   []models.ValidationFinding `json:"findings,omitempty"`
	Status     string                     `json:"status"`
}

// handleUpload stores a markdown document and extracts its claims
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Limit upload size
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExts[ext] {
		respondError(w, http.StatusBadRequest, "only .md, .markdown and .txt files are allowed")
		return
	}

	createdAt := time.Now().UTC()
	if v := r.FormValue("created_at"); v != "" {
		createdAt, err = time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "created_at must be RFC 3339")
			return
		}
	}

	content, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read file")
		return
	}

	doc := parser.ParseMarkdown(content, parser.Options{
		ID:         uuid.New().String(),
		SourcePath: header.Filename,
		CreatedAt:  createdAt,
	})
	if title := strings.TrimSpace(r.FormValue("title")); title != "" {
		doc.Title = title
	}

	if err := s.documentRepo.Create(r.Context(), &doc); err != nil {
		s.log.Error("save document failed", "filename", header.Filename, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save document")
		return
	}

	response := UploadResponse{
		DocumentID: doc.ID,
		Title:      doc.Title,
		Sections:   len(doc.Sections),
		Status:     "created",
	}

	if s.pipeline == nil || s.pipeline.Extractor == nil {
		respondJSON(w, http.StatusCreated, response)
		return
	}

	ingested, err := s.pipeline.Ingest(r.Context(), []models.Document{doc})
	if err != nil {
		// The document stays stored without claims
		s.log.Error("claim extraction failed", "document_id", doc.ID, "error", err)
		response.Status = "extraction_failed"
		respondJSON(w, http.StatusCreated, response)
		return
	}

	stored := make([]*storage.Claim, len(ingested.Claims))
	for i, c := range ingested.Claims {
		stored[i] = &storage.Claim{AtomicClaim: c}
		if i < len(ingested.Embeddings) {
			stored[i].Embedding = ingested.Embeddings[i]
		}
	}

	if err := s.claimRepo.CreateBatch(r.Context(), stored); err != nil {
		s.log.Error("save claims failed", "document_id", doc.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save claims")
		return
	}

	response.Claims = len(stored)
	response.Findings = ingested.Findings
	respondJSON(w, http.StatusCreated, response)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")

	doc, err := s.documentRepo.GetByID(r.Context(), documentID)
	if errors.Is(err, storage.ErrNotFound) {
		respondError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch document")
		return
	}

	respondJSON(w, http.StatusOK, doc)
}

// handleDeleteDocument deletes a document with its claims
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")

	// Delete claims first, then document
	if err := s.claimRepo.DeleteByDocumentID(r.Context(), documentID); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete claims")
		return
	}

	err := s.documentRepo.Delete(r.Context(), documentID)
	if errors.Is(err, storage.ErrNotFound) {
		respondError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete document")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
