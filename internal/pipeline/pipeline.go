// Package pipeline wires extraction, graph indexing, conflict detection and
// merging into the consolidation flow shared by the CLI and the HTTP API.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/todmy/doc-consolidator/internal/embeddings"
	"github.com/todmy/doc-consolidator/internal/extract"
	"github.com/todmy/doc-consolidator/internal/graph"
	"github.com/todmy/doc-consolidator/pkg/models"
)

// Detector finds conflicts among claims
type Detector interface {
	DetectConflicts(ctx context.Context, claims []models.AtomicClaim) ([]models.Conflict, error)
}

// Merger consolidates documents
type Merger interface {
	Merge(ctx context.Context, documents []models.Document, claims []models.AtomicClaim, conflicts []models.Conflict, strategy models.MergeStrategy) (*models.MergeResult, error)
}

// Extractor turns document sections into claims
type Extractor interface {
	ExtractDocuments(ctx context.Context, documents []models.Document) (*extract.Result, error)
}

// Pipeline runs the consolidation stages. Extractor, Embedder and Graph are
// optional.
type Pipeline struct {
	Detector  Detector
	Merger    Merger
	Extractor Extractor
	Embedder  embeddings.Embedder
	Graph     graph.Store
	Log       *slog.Logger
}

// Outcome is the result of a full consolidation
type Outcome struct {
	Conflicts []models.Conflict   `json:"conflicts"`
	Result    *models.MergeResult `json:"result"`
}

// Ingested holds extracted claims with one embedding per claim when an
// embedder is configured
type Ingested struct {
	extract.Result
	Embeddings [][]float32 `json:"-"`
}

func (p *Pipeline) log() *slog.Logger {
	if p.Log == nil {
		return slog.Default()
	}
	return p.Log
}

// Ingest extracts claims from documents, embeds them and links them in the
// graph store
func (p *Pipeline) Ingest(ctx context.Context, documents []models.Document) (*Ingested, error) {
	if p.Extractor == nil {
		return nil, fmt.Errorf("ingest: no claim extractor configured")
	}

	res, err := p.Extractor.ExtractDocuments(ctx, documents)
	if err != nil {
		return nil, err
	}
	out := &Ingested{Result: *res}

	if p.Embedder != nil && len(res.Claims) > 0 {
		texts := make([]string, len(res.Claims))
		for i, c := range res.Claims {
			texts[i] = c.Triple()
		}
		out.Embeddings, err = p.Embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed claims: %w", err)
		}
	}

	p.index(ctx, res.Claims)
	return out, nil
}

// Consolidate detects the conflicts among claims and merges the documents
func (p *Pipeline) Consolidate(ctx context.Context, documents []models.Document, claims []models.AtomicClaim, strategy models.MergeStrategy) (*Outcome, error) {
	p.index(ctx, claims)

	conflicts, err := p.Detector.DetectConflicts(ctx, claims)
	if err != nil {
		return nil, fmt.Errorf("detect conflicts: %w", err)
	}

	result, err := p.Merger.Merge(ctx, documents, claims, conflicts, strategy)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	return &Outcome{Conflicts: conflicts, Result: result}, nil
}

// index links claims in the graph store. Failures only cost the graph
// detection phase, so they are logged and ignored.
func (p *Pipeline) index(ctx context.Context, claims []models.AtomicClaim) {
	if p.Graph == nil || len(claims) == 0 {
		return
	}
	if err := p.Graph.IndexClaims(ctx, claims); err != nil {
		p.log().Warn("graph indexing failed (continuing)", "claims", len(claims), "error", err)
	}
}
