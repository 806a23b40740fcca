// Package contradiction finds conflicting claims across documents.
//
// Detection runs three candidate phases (embedding similarity, shared graph
// entities, identical subject and predicate) followed by LLM verification and
// pair deduplication.
package contradiction

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/todmy/doc-consolidator/internal/embeddings"
	"github.com/todmy/doc-consolidator/internal/graph"
	"github.com/todmy/doc-consolidator/internal/llm"
	"github.com/todmy/doc-consolidator/pkg/models"
)

// Detector provides conflict detection over a claim set
type Detector struct {
	embedder embeddings.Embedder
	graph    graph.Store
	analyzer *Analyzer
	config   Config
	log      *slog.Logger

	now   func() time.Time
	newID func() string
}

// Option customizes a Detector
type Option func(*Detector)

// WithClock overrides the timestamp source for new conflicts
func WithClock(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

// WithIDGenerator overrides conflict id generation
func WithIDGenerator(newID func() string) Option {
	return func(d *Detector) { d.newID = newID }
}

// NewDetector creates a detector. A nil embedder skips the semantic phase, a
// nil store skips the graph phase and a nil provider skips verification.
func NewDetector(embedder embeddings.Embedder, store graph.Store, provider llm.Provider, config Config, log *slog.Logger, opts ...Option) *Detector {
	if config.SemanticThreshold <= 0 {
		config.SemanticThreshold = DefaultConfig().SemanticThreshold
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = DefaultConfig().MaxConcurrent
	}
	if log == nil {
		log = slog.Default()
	}
	if store == nil {
		store = graph.NopStore{}
	}

	d := &Detector{
		embedder: embedder,
		graph:    store,
		config:   config,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.New().String() },
	}
	if provider != nil {
		d.analyzer = NewAnalyzer(provider, log)
	}
	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Candidates runs the three detection phases without verification. Output
// order is semantic, then graph, then value extraction.
func (d *Detector) Candidates(ctx context.Context, claims []models.AtomicClaim) ([]models.Conflict, error) {
	all := len(claims)
	claims = usableClaims(claims)
	if skipped := all - len(claims); skipped > 0 {
		d.log.Debug("skipping claims with empty fields", "skipped", skipped)
	}

	semantic, err := d.semanticCandidates(ctx, claims)
	if err != nil {
		return nil, err
	}
	fromGraph := d.graphCandidates(ctx, claims)
	values := d.valueCandidates(claims)

	d.log.Debug("conflict candidates",
		"claims", len(claims),
		"semantic", len(semantic),
		"entity_graph", len(fromGraph),
		"value_extraction", len(values))

	candidates := make([]models.Conflict, 0, len(semantic)+len(fromGraph)+len(values))
	candidates = append(candidates, semantic...)
	candidates = append(candidates, fromGraph...)
	candidates = append(candidates, values...)
	return candidates, nil
}

// DetectConflicts returns the verified, deduplicated conflicts among claims
func (d *Detector) DetectConflicts(ctx context.Context, claims []models.AtomicClaim) ([]models.Conflict, error) {
	candidates, err := d.Candidates(ctx, claims)
	if err != nil {
		return nil, err
	}

	verified := candidates
	if d.analyzer != nil && len(candidates) > 0 {
		verified, err = d.analyzer.VerifyAll(ctx, candidates, d.config.MaxConcurrent)
		if err != nil {
			return nil, err
		}
	}

	conflicts := Deduplicate(verified)
	d.log.Info("conflict detection complete",
		"claims", len(claims),
		"candidates", len(candidates),
		"conflicts", len(conflicts))

	return conflicts, nil
}

// Close releases the graph store
func (d *Detector) Close(ctx context.Context) error {
	if d == nil || d.graph == nil {
		return nil
	}
	return d.graph.Close(ctx)
}
