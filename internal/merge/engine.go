// Package merge consolidates claims from several documents into one document
// and settles the conflicts between them.
package merge

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/todmy/doc-consolidator/internal/llm"
	"github.com/todmy/doc-consolidator/pkg/models"
)

const manualResolutionReason = "Strategy requires manual resolution"

// Engine merges documents. It holds no per-merge state and is safe for
// concurrent use.
type Engine struct {
	provider llm.Provider
	log      *slog.Logger

	now   func() time.Time
	newID func() string
}

// Option customizes an Engine
type Option func(*Engine)

// WithClock overrides the GeneratedAt timestamp source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides result and section id generation
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// NewEngine creates a merge engine. provider is only needed for smart mode.
func NewEngine(provider llm.Provider, log *slog.Logger, opts ...Option) *Engine {
	if log == nil {
		log = slog.Default()
	}

	e := &Engine{
		provider: provider,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Merge consolidates documents and claims and decides every conflict. Only
// smart-mode LLM failures are returned as errors; every other problem ends
// as a flagged conflict.
func (e *Engine) Merge(ctx context.Context, documents []models.Document, claims []models.AtomicClaim, conflicts []models.Conflict, strategy models.MergeStrategy) (*models.MergeResult, error) {
	idx := newDocumentIndex(documents)
	groups := groupByTopic(claims)

	resolved, flagged, err := e.resolveConflicts(ctx, conflicts, strategy, idx)
	if err != nil {
		return nil, err
	}

	sections := e.buildSections(groups, resolved, idx)
	title := generateTitle(documents)

	result := &models.MergeResult{
		ID:                e.newID(),
		Title:             title,
		Content:           renderContent(title, sections),
		Sections:          sections,
		ConflictsResolved: resolved,
		ConflictsFlagged:  flagged,
		Statistics:        computeStatistics(documents, sections, len(resolved), len(flagged)),
		GeneratedAt:       e.now(),
	}

	e.log.Info("merge complete",
		"mode", string(strategy.Mode),
		"documents", len(documents),
		"sections", len(sections),
		"resolved", len(resolved),
		"flagged", len(flagged))

	return result, nil
}

func (e *Engine) resolveConflicts(ctx context.Context, conflicts []models.Conflict, strategy models.MergeStrategy, idx *documentIndex) ([]models.ResolvedConflict, []models.FlaggedConflict, error) {
	resolved := make([]models.ResolvedConflict, 0, len(conflicts))
	flagged := make([]models.FlaggedConflict, 0, len(conflicts))

	if strategy.ConflictResolution == models.PolicyFlagAll {
		for _, c := range conflicts {
			flagged = append(flagged, models.FlaggedConflict{Conflict: c, Reason: manualResolutionReason})
		}
		return resolved, flagged, nil
	}

	r := resolverFor(strategy, e.provider)
	threshold := strategy.Threshold()

	for _, c := range conflicts {
		out, err := r.resolve(ctx, c, idx)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve conflict %s: %w", c.ID, err)
		}

		if out.choice == undecided {
			flagged = append(flagged, models.FlaggedConflict{Conflict: c, Reason: out.reasoning, Confidence: out.confidence})
			continue
		}

		if out.confidence < threshold {
			flagged = append(flagged, models.FlaggedConflict{
				Conflict:   c,
				Reason:     fmt.Sprintf("Confidence %s below threshold %s", formatFloat(out.confidence), formatFloat(threshold)),
				Confidence: out.confidence,
			})
			continue
		}

		resolved = append(resolved, toResolved(c, out))
	}

	return resolved, flagged, nil
}

func toResolved(c models.Conflict, out outcome) models.ResolvedConflict {
	rc := models.ResolvedConflict{
		Conflict:   c,
		Reasoning:  out.reasoning,
		Confidence: out.confidence,
	}

	switch out.choice {
	case chooseA:
		rc.Resolution = models.ResolutionClaimAWins
		rc.WinningClaimID = c.ClaimA.ClaimID
	case chooseB:
		rc.Resolution = models.ResolutionClaimBWins
		rc.WinningClaimID = c.ClaimB.ClaimID
	case chooseMerged:
		rc.Resolution = models.ResolutionMerged
		rc.MergedText = out.mergedText
	}
	return rc
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
