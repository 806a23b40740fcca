package contradiction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/todmy/doc-consolidator/internal/llm"
	"github.com/todmy/doc-consolidator/pkg/models"
)

const verifySystemPrompt = "You are a careful technical editor who checks whether two statements from different documents contradict each other."

// Analyzer verifies candidate conflicts with an LLM
type Analyzer struct {
	provider llm.Provider
	log      *slog.Logger
}

// NewAnalyzer creates a new verifier backed by provider
func NewAnalyzer(provider llm.Provider, log *slog.Logger) *Analyzer {
	if log == nil {
		log = slog.Default()
	}
	return &Analyzer{provider: provider, log: log}
}

// Verify asks the model whether the two claims of c truly conflict.
// A malformed answer is returned as a *llm.ParseError.
func (a *Analyzer) Verify(ctx context.Context, c models.Conflict) (Verdict, error) {
	response, err := a.provider.Generate(ctx, llm.GenerateRequest{
		Prompt: buildVerifyPrompt(c),
		System: verifySystemPrompt,
		Format: llm.FormatJSON,
		Options: llm.Options{
			Temperature: 0,
			MaxTokens:   500,
		},
	})
	if err != nil {
		return Verdict{}, err
	}

	var v Verdict
	err = llm.DecodeJSON(a.provider, response, &v, func() error {
		if v.IsConflict && !v.ConflictType.Valid() {
			return fmt.Errorf("unknown conflict_type %q", v.ConflictType)
		}
		return nil
	})
	if err != nil {
		return Verdict{}, err
	}

	return v, nil
}

// VerifyAll verifies candidates with at most maxConcurrent calls in flight.
// Output keeps candidate order. Candidates the model rejects are dropped,
// candidates whose answer cannot be parsed are kept unmodified, and any other
// error aborts the whole call.
func (a *Analyzer) VerifyAll(ctx context.Context, candidates []models.Conflict, maxConcurrent int) ([]models.Conflict, error) {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultConfig().MaxConcurrent
	}

	type slot struct {
		conflict models.Conflict
		keep     bool
	}
	slots := make([]slot, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for i := range candidates {
		g.Go(func() error {
			c := candidates[i]

			verdict, err := a.Verify(gctx, c)
			if err != nil {
				var pe *llm.ParseError
				if errors.As(err, &pe) {
					a.log.Warn("conflict verification unparseable, keeping candidate",
						"conflict_id", c.ID, "model", pe.Model, "error", pe.Message)
					slots[i] = slot{conflict: c, keep: true}
					return nil
				}
				return fmt.Errorf("verify conflict %s: %w", c.ID, err)
			}

			if !verdict.IsConflict {
				return nil
			}

			c.ConflictType = verdict.ConflictType
			c.Explanation = verdict.Explanation
			if len(verdict.ResolutionHints) > 0 {
				c.ResolutionHints = verdict.ResolutionHints
			}
			c.Verified = true
			slots[i] = slot{conflict: c, keep: true}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	verified := make([]models.Conflict, 0, len(candidates))
	for _, s := range slots {
		if s.keep {
			verified = append(verified, s.conflict)
		}
	}
	return verified, nil
}

func buildVerifyPrompt(c models.Conflict) string {
	var hints string
	if len(c.ResolutionHints) > 0 {
		hints = "\nContext: " + strings.Join(c.ResolutionHints, "; ") + "\n"
	}

	return fmt.Sprintf(`Analyze these two statements for a conflict:

Statement A: "%s"
Statement B: "%s"
%s
Determine if they conflict. Respond with JSON:
{
  "is_conflict": true,
  "conflict_type": "direct_negation|value_conflict|temporal_conflict|scope_conflict|implication_conflict",
  "explanation": "brief explanation",
  "resolution_hints": ["how a reviewer could settle it"]
}

If they do not conflict, respond:
{"is_conflict": false}

Respond ONLY with valid JSON.`, c.ClaimA.Text, c.ClaimB.Text, hints)
}
