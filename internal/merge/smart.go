package merge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/todmy/doc-consolidator/internal/llm"
	"github.com/todmy/doc-consolidator/pkg/models"
)

// ErrNoProvider is returned when smart resolution runs without an LLM
var ErrNoProvider = errors.New("smart resolution requires an LLM provider")

const resolveSystemPrompt = "You are a technical editor consolidating several documents into one. You settle conflicts between statements."

type resolveResponse struct {
	Choice     string   `json:"choice"`
	Confidence *float64 `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
	MergedText string   `json:"merged_text"`
}

// smartResolver asks the LLM to pick a side or propose merged text
type smartResolver struct {
	provider       llm.Provider
	authorityOrder []string
}

func (r smartResolver) resolve(ctx context.Context, c models.Conflict, idx *documentIndex) (outcome, error) {
	if r.provider == nil {
		return outcome{}, ErrNoProvider
	}

	raw, err := r.provider.Generate(ctx, llm.GenerateRequest{
		Prompt: r.buildPrompt(c),
		System: resolveSystemPrompt,
		Format: llm.FormatJSON,
		Options: llm.Options{
			Temperature: 0,
			MaxTokens:   600,
		},
	})
	if err != nil {
		return outcome{}, err
	}

	var resp resolveResponse
	err = llm.DecodeJSON(r.provider, raw, &resp, func() error {
		switch resp.Choice {
		case "chose_a", "chose_b", "merged":
		default:
			return fmt.Errorf("unknown choice %q", resp.Choice)
		}
		if resp.Confidence == nil {
			return errors.New("missing confidence")
		}
		if *resp.Confidence < 0 || *resp.Confidence > 1 {
			return fmt.Errorf("confidence %v out of range [0,1]", *resp.Confidence)
		}
		return nil
	})
	if err != nil {
		return outcome{}, err
	}

	out := outcome{confidence: *resp.Confidence, reasoning: resp.Reasoning}
	if resp.Choice == "merged" && strings.TrimSpace(resp.MergedText) == "" {
		out.reasoning = "Merged resolution proposed without merged text"
		return out, nil
	}
	switch resp.Choice {
	case "chose_a":
		out.choice = chooseA
	case "chose_b":
		out.choice = chooseB
	default:
		out.choice = chooseMerged
		out.mergedText = resp.MergedText
	}
	return out, nil
}

func (r smartResolver) buildPrompt(c models.Conflict) string {
	var b strings.Builder

	b.WriteString("Two statements from different documents conflict.\n\n")
	fmt.Fprintf(&b, "Statement A: %q\n", c.ClaimA.Text)
	fmt.Fprintf(&b, "Statement B: %q\n", c.ClaimB.Text)
	fmt.Fprintf(&b, "Conflict type: %s\n", c.ConflictType)
	if c.Explanation != "" {
		fmt.Fprintf(&b, "Explanation: %s\n", c.Explanation)
	}
	if len(c.ResolutionHints) > 0 {
		fmt.Fprintf(&b, "Resolution hints: %s\n", strings.Join(c.ResolutionHints, "; "))
	}
	if len(r.authorityOrder) > 0 {
		fmt.Fprintf(&b, "Source authority order (most authoritative first): %s\n", strings.Join(r.authorityOrder, ", "))
	}

	b.WriteString(`
Choose which statement should be kept, or write a merged statement. Respond with JSON:
{
  "choice": "chose_a|chose_b|merged",
  "confidence": 0.0-1.0,
  "reasoning": "brief explanation",
  "merged_text": "only when choice is merged"
}

Respond ONLY with valid JSON.`)

	return b.String()
}
