// Package extract turns document sections into atomic claims with an LLM.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/todmy/doc-consolidator/internal/llm"
	"github.com/todmy/doc-consolidator/internal/validate"
	"github.com/todmy/doc-consolidator/pkg/models"
)

// DefaultMaxConcurrent is the number of extraction calls kept in flight
const DefaultMaxConcurrent = 3

const extractSystemPrompt = "You split technical documentation into atomic, independently verifiable claims."

// Result holds extracted claims and the advisory findings about them
type Result struct {
	Claims   []models.AtomicClaim       `json:"claims"`
	Findings []models.ValidationFinding `json:"findings"`
}

// Extractor extracts claims from sections
type Extractor struct {
	provider      llm.Provider
	maxConcurrent int
	log           *slog.Logger
	newID         func() string
}

// NewExtractor creates an extractor. maxConcurrent <= 0 uses DefaultMaxConcurrent.
func NewExtractor(provider llm.Provider, maxConcurrent int, log *slog.Logger) *Extractor {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{
		provider:      provider,
		maxConcurrent: maxConcurrent,
		log:           log,
		newID:         func() string { return uuid.New().String() },
	}
}

type extractedClaim struct {
	OriginalText string  `json:"original_text"`
	Subject      string  `json:"subject"`
	Predicate    string  `json:"predicate"`
	Object       string  `json:"object"`
	Qualifier    string  `json:"qualifier"`
	Confidence   float64 `json:"confidence"`
	SpanStart    int     `json:"span_start"`
	SpanEnd      int     `json:"span_end"`
}

type extractResponse struct {
	Claims *[]extractedClaim `json:"claims"`
}

// ExtractSection extracts the claims of one section
func (e *Extractor) ExtractSection(ctx context.Context, section models.Section) ([]models.AtomicClaim, error) {
	if strings.TrimSpace(section.Content) == "" {
		return nil, nil
	}

	raw, err := e.provider.Generate(ctx, llm.GenerateRequest{
		Prompt: buildExtractPrompt(section),
		System: extractSystemPrompt,
		Format: llm.FormatJSON,
		Options: llm.Options{
			Temperature: 0,
			MaxTokens:   2048,
		},
	})
	if err != nil {
		return nil, err
	}

	var resp extractResponse
	err = llm.DecodeJSON(e.provider, raw, &resp, func() error {
		if resp.Claims == nil {
			return errors.New("missing claims array")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	claims := make([]models.AtomicClaim, 0, len(*resp.Claims))
	for _, ec := range *resp.Claims {
		claims = append(claims, models.AtomicClaim{
			ID:              e.newID(),
			OriginalText:    ec.OriginalText,
			Subject:         strings.TrimSpace(ec.Subject),
			Predicate:       strings.TrimSpace(ec.Predicate),
			Object:          strings.TrimSpace(ec.Object),
			Qualifier:       strings.TrimSpace(ec.Qualifier),
			Confidence:      clamp(ec.Confidence),
			SourceSectionID: section.ID,
			DocumentID:      section.DocumentID,
			SourceSpan:      models.Span{Start: ec.SpanStart, End: ec.SpanEnd},
		})
	}

	return claims, nil
}

// ExtractSections extracts every section with a bounded number of calls in
// flight. Claims keep section order. The first error cancels the rest.
func (e *Extractor) ExtractSections(ctx context.Context, sections []models.Section) (*Result, error) {
	perSection := make([][]models.AtomicClaim, len(sections))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConcurrent)

	for i := range sections {
		g.Go(func() error {
			claims, err := e.ExtractSection(gctx, sections[i])
			if err != nil {
				return fmt.Errorf("extract section %s: %w", sections[i].ID, err)
			}
			perSection[i] = claims
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{Claims: make([]models.AtomicClaim, 0)}
	for _, claims := range perSection {
		result.Claims = append(result.Claims, claims...)
	}
	result.Findings = validate.ValidateAll(result.Claims)

	e.log.Info("claim extraction complete",
		"sections", len(sections),
		"claims", len(result.Claims),
		"findings", len(result.Findings))

	return result, nil
}

// ExtractDocuments extracts every section of every document
func (e *Extractor) ExtractDocuments(ctx context.Context, documents []models.Document) (*Result, error) {
	var sections []models.Section
	for _, doc := range documents {
		for _, s := range doc.Sections {
			if s.DocumentID == "" {
				s.DocumentID = doc.ID
			}
			sections = append(sections, s)
		}
	}
	return e.ExtractSections(ctx, sections)
}

func buildExtractPrompt(section models.Section) string {
	return fmt.Sprintf(`Extract atomic claims from this documentation section.

Section: %s
---
%s
---

Each claim states one fact as subject, predicate and object. Use a short
snake_case subject for the thing described. Put conditions such as units of
validity, versions or environments in qualifier. span_start and span_end are
character offsets of original_text inside the section.

Respond with JSON:
{
  "claims": [
    {
      "original_text": "sentence from the section",
      "subject": "bolt_count",
      "predicate": "value",
      "object": "8",
      "qualifier": "",
      "confidence": 0.0-1.0,
      "span_start": 0,
      "span_end": 0
    }
  ]
}

Respond ONLY with valid JSON.`, section.Header, section.Content)
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
