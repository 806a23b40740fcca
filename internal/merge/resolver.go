package merge

import (
	"context"
	"fmt"

	"github.com/todmy/doc-consolidator/internal/llm"
	"github.com/todmy/doc-consolidator/pkg/models"
)

// choice is the decision a resolver reached for one conflict
type choice int

const (
	undecided choice = iota
	chooseA
	chooseB
	chooseMerged
)

// outcome is a resolver's answer. Undecided outcomes are always flagged.
type outcome struct {
	choice     choice
	confidence float64
	reasoning  string
	mergedText string
}

// resolver settles one conflict. Implementations never fail on missing or
// ambiguous data, they return an undecided outcome instead.
type resolver interface {
	resolve(ctx context.Context, c models.Conflict, idx *documentIndex) (outcome, error)
}

func resolverFor(strategy models.MergeStrategy, provider llm.Provider) resolver {
	switch strategy.Mode {
	case models.ModeNewestWins:
		return temporalResolver{}
	case models.ModeAuthorityWins:
		return authorityResolver{order: compileGlobs(strategy.AuthorityOrder)}
	default:
		return smartResolver{provider: provider, authorityOrder: strategy.AuthorityOrder}
	}
}

// temporalResolver prefers the claim from the strictly newer document
type temporalResolver struct{}

func (temporalResolver) resolve(ctx context.Context, c models.Conflict, idx *documentIndex) (outcome, error) {
	docA, docB := idx.owner(c.ClaimA), idx.owner(c.ClaimB)
	if docA == nil || docB == nil {
		return outcome{reasoning: "Could not locate source documents for both claims"}, nil
	}

	const layout = "2006-01-02"
	switch {
	case docA.CreatedAt.After(docB.CreatedAt):
		return outcome{
			choice:     chooseA,
			confidence: 0.9,
			reasoning:  fmt.Sprintf("Claim A comes from the newer document %q (%s vs %s)", docA.Title, docA.CreatedAt.Format(layout), docB.CreatedAt.Format(layout)),
		}, nil
	case docB.CreatedAt.After(docA.CreatedAt):
		return outcome{
			choice:     chooseB,
			confidence: 0.9,
			reasoning:  fmt.Sprintf("Claim B comes from the newer document %q (%s vs %s)", docB.Title, docB.CreatedAt.Format(layout), docA.CreatedAt.Format(layout)),
		}, nil
	default:
		return outcome{confidence: 0.5, reasoning: "Both documents have the same creation time"}, nil
	}
}

// authorityResolver prefers the claim whose document path ranks first in the
// authority order
type authorityResolver struct {
	order []glob
}

func (r authorityResolver) resolve(ctx context.Context, c models.Conflict, idx *documentIndex) (outcome, error) {
	docA, docB := idx.owner(c.ClaimA), idx.owner(c.ClaimB)
	if docA == nil || docB == nil {
		return outcome{reasoning: "Could not locate source documents for both claims"}, nil
	}

	rankA, rankB := r.rank(docA.SourcePath), r.rank(docB.SourcePath)
	switch {
	case rankA < rankB:
		return outcome{
			choice:     chooseA,
			confidence: 0.85,
			reasoning:  fmt.Sprintf("Claim A's source %s has higher authority (rank %d vs %d)", docA.SourcePath, rankA, rankB),
		}, nil
	case rankB < rankA:
		return outcome{
			choice:     chooseB,
			confidence: 0.85,
			reasoning:  fmt.Sprintf("Claim B's source %s has higher authority (rank %d vs %d)", docB.SourcePath, rankB, rankA),
		}, nil
	default:
		return outcome{confidence: 0.5, reasoning: fmt.Sprintf("Both sources have equal authority rank %d", rankA)}, nil
	}
}

// rank is the index of the first matching pattern, or len(order) when none match
func (r authorityResolver) rank(path string) int {
	for i, g := range r.order {
		if g.match(path) {
			return i
		}
	}
	return len(r.order)
}

// documentIndex finds the document that owns a claim
type documentIndex struct {
	bySection  map[string]*models.Document
	byDocument map[string]*models.Document
}

func newDocumentIndex(documents []models.Document) *documentIndex {
	idx := &documentIndex{
		bySection:  make(map[string]*models.Document),
		byDocument: make(map[string]*models.Document, len(documents)),
	}
	for i := range documents {
		doc := &documents[i]
		if _, ok := idx.byDocument[doc.ID]; !ok && doc.ID != "" {
			idx.byDocument[doc.ID] = doc
		}
		for _, s := range doc.Sections {
			if _, ok := idx.bySection[s.ID]; !ok && s.ID != "" {
				idx.bySection[s.ID] = doc
			}
		}
	}
	return idx
}

// owner looks up by section id first, then by document id
func (idx *documentIndex) owner(ref models.ClaimRef) *models.Document {
	if doc, ok := idx.bySection[ref.SectionID]; ok {
		return doc
	}
	if doc, ok := idx.byDocument[ref.DocumentID]; ok {
		return doc
	}
	return nil
}

func (idx *documentIndex) documentFor(sectionID, documentID string) string {
	if doc, ok := idx.bySection[sectionID]; ok {
		return doc.ID
	}
	return documentID
}
