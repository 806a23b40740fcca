package contradiction

import (
	"context"
	"fmt"
	"strings"

	"github.com/todmy/doc-consolidator/internal/similarity"
	"github.com/todmy/doc-consolidator/pkg/models"
)

// usableClaims drops claims missing a subject, predicate or object. They
// only surface through validation findings.
func usableClaims(claims []models.AtomicClaim) []models.AtomicClaim {
	out := make([]models.AtomicClaim, 0, len(claims))
	for _, c := range claims {
		if strings.TrimSpace(c.Subject) == "" || strings.TrimSpace(c.Predicate) == "" || strings.TrimSpace(c.Object) == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// semanticCandidates embeds every claim triple and pairs claims from
// different sections whose vectors are close but whose objects differ
func (d *Detector) semanticCandidates(ctx context.Context, claims []models.AtomicClaim) ([]models.Conflict, error) {
	if d.embedder == nil || len(claims) < 2 {
		return nil, nil
	}

	texts := make([]string, len(claims))
	for i, c := range claims {
		texts[i] = c.Triple()
	}

	vectors, err := d.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed claims: %w", err)
	}
	if len(vectors) != len(claims) {
		return nil, fmt.Errorf("embed claims: got %d vectors for %d claims", len(vectors), len(claims))
	}

	var out []models.Conflict
	for _, p := range similarity.FindSimilarPairs(vectors, d.config.SemanticThreshold) {
		a, b := claims[p.Idx1], claims[p.Idx2]
		if a.ID == b.ID || a.SourceSectionID == b.SourceSectionID {
			continue
		}
		if strings.EqualFold(a.Object, b.Object) {
			continue
		}
		out = append(out, d.newCandidate(a.Ref(), b.Ref(), p.Similarity, models.DetectedBySemantic, nil))
	}

	return out, nil
}

// graphCandidates asks the graph store for claims sharing an entity. Any
// store failure yields no candidates.
func (d *Detector) graphCandidates(ctx context.Context, claims []models.AtomicClaim) []models.Conflict {
	if len(claims) < 2 {
		return nil
	}

	byID := make(map[string]models.AtomicClaim, len(claims))
	ids := make([]string, 0, len(claims))
	for _, c := range claims {
		if _, seen := byID[c.ID]; !seen {
			ids = append(ids, c.ID)
		}
		byID[c.ID] = c
	}

	pairs, err := d.graph.SharedEntityPairs(ctx, ids)
	if err != nil {
		d.log.Warn("graph conflict query failed (continuing)", "error", err)
		return nil
	}

	out := make([]models.Conflict, 0, len(pairs))
	for _, p := range pairs {
		if p.A.ClaimID == p.B.ClaimID {
			continue
		}
		if _, ok := byID[p.A.ClaimID]; !ok {
			continue
		}
		if _, ok := byID[p.B.ClaimID]; !ok {
			continue
		}
		out = append(out, d.newCandidate(enrich(p.A, byID), enrich(p.B, byID), EntityGraphStrength, models.DetectedByEntityGraph, nil))
	}

	return out
}

// valueCandidates pairs claims with the same subject and predicate whose
// objects differ
func (d *Detector) valueCandidates(claims []models.AtomicClaim) []models.Conflict {
	var order []string
	groups := make(map[string][]models.AtomicClaim)
	for _, c := range claims {
		key := strings.ToLower(c.Subject) + "|" + strings.ToLower(c.Predicate)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], c)
	}

	var out []models.Conflict
	for _, key := range order {
		group := groups[key]
		if len(group) < 2 {
			continue
		}

		hint := fmt.Sprintf("Claims disagree on %s %s", group[0].Subject, group[0].Predicate)
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				a, b := group[i], group[j]
				if a.ID == b.ID || strings.EqualFold(a.Object, b.Object) {
					continue
				}
				out = append(out, d.newCandidate(a.Ref(), b.Ref(), ValueExtractionStrength, models.DetectedByValueExtraction, []string{hint}))
			}
		}
	}

	return out
}

func (d *Detector) newCandidate(a, b models.ClaimRef, strength float64, method models.DetectionMethod, hints []string) models.Conflict {
	return models.Conflict{
		ID:              d.newID(),
		ClaimA:          a,
		ClaimB:          b,
		ConflictType:    models.ConflictValue,
		Strength:        strength,
		DetectedBy:      method,
		ResolutionHints: hints,
		CreatedAt:       d.now(),
	}
}

// enrich fills graph refs from the in-memory claim when it is known
func enrich(ref models.ClaimRef, byID map[string]models.AtomicClaim) models.ClaimRef {
	c, ok := byID[ref.ClaimID]
	if !ok {
		return ref
	}
	full := c.Ref()
	if full.DocumentID == "" {
		full.DocumentID = ref.DocumentID
	}
	return full
}
