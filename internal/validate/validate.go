// Package validate reports advisory data-quality findings for claims.
// Findings never block the pipeline.
package validate

import (
	"fmt"
	"strings"

	"github.com/todmy/doc-consolidator/internal/similarity"
	"github.com/todmy/doc-consolidator/pkg/models"
)

const (
	// LowConfidence is the confidence below which a claim is reported
	LowConfidence = 0.5
	// EchoSimilarity is the subject/object similarity at which the object
	// is reported as restating the subject
	EchoSimilarity = 0.9
)

var compoundMarkers = []string{" and ", " or ", ",", ";"}

var vaguePredicates = map[string]bool{
	"is":         true,
	"has":        true,
	"relates to": true,
	"involves":   true,
	"concerns":   true,
	"about":      true,
}

// Validate returns the findings for a single claim
func Validate(c models.AtomicClaim) []models.ValidationFinding {
	var findings []models.ValidationFinding
	add := func(field string, severity models.FindingSeverity, format string, args ...any) {
		findings = append(findings, models.ValidationFinding{
			ClaimID:  c.ID,
			Field:    field,
			Severity: severity,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	for _, f := range []struct {
		name  string
		value string
	}{
		{"subject", c.Subject},
		{"predicate", c.Predicate},
		{"object", c.Object},
	} {
		if strings.TrimSpace(f.value) == "" {
			add(f.name, models.SeverityWarning, "%s is empty", f.name)
		}
	}

	if c.Confidence < LowConfidence {
		add("confidence", models.SeverityWarning, "confidence %.2f is below %.2f", c.Confidence, LowConfidence)
	}

	predicate := strings.ToLower(strings.TrimSpace(c.Predicate))
	for _, marker := range compoundMarkers {
		if strings.Contains(predicate, marker) {
			add("predicate", models.SeverityInfo, "predicate %q looks compound, consider splitting the claim", c.Predicate)
			break
		}
	}
	if vaguePredicates[predicate] {
		add("predicate", models.SeverityInfo, "predicate %q is vague", c.Predicate)
	}

	subject := strings.ToLower(strings.TrimSpace(c.Subject))
	object := strings.ToLower(strings.TrimSpace(c.Object))
	if subject != "" && object != "" && similarity.StringSimilarity(subject, object) >= EchoSimilarity {
		add("object", models.SeverityInfo, "object %q restates the subject", c.Object)
	}

	if c.SourceSpan.End < c.SourceSpan.Start {
		add("source_span", models.SeverityWarning, "span end %d is before start %d", c.SourceSpan.End, c.SourceSpan.Start)
	}

	return findings
}

// ValidateAll returns the findings for every claim in claim order
func ValidateAll(claims []models.AtomicClaim) []models.ValidationFinding {
	findings := make([]models.ValidationFinding, 0)
	for _, c := range claims {
		findings = append(findings, Validate(c)...)
	}
	return findings
}

// HasWarnings reports whether any finding is a warning
func HasWarnings(findings []models.ValidationFinding) bool {
	for _, f := range findings {
		if f.Severity == models.SeverityWarning {
			return true
		}
	}
	return false
}
