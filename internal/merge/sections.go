package merge

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/todmy/doc-consolidator/pkg/models"
)

const (
	contributionPrimary  = "primary"
	provenanceConfidence = 0.9
)

// claimGroup is every claim about one subject
type claimGroup struct {
	topic    string
	claims   []models.AtomicClaim
	sections []string
}

// groupByTopic groups claims by lower-cased subject in first-seen order
func groupByTopic(claims []models.AtomicClaim) []*claimGroup {
	var groups []*claimGroup
	byTopic := make(map[string]*claimGroup)

	for _, c := range claims {
		topic := strings.ToLower(strings.TrimSpace(c.Subject))
		g, ok := byTopic[topic]
		if !ok {
			g = &claimGroup{topic: topic}
			byTopic[topic] = g
			groups = append(groups, g)
		}
		g.claims = append(g.claims, c)
		if !contains(g.sections, c.SourceSectionID) {
			g.sections = append(g.sections, c.SourceSectionID)
		}
	}

	return groups
}

// buildSections renders one merged section per topic group. Resolved
// conflicts are accepted so that prioritization can use them later; the best
// claim per predicate is currently chosen by confidence alone.
func (e *Engine) buildSections(groups []*claimGroup, resolved []models.ResolvedConflict, idx *documentIndex) []models.MergedSection {
	sections := make([]models.MergedSection, 0, len(groups))
	for _, g := range groups {
		provenance := make([]models.Provenance, 0, len(g.sections))
		for _, sectionID := range g.sections {
			provenance = append(provenance, models.Provenance{
				DocumentID:       idx.documentFor(sectionID, documentOf(g.claims, sectionID)),
				SectionID:        sectionID,
				ContributionType: contributionPrimary,
				Confidence:       provenanceConfidence,
			})
		}

		sections = append(sections, models.MergedSection{
			ID:         e.newID(),
			Topic:      g.topic,
			Header:     topicHeader(g.topic),
			Content:    sectionContent(g.claims),
			Provenance: provenance,
		})
	}

	return sections
}

// sectionContent lists the highest-confidence object per predicate.
// Predicates match case-insensitively and keep the first spelling seen. Ties
// go to the claim seen first.
func sectionContent(claims []models.AtomicClaim) string {
	var order []string
	labels := make(map[string]string)
	best := make(map[string]models.AtomicClaim)

	for _, c := range claims {
		key := strings.ToLower(c.Predicate)
		current, ok := best[key]
		if !ok {
			order = append(order, key)
			labels[key] = c.Predicate
			best[key] = c
			continue
		}
		if c.Confidence > current.Confidence {
			best[key] = c
		}
	}

	lines := make([]string, 0, len(order))
	for _, key := range order {
		c := best[key]
		line := "- **" + labels[key] + "**: " + c.Object
		if c.Qualifier != "" {
			line += " _(" + c.Qualifier + ")_"
		}
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

// topicHeader title-cases a topic, treating _ and - as word breaks
func topicHeader(topic string) string {
	words := strings.NewReplacer("_", " ", "-", " ").Replace(topic)
	return cases.Title(language.English).String(strings.Join(strings.Fields(words), " "))
}

func documentOf(claims []models.AtomicClaim, sectionID string) string {
	for _, c := range claims {
		if c.SourceSectionID == sectionID && c.DocumentID != "" {
			return c.DocumentID
		}
	}
	return ""
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
