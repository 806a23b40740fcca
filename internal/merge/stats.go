package merge

import (
	"math"

	"github.com/todmy/doc-consolidator/pkg/models"
)

func computeStatistics(documents []models.Document, sections []models.MergedSection, resolved, flagged int) models.Statistics {
	original := 0
	for _, doc := range documents {
		original += len(doc.Sections)
	}

	return models.Statistics{
		DocumentsMerged:             len(documents),
		OriginalSections:            original,
		SectionsMerged:              len(sections),
		ConflictsAutoResolved:       resolved,
		ConflictsFlagged:            flagged,
		RedundancyEliminatedPercent: redundancyPercent(original, len(sections)),
	}
}

// redundancyPercent is rounded to two decimals and is 0 without original sections
func redundancyPercent(original, merged int) float64 {
	if original == 0 {
		return 0
	}
	pct := float64(original-merged) / float64(original) * 100
	return math.Round(pct*100) / 100
}
