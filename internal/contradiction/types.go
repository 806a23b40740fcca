package contradiction

import (
	"github.com/todmy/doc-consolidator/internal/similarity"
	"github.com/todmy/doc-consolidator/pkg/models"
)

// Fixed candidate strengths for the deterministic phases
const (
	EntityGraphStrength     = 0.9
	ValueExtractionStrength = 0.95
)

// Config holds detector configuration
type Config struct {
	SemanticThreshold float64 `mapstructure:"semantic_threshold"`
	MaxConcurrent     int     `mapstructure:"max_concurrent"`
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		SemanticThreshold: similarity.DefaultThreshold,
		MaxConcurrent:     5,
	}
}

// Verdict is the verifier's answer for one candidate
type Verdict struct {
	IsConflict      bool                `json:"is_conflict"`
	ConflictType    models.ConflictType `json:"conflict_type"`
	Explanation     string              `json:"explanation"`
	ResolutionHints []string            `json:"resolution_hints"`
}

// GroupByType groups conflicts by conflict type
func GroupByType(conflicts []models.Conflict) map[models.ConflictType][]models.Conflict {
	grouped := make(map[models.ConflictType][]models.Conflict)

	for _, c := range conflicts {
		grouped[c.ConflictType] = append(grouped[c.ConflictType], c)
	}

	return grouped
}

// GroupByMethod groups conflicts by the phase that detected them
func GroupByMethod(conflicts []models.Conflict) map[models.DetectionMethod][]models.Conflict {
	grouped := make(map[models.DetectionMethod][]models.Conflict)

	for _, c := range conflicts {
		grouped[c.DetectedBy] = append(grouped[c.DetectedBy], c)
	}

	return grouped
}
