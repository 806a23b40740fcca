package contradiction

import "github.com/todmy/doc-consolidator/pkg/models"

// Deduplicate keeps the first conflict for each unordered claim pair
func Deduplicate(conflicts []models.Conflict) []models.Conflict {
	seen := make(map[string]struct{}, len(conflicts))
	out := make([]models.Conflict, 0, len(conflicts))

	for _, c := range conflicts {
		key := c.PairKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}

	return out
}
