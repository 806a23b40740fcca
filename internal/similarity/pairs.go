package similarity

// SimilarPair represents a pair of similar items with their similarity score.
type SimilarPair struct {
	Idx1       int     // Index of first item
	Idx2       int     // Index of second item
	Similarity float64 // Similarity score (0-1)
}

// DefaultThreshold is the similarity above which two claims are compared
const DefaultThreshold = 0.80

// FindSimilarPairs finds all pairs of embeddings whose similarity is strictly
// above the threshold. Only pairs (i, j) with i < j are returned, in index
// order, so the output is deterministic for a given input.
func FindSimilarPairs(embeddings [][]float32, threshold float64) []SimilarPair {
	if len(embeddings) < 2 {
		return []SimilarPair{}
	}

	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	pairs := []SimilarPair{}
	for i := 0; i < len(embeddings); i++ {
		for j := i + 1; j < len(embeddings); j++ {
			sim := CosineSimilarity(embeddings[i], embeddings[j])
			if sim > threshold {
				pairs = append(pairs, SimilarPair{
					Idx1:       i,
					Idx2:       j,
					Similarity: sim,
				})
			}
		}
	}

	return pairs
}
