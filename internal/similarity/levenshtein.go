package similarity

// EditDistance returns the Levenshtein distance between a and b, computed
// over runes with unit cost for insertion, deletion and substitution.
func EditDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

// StringSimilarity returns the normalized Levenshtein similarity of a and b:
// (maxLen - distance) / maxLen. Identical strings score 1, and an empty
// string against a non-empty one scores 0.
func StringSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}

	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 1
	}

	return float64(maxLen-EditDistance(a, b)) / float64(maxLen)
}
