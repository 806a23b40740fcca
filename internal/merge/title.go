package merge

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/todmy/doc-consolidator/pkg/models"
)

// DefaultTitle is used when no document title contributes a word
const DefaultTitle = "Consolidated Document"

// generateTitle joins the three most frequent title words longer than three
// characters. Equal counts keep first-appearance order.
func generateTitle(documents []models.Document) string {
	type wordCount struct {
		word  string
		count int
		first int
	}

	counts := make(map[string]*wordCount)
	var seen int
	for _, doc := range documents {
		words := strings.FieldsFunc(strings.ToLower(doc.Title), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, w := range words {
			if utf8.RuneCountInString(w) <= 3 {
				continue
			}
			if wc, ok := counts[w]; ok {
				wc.count++
				continue
			}
			counts[w] = &wordCount{word: w, count: 1, first: seen}
			seen++
		}
	}

	if len(counts) == 0 {
		return DefaultTitle
	}

	ranked := make([]*wordCount, 0, len(counts))
	for _, wc := range counts {
		ranked = append(ranked, wc)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].first < ranked[j].first
	})

	if len(ranked) > 3 {
		ranked = ranked[:3]
	}

	caser := cases.Title(language.English)
	words := make([]string, 0, len(ranked))
	for _, wc := range ranked {
		words = append(words, caser.String(wc.word))
	}
	return strings.Join(words, " ")
}
