package merge

import (
	"regexp"
	"strings"
)

// glob is a compiled authority pattern. * matches any run of characters and
// ? matches one character. Matching is case-insensitive over the whole path.
type glob struct {
	pattern string
	re      *regexp.Regexp
}

func compileGlob(pattern string) glob {
	var b strings.Builder
	b.WriteString("(?is)^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")

	return glob{pattern: pattern, re: regexp.MustCompile(b.String())}
}

func compileGlobs(patterns []string) []glob {
	out := make([]glob, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, compileGlob(p))
	}
	return out
}

func (g glob) match(path string) bool {
	return g.re.MatchString(path)
}
