// Package parser splits markdown documents into headed sections.
package parser

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/todmy/doc-consolidator/pkg/models"
)

var (
	linkRegex  = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	spaceRegex = regexp.MustCompile(`\s+`)
)

var md = goldmark.New()

// Options describe the document being parsed
type Options struct {
	ID         string
	SourcePath string
	CreatedAt  time.Time
}

// ParseMarkdown builds a document whose sections are the top-level headings
// of src. Text before the first heading becomes a level 0 section. The title
// is the first level 1 heading, or the file name without extension.
func ParseMarkdown(src []byte, opts Options) models.Document {
	src = bytes.ReplaceAll(src, []byte("\r\n"), []byte("\n"))
	root := md.Parser().Parse(text.NewReader(src))

	doc := models.Document{
		ID:         opts.ID,
		SourcePath: opts.SourcePath,
		CreatedAt:  opts.CreatedAt,
	}

	type heading struct {
		level     int
		title     string
		lineStart int
		bodyStart int
	}

	var headings []heading
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Lines().Len() == 0 {
			continue
		}
		lines := h.Lines()
		first, last := lines.At(0), lines.At(lines.Len()-1)

		headings = append(headings, heading{
			level:     h.Level,
			title:     headingText(src, lines),
			lineStart: lineStart(src, first.Start),
			bodyStart: skipSetextUnderline(src, lineEnd(src, trimNewline(src, last.Stop))),
		})
	}

	add := func(header string, level int, body []byte) {
		content := strings.TrimSpace(string(body))
		if header == "" && content == "" {
			return
		}
		doc.Sections = append(doc.Sections, models.Section{
			ID:         fmt.Sprintf("%s:%d", opts.ID, len(doc.Sections)),
			DocumentID: opts.ID,
			Header:     header,
			Level:      level,
			Content:    content,
		})
	}

	preambleEnd := len(src)
	if len(headings) > 0 {
		preambleEnd = headings[0].lineStart
	}
	add("", 0, src[:preambleEnd])

	for i, h := range headings {
		end := len(src)
		if i+1 < len(headings) {
			end = headings[i+1].lineStart
		}
		start := min(h.bodyStart, end)
		add(h.title, h.level, src[start:end])

		if doc.Title == "" && h.level == 1 {
			doc.Title = h.title
		}
	}

	if doc.Title == "" {
		base := filepath.Base(opts.SourcePath)
		doc.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	return doc
}

// CleanText strips inline markdown and normalizes whitespace
func CleanText(s string) string {
	s = linkRegex.ReplaceAllString(s, "$1")
	s = strings.NewReplacer("**", "", "__", "", "`", "").Replace(s)
	s = spaceRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func headingText(src []byte, lines *text.Segments) string {
	var b strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	return CleanText(b.String())
}

// trimNewline moves a segment stop back over a trailing newline
func trimNewline(src []byte, stop int) int {
	if stop > 0 && stop <= len(src) && src[stop-1] == '\n' {
		return stop - 1
	}
	return stop
}

func lineStart(src []byte, pos int) int {
	return bytes.LastIndexByte(src[:pos], '\n') + 1
}

// lineEnd returns the offset just past the newline ending the line at pos
func lineEnd(src []byte, pos int) int {
	if pos >= len(src) {
		return len(src)
	}
	if i := bytes.IndexByte(src[pos:], '\n'); i >= 0 {
		return pos + i + 1
	}
	return len(src)
}

// skipSetextUnderline steps over a === or --- line following a heading
func skipSetextUnderline(src []byte, pos int) int {
	end := lineEnd(src, pos)
	line := strings.TrimSpace(string(src[pos:end]))
	if line != "" && (strings.Trim(line, "=") == "" || strings.Trim(line, "-") == "") {
		return end
	}
	return pos
}
