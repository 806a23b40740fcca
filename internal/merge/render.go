package merge

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/todmy/doc-consolidator/pkg/models"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// renderContent produces the consolidated markdown document
func renderContent(title string, sections []models.MergedSection) string {
	parts := make([]string, 0, len(sections)+1)
	parts = append(parts, "# "+title)
	for _, s := range sections {
		parts = append(parts, "## "+s.Header+"\n\n"+s.Content)
	}
	return strings.Join(parts, "\n\n") + "\n"
}

// RenderHTML converts the consolidated markdown content to HTML
func RenderHTML(result *models.MergeResult) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(result.Content), &buf); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}
