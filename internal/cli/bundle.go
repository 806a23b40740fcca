package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/todmy/doc-consolidator/internal/merge"
	"github.com/todmy/doc-consolidator/internal/parser"
	"github.com/todmy/doc-consolidator/pkg/models"
)

// Bundle is the file format read and written by the CLI. JSON documents are
// valid YAML, so one reader serves both.
type Bundle struct {
	Documents []models.Document          `json:"documents" yaml:"documents"`
	Claims    []models.AtomicClaim       `json:"claims" yaml:"claims"`
	Conflicts []models.Conflict          `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
	Findings  []models.ValidationFinding `json:"findings,omitempty" yaml:"findings,omitempty"`
	Strategy  *models.MergeStrategy      `json:"strategy,omitempty" yaml:"strategy,omitempty"`
}

// readBundle decodes a bundle from path, or from stdin when path is "-"
func readBundle(path string, stdin io.Reader) (*Bundle, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read bundle: %w", err)
	}

	b := &Bundle{}
	if err := yaml.Unmarshal(data, b); err != nil {
		return nil, fmt.Errorf("decode bundle %s: %w", path, err)
	}
	return b, nil
}

func isMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".txt":
		return true
	}
	return false
}

// readInputs loads bundles and markdown files. Markdown files become
// documents without claims. Document ids default to the file name.
func readInputs(paths []string, stdin io.Reader) (*Bundle, []models.Document, error) {
	out := &Bundle{}
	var markdown []models.Document

	for _, path := range paths {
		if !isMarkdown(path) {
			b, err := readBundle(path, stdin)
			if err != nil {
				return nil, nil, err
			}
			out.Documents = append(out.Documents, b.Documents...)
			out.Claims = append(out.Claims, b.Claims...)
			out.Conflicts = append(out.Conflicts, b.Conflicts...)
			if b.Strategy != nil {
				out.Strategy = b.Strategy
			}
			continue
		}

		src, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("read document: %w", err)
		}
		opts := parser.Options{
			ID:         strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			SourcePath: path,
		}
		if info, err := os.Stat(path); err == nil {
			opts.CreatedAt = info.ModTime().UTC()
		}
		markdown = append(markdown, parser.ParseMarkdown(src, opts))
	}

	return out, markdown, nil
}

// Output formats
const (
	formatJSON     = "json"
	formatYAML     = "yaml"
	formatMarkdown = "markdown"
	formatHTML     = "html"
)

func encode(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
		_, err := w.Write(buf.Bytes())
		return err
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// writeResult renders a merge result in format
func writeResult(w io.Writer, format string, result *models.MergeResult) error {
	switch format {
	case formatMarkdown:
		_, err := io.WriteString(w, result.Content)
		return err
	case formatHTML:
		html, err := merge.RenderHTML(result)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, html)
		return err
	default:
		return encode(w, format, result)
	}
}
