package llm

import (
	"encoding/json"
	"strings"
)

// DecodeJSON unmarshals a model response into v and runs validate on the
// result. Markdown code fences and leading prose are tolerated. Any failure
// is reported as a *ParseError carrying the provider and model.
func DecodeJSON(p Provider, raw string, v any, validate func() error) error {
	body := extractJSON(raw)
	if body == "" {
		return &ParseError{Provider: p.Name(), Model: p.Model(), Message: "no JSON object in response", Raw: raw}
	}

	if err := json.Unmarshal([]byte(body), v); err != nil {
		return &ParseError{Provider: p.Name(), Model: p.Model(), Message: err.Error(), Raw: raw}
	}

	if validate != nil {
		if err := validate(); err != nil {
			return &ParseError{Provider: p.Name(), Model: p.Model(), Message: err.Error(), Raw: raw}
		}
	}

	return nil
}

func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}
