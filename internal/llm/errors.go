package llm

import (
	"errors"
	"fmt"
)

// ParseError reports a model response that is not valid JSON for the
// expected schema. It is distinct from a transport failure.
type ParseError struct {
	Provider string
	Model    string
	Message  string
	Raw      string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s/%s: unparseable response: %s", e.Provider, e.Model, e.Message)
}

// ProviderError reports a failed call to the provider itself
type ProviderError struct {
	Provider string
	Model    string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s/%s: %v", e.Provider, e.Model, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsParseError reports whether err wraps a *ParseError
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

func newProviderError(p Provider, err error) error {
	return &ProviderError{Provider: p.Name(), Model: p.Model(), Err: err}
}
