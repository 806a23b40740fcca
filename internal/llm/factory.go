package llm

import (
	"fmt"
	"strings"
)

// NewProvider creates a provider from configuration. When RequestsPerSecond
// is positive the provider is wrapped in a rate limiter.
func NewProvider(config Config) (Provider, error) {
	var (
		p   Provider
		err error
	)

	switch strings.ToLower(config.Provider) {
	case "", "ollama":
		p, err = NewOllamaProvider(config)
	case "openai", "openrouter":
		p, err = NewOpenAIProvider(config)
	case "anthropic", "claude":
		p, err = NewAnthropicProvider(config)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: ollama, openai, anthropic)", config.Provider)
	}
	if err != nil {
		return nil, err
	}

	if config.RequestsPerSecond > 0 {
		p = NewRateLimited(p, config.RequestsPerSecond, config.Burst)
	}

	return p, nil
}
