package llm

import (
	"context"
	"time"
)

// FormatJSON asks the provider to constrain its output to a JSON document
const FormatJSON = "json"

// Provider is a text generation backend used for verification, resolution
// and extraction prompts.
type Provider interface {
	// Name returns the provider name, e.g. "ollama"
	Name() string

	// Model returns the model identifier requests are sent to
	Model() string

	// Generate runs a single prompt and returns the raw model output
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GenerateRequest is a single prompt submission
type GenerateRequest struct {
	Prompt string

	// System is an optional system instruction
	System string

	// Format is FormatJSON or empty for free text
	Format string

	Options Options
}

// Options tunes a generation call
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "ollama", "openai", "anthropic"
	Provider string `mapstructure:"provider"`

	// Model name (provider-specific)
	Model string `mapstructure:"model"`

	// APIKey for OpenAI/Anthropic
	APIKey string `mapstructure:"api_key"`

	// BaseURL for custom endpoints
	BaseURL string `mapstructure:"base_url"`

	Timeout time.Duration `mapstructure:"timeout"`

	MaxTokens int `mapstructure:"max_tokens"`

	// RequestsPerSecond throttles calls when positive
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// DefaultConfig returns defaults targeting a local Ollama
func DefaultConfig() Config {
	return Config{
		Provider:  "ollama",
		Model:     "llama3.1",
		BaseURL:   "http://localhost:11434",
		Timeout:   60 * time.Second,
		MaxTokens: 1024,
	}
}
