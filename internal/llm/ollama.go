package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaProvider implements Provider against a local Ollama server
type OllamaProvider struct {
	baseURL    string
	model      string
	httpClient *http.Client
	config     Config
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Format  string        `json:"format,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type ollamaError struct {
	Error string `json:"error"`
}

// NewOllamaProvider creates a new Ollama provider
func NewOllamaProvider(config Config) (*OllamaProvider, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultConfig().BaseURL
	}
	if config.Model == "" {
		config.Model = DefaultConfig().Model
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &OllamaProvider{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      config.Model,
		httpClient: &http.Client{Timeout: timeout},
		config:     config,
	}, nil
}

// Name returns the provider name
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// Model returns the configured model
func (p *OllamaProvider) Model() string {
	return p.model
}

// Generate calls /api/generate without streaming
func (p *OllamaProvider) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	maxTokens := req.Options.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}

	body, err := json.Marshal(ollamaRequest{
		Model:  p.model,
		Prompt: req.Prompt,
		System: req.System,
		Format: req.Format,
		Stream: false,
		Options: ollamaOptions{
			Temperature: req.Options.Temperature,
			NumPredict:  maxTokens,
		},
	})
	if err != nil {
		return "", newProviderError(p, fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", newProviderError(p, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", newProviderError(p, fmt.Errorf("do request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newProviderError(p, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		var oe ollamaError
		if json.Unmarshal(respBody, &oe) == nil && oe.Error != "" {
			return "", newProviderError(p, fmt.Errorf("API error (status %d): %s", resp.StatusCode, oe.Error))
		}
		return "", newProviderError(p, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody)))
	}

	var or ollamaResponse
	if err := json.Unmarshal(respBody, &or); err != nil {
		return "", newProviderError(p, fmt.Errorf("unmarshal response: %w", err))
	}

	return strings.TrimSpace(or.Response), nil
}
