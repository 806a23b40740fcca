package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaProvider_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req ollamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.1", req.Model)
		assert.Equal(t, "json", req.Format)
		assert.False(t, req.Stream)
		assert.Equal(t, 256, req.Options.NumPredict)

		_ = json.NewEncoder(w).Encode(ollamaResponse{Model: req.Model, Response: " {\"ok\": true} ", Done: true})
	}))
	defer server.Close()

	p, err := NewOllamaProvider(Config{BaseURL: server.URL + "/", Model: "llama3.1"})
	require.NoError(t, err)

	out, err := p.Generate(context.Background(), GenerateRequest{
		Prompt:  "hello",
		Format:  FormatJSON,
		Options: Options{MaxTokens: 256},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ok": true}`, out)
}

func TestOllamaProvider_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(ollamaError{Error: "model not found"})
	}))
	defer server.Close()

	p, err := NewOllamaProvider(Config{BaseURL: server.URL, Model: "missing"})
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), GenerateRequest{Prompt: "hello"})
	require.Error(t, err)

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "ollama", pe.Provider)
	assert.Equal(t, "missing", pe.Model)
	assert.Contains(t, err.Error(), "model not found")
}

func TestOllamaProvider_Defaults(t *testing.T) {
	p, err := NewOllamaProvider(Config{})
	require.NoError(t, err)

	assert.Equal(t, "ollama", p.Name())
	assert.Equal(t, DefaultConfig().Model, p.Model())
	assert.Equal(t, DefaultConfig().BaseURL, p.baseURL)
}
