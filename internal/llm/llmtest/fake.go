// Package llmtest provides a scripted llm.Provider for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/todmy/doc-consolidator/internal/llm"
)

// Fake answers prompts through a responder function and records every call
type Fake struct {
	ModelName string
	Respond   func(req llm.GenerateRequest) (string, error)

	mu    sync.Mutex
	calls []llm.GenerateRequest
}

// Static returns a Fake that always answers with response
func Static(response string) *Fake {
	return &Fake{Respond: func(llm.GenerateRequest) (string, error) { return response, nil }}
}

// Name returns "fake"
func (f *Fake) Name() string { return "fake" }

// Model returns ModelName or "fake-model"
func (f *Fake) Model() string {
	if f.ModelName == "" {
		return "fake-model"
	}
	return f.ModelName
}

// Generate records the request and delegates to Respond
func (f *Fake) Generate(ctx context.Context, req llm.GenerateRequest) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.Respond == nil {
		return "{}", nil
	}
	return f.Respond(req)
}

// Calls returns a copy of the recorded requests
func (f *Fake) Calls() []llm.GenerateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]llm.GenerateRequest, len(f.calls))
	copy(out, f.calls)
	return out
}
