package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited throttles calls to an underlying provider
type RateLimited struct {
	Provider
	limiter *rate.Limiter
}

// NewRateLimited wraps p with a token bucket of the given rate and burst
func NewRateLimited(p Provider, requestsPerSecond float64, burst int) *RateLimited {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{
		Provider: p,
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Generate waits for a token before delegating
func (r *RateLimited) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", newProviderError(r.Provider, err)
	}
	return r.Provider.Generate(ctx, req)
}
