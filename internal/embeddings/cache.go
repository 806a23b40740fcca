package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
)

// Cache defines the interface for embedding cache
type Cache interface {
	// GetMulti retrieves multiple embeddings from cache
	// Returns a map of key -> embedding for found entries
	GetMulti(ctx context.Context, keys []string) (map[string][]float32, error)

	// SetMulti stores multiple embeddings in cache
	SetMulti(ctx context.Context, embeddings map[string][]float32) error
}

// GenerateCacheKey creates a cache key from model and text
func GenerateCacheKey(model, text string) string {
	h := sha256.New()
	h.Write([]byte(model + ":" + text))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// CachedClient wraps an Embedder with caching. Claim triples are embedded
// once per detection run and again on persistence, so the second pass is
// served from cache.
type CachedClient struct {
	embedder Embedder
	model    string
	cache    Cache
	log      *slog.Logger
}

// NewCachedClient creates a new cached embedding client. model namespaces
// the cache keys so switching models never returns stale vectors.
func NewCachedClient(embedder Embedder, model string, cache Cache, log *slog.Logger) *CachedClient {
	if log == nil {
		log = slog.Default()
	}
	return &CachedClient{
		embedder: embedder,
		model:    model,
		cache:    cache,
		log:      log,
	}
}

// EmbedTexts generates embeddings with caching
func (c *CachedClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = GenerateCacheKey(c.model, text)
	}

	cached, err := c.cache.GetMulti(ctx, keys)
	if err != nil {
		c.log.Warn("embedding cache read failed", "error", err)
		cached = make(map[string][]float32)
	}

	// Identical texts share a key; embed each distinct key once
	var uncachedTexts []string
	var uncachedKeys []string
	pending := make(map[string]bool)
	for i, key := range keys {
		if _, ok := cached[key]; ok || pending[key] {
			continue
		}
		pending[key] = true
		uncachedTexts = append(uncachedTexts, texts[i])
		uncachedKeys = append(uncachedKeys, key)
	}

	if len(uncachedTexts) > 0 {
		newEmbeddings, err := c.embedder.EmbedTexts(ctx, uncachedTexts)
		if err != nil {
			return nil, err
		}

		toCache := make(map[string][]float32, len(uncachedKeys))
		for i, key := range uncachedKeys {
			toCache[key] = newEmbeddings[i]
			cached[key] = newEmbeddings[i]
		}
		if err := c.cache.SetMulti(ctx, toCache); err != nil {
			c.log.Warn("embedding cache write failed", "error", err)
		}
	}

	results := make([][]float32, len(texts))
	for i, key := range keys {
		results[i] = cached[key]
	}

	return results, nil
}
