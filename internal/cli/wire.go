package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/todmy/doc-consolidator/internal/config"
	"github.com/todmy/doc-consolidator/internal/contradiction"
	"github.com/todmy/doc-consolidator/internal/embeddings"
	"github.com/todmy/doc-consolidator/internal/extract"
	"github.com/todmy/doc-consolidator/internal/graph"
	"github.com/todmy/doc-consolidator/internal/llm"
	"github.com/todmy/doc-consolidator/internal/merge"
	"github.com/todmy/doc-consolidator/internal/pipeline"
)

const memoryCacheCleanup = 10 * time.Minute

// components are the long-lived pieces built from configuration
type components struct {
	Provider llm.Provider
	Embedder embeddings.Embedder
	Graph    graph.Store
	Pipeline *pipeline.Pipeline

	closers []func(context.Context) error
}

// Close releases every connection opened by build
func (c *components) Close(ctx context.Context) error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i](ctx))
	}
	return errors.Join(errs...)
}

// build wires providers, embeddings, the graph store and the pipeline
func (a *app) build(ctx context.Context, cfg *config.Config, log *slog.Logger) (*components, error) {
	c := &components{Graph: graph.NopStore{}}

	if !a.noLLM {
		p, err := a.newProvider(cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("create LLM provider: %w", err)
		}
		c.Provider = p
	}

	if cfg.Embeddings.Enabled {
		e, err := c.buildEmbedder(ctx, cfg.Embeddings, log)
		if err != nil {
			c.Close(ctx)
			return nil, err
		}
		c.Embedder = e
	}

	if cfg.Graph.Enabled {
		store, err := graph.NewNeo4jStore(cfg.Graph.Config)
		if err != nil {
			c.Close(ctx)
			return nil, err
		}
		c.Graph = store
		c.closers = append(c.closers, store.Close)
	}

	c.Pipeline = &pipeline.Pipeline{
		Detector: contradiction.NewDetector(c.Embedder, c.Graph, c.Provider, cfg.Detector, log),
		Merger:   merge.NewEngine(c.Provider, log),
		Embedder: c.Embedder,
		Graph:    c.Graph,
		Log:      log,
	}
	if c.Provider != nil {
		c.Pipeline.Extractor = extract.NewExtractor(c.Provider, cfg.Extraction.MaxConcurrent, log)
	}

	return c, nil
}

func (c *components) buildEmbedder(ctx context.Context, cfg config.EmbeddingsConfig, log *slog.Logger) (embeddings.Embedder, error) {
	client := embeddings.NewClient(cfg.APIKey,
		embeddings.WithBaseURL(cfg.BaseURL),
		embeddings.WithModel(cfg.Model),
		embeddings.WithBatchSize(cfg.BatchSize),
		embeddings.WithMaxConcurrent(cfg.MaxConcurrent),
		embeddings.WithTimeout(cfg.Timeout),
	)

	var cache embeddings.Cache
	switch cfg.Cache.Backend {
	case config.CacheMemory:
		cache = embeddings.NewMemoryCache(cfg.Cache.TTL, memoryCacheCleanup)
	case config.CacheRedis:
		opts, err := redis.ParseURL(cfg.Cache.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		c.closers = append(c.closers, func(context.Context) error { return rdb.Close() })
		cache = embeddings.NewRedisCache(rdb, cfg.Cache.TTL)
	default:
		return client, nil
	}

	return embeddings.NewCachedClient(client, client.Model(), cache, log), nil
}
