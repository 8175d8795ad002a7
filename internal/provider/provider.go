// Package provider builds the configured embedding provider and its decorator chain.
package provider

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragsearch/internal/config"
	"github.com/kailas-cloud/ragsearch/internal/domain"
	"github.com/kailas-cloud/ragsearch/internal/metrics"
	"github.com/kailas-cloud/ragsearch/internal/repository/embcache"
	"github.com/kailas-cloud/ragsearch/internal/repository/querycache"
	"github.com/kailas-cloud/ragsearch/internal/transport/hashemb"
	"github.com/kailas-cloud/ragsearch/internal/transport/langchain"
	openaiEmb "github.com/kailas-cloud/ragsearch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/ragsearch/internal/usecase/embedding"
)

// New builds the base provider named by cfg.Provider. No network calls are made.
func New(cfg config.EmbeddingConfig, logger *zap.Logger) (domain.Embedder, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Provider:   cfg.Provider,
			Logger:     logger,
		}), nil
	case config.ProviderLangchain:
		emb, err := langchain.NewEmbedder(&langchain.Config{
			BaseURL:   cfg.BaseURL,
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			BatchSize: cfg.BatchSize,
			Provider:  cfg.Provider,
			Logger:    logger,
		})
		if err != nil {
			return nil, fmt.Errorf("langchain provider: %w", err)
		}
		return emb, nil
	case config.ProviderHash:
		return hashemb.New(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// KVStore is the Redis surface used by the embedding cache.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Decorate wraps base, innermost first: Redis cache (when kv is non-nil),
// in-memory LRU, instrumentation, instruction prefix.
func Decorate(
	base domain.Embedder,
	cfg config.EmbeddingConfig,
	kv KVStore,
	keyPrefix string,
	logger *zap.Logger,
) (domain.Embedder, error) {
	emb := base
	if kv != nil {
		emb = embcache.New(emb, kv, embcache.Config{
			KeyPrefix: fmt.Sprintf("%semb_cache:%s:%s:", keyPrefix, cfg.Provider, modelName(cfg)),
			TTL:       time.Duration(cfg.CacheTTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, logger)
	}
	if cfg.CacheSize > 0 {
		lru, err := querycache.New(emb, cfg.CacheSize, metrics.EmbeddingCacheTotal)
		if err != nil {
			return nil, fmt.Errorf("query cache: %w", err)
		}
		emb = lru
	}
	emb = embeddinguc.NewInstrumentedEmbedder(emb, cfg.Provider, modelName(cfg), logger)
	if cfg.Instruction != "" {
		emb = domain.NewInstructionEmbedder(emb, cfg.Instruction)
	}
	return emb, nil
}

// modelName labels metrics and cache keys. The hash provider has no model name.
func modelName(cfg config.EmbeddingConfig) string {
	if cfg.Model != "" {
		return cfg.Model
	}
	if cfg.Provider == config.ProviderHash {
		d := cfg.Dimensions
		if d <= 0 {
			d = hashemb.DefaultDimensions
		}
		return fmt.Sprintf("fnv-%d", d)
	}
	return "default"
}
