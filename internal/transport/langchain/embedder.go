// Package langchain embeds text through langchaingo, for self-hosted
// OpenAI-compatible servers such as Ollama, llama.cpp or vLLM.
package langchain

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragsearch/internal/domain"
	"github.com/kailas-cloud/ragsearch/internal/metrics"
)

// noToken is sent to local servers that do not check credentials.
const noToken = "none"

// Config holds the langchaingo provider settings.
type Config struct {
	BaseURL   string
	APIKey    string
	Model     string
	BatchSize int
	Provider  string
	Logger    *zap.Logger
}

// Embedder adapts a langchaingo embeddings.Embedder to domain.Embedder.
type Embedder struct {
	inner    embeddings.Embedder
	model    string
	provider string
	logger   *zap.Logger
}

// NewEmbedder builds the OpenAI-compatible LLM client and wraps it in an embedder.
func NewEmbedder(cfg *Config) (*Embedder, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("langchain embedder: base URL is required")
	}
	token := cfg.APIKey
	if token == "" {
		token = noToken
	}

	client, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("langchain client: %w", err)
	}

	opts := []embeddings.Option{embeddings.WithStripNewLines(true)}
	if cfg.BatchSize > 0 {
		opts = append(opts, embeddings.WithBatchSize(cfg.BatchSize))
	}
	inner, err := embeddings.NewEmbedder(client, opts...)
	if err != nil {
		return nil, fmt.Errorf("langchain embedder: %w", err)
	}

	return newWithEmbedder(inner, cfg.Model, cfg.Provider, cfg.Logger), nil
}

func newWithEmbedder(inner embeddings.Embedder, model, provider string, logger *zap.Logger) *Embedder {
	if provider == "" {
		provider = "langchain"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{inner: inner, model: model, provider: provider, logger: logger}
}

// Embed implements domain.Embedder. langchaingo does not report token usage.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{Embedding: res.Embeddings[0]}, nil
}

// BatchEmbed implements domain.BatchEmbedder via EmbedDocuments.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	start := time.Now()
	vectors, err := e.inner.EmbedDocuments(ctx, texts)
	if err != nil {
		e.fail("api_error")
		e.logger.Debug("langchain embedding failed", zap.Int("inputs", len(texts)), zap.Error(err))
		return domain.BatchEmbeddingResult{}, fmt.Errorf("langchain embed: %w: %w", err, domain.ErrEmbeddingProviderError)
	}
	if len(vectors) != len(texts) {
		e.fail("count_mismatch")
		return domain.BatchEmbeddingResult{}, fmt.Errorf("expected %d embeddings, got %d: %w",
			len(texts), len(vectors), domain.ErrEmbeddingProviderError)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, e.model).Observe(time.Since(start).Seconds())

	return domain.BatchEmbeddingResult{Embeddings: vectors}, nil
}

func (e *Embedder) fail(kind string) {
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, e.model, "error").Inc()
	metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, e.model, kind).Inc()
}

// HealthCheck embeds a probe string; langchaingo exposes no cheaper endpoint.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.inner.EmbedQuery(ctx, "ping"); err != nil {
		return fmt.Errorf("langchain health check: %w", err)
	}
	return nil
}
