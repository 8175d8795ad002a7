package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragsearch/internal/domain"
)

// BuildFunc constructs the base provider embedder.
type BuildFunc func(ctx context.Context) (domain.Embedder, error)

// WrapFunc decorates the base embedder (caches, instrumentation, instructions).
type WrapFunc func(base domain.Embedder) domain.Embedder

// Loader builds the embedding model handle on demand.
type Loader struct {
	build  BuildFunc
	wrap   WrapFunc
	logger *zap.Logger
}

// NewLoader creates a model loader. wrap may be nil.
func NewLoader(build BuildFunc, wrap WrapFunc, logger *zap.Logger) *Loader {
	return &Loader{build: build, wrap: wrap, logger: logger}
}

// Load builds the provider, verifies it is reachable when it supports health checks,
// and returns the decorated embedder.
func (l *Loader) Load(ctx context.Context) (domain.Embedder, error) {
	base, err := l.build(ctx)
	if err != nil {
		return nil, fmt.Errorf("build embedder: %w", err)
	}

	if hc, ok := base.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return nil, fmt.Errorf("embedder health check: %w", err)
		}
	}

	l.logger.Info("Embedding model loaded")

	if l.wrap == nil {
		return base, nil
	}
	return l.wrap(base), nil
}
