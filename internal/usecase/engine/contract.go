package engine

import (
	"context"

	"github.com/kailas-cloud/ragsearch/internal/domain"
)

// ModelLoader builds the embedding model handle.
type ModelLoader interface {
	Load(ctx context.Context) (domain.Embedder, error)
}
