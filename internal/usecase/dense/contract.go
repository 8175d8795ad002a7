package dense

import (
	"context"

	"github.com/kailas-cloud/ragsearch/internal/corpus"
	"github.com/kailas-cloud/ragsearch/internal/domain"
)

// SnapshotReader exposes the current corpus view.
type SnapshotReader interface {
	Snapshot() *corpus.Snapshot
}

// ModelResolver returns the embedding model, initializing it on first use.
type ModelResolver interface {
	Model(ctx context.Context) (domain.Embedder, error)
}
