package corpus

import (
	"context"

	"github.com/kailas-cloud/ragsearch/internal/domain"
	"github.com/kailas-cloud/ragsearch/internal/domain/entry"
)

// Source bulk-loads the corpus, once at startup.
type Source interface {
	Load(ctx context.Context) ([]entry.Entry, error)
}

// Sink persists newly added entries.
type Sink interface {
	Save(ctx context.Context, entries []entry.Entry) error
}

// ModelResolver returns the embedding model, initializing it on first use.
type ModelResolver interface {
	Model(ctx context.Context) (domain.Embedder, error)
}

// Deleter is implemented by sinks that also mirror removals.
type Deleter interface {
	Delete(ctx context.Context, id string) (bool, error)
	Clear(ctx context.Context) (int64, error)
}

// EmptySource yields no entries. Used when no corpus source is configured.
type EmptySource struct{}

// Load implements Source.
func (EmptySource) Load(context.Context) ([]entry.Entry, error) { return nil, nil }
