package search

import (
	"context"

	"github.com/kailas-cloud/ragsearch/internal/corpus"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/response"
)

// Retriever ranks entries of a corpus snapshot for a query.
type Retriever interface {
	Rank(ctx context.Context, snap *corpus.Snapshot, query string, topK int) response.Response
}

// SnapshotReader exposes the current corpus view.
type SnapshotReader interface {
	Snapshot() *corpus.Snapshot
}
