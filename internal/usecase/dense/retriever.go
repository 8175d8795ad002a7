package dense

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragsearch/internal/corpus"
	"github.com/kailas-cloud/ragsearch/internal/domain"
	"github.com/kailas-cloud/ragsearch/internal/domain/entry"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/response"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/result"
)

// Retriever ranks corpus entries by cosine similarity to the query embedding.
type Retriever struct {
	corpus SnapshotReader
	models ModelResolver
	logger *zap.Logger
}

// New creates a dense retriever.
func New(corpus SnapshotReader, models ModelResolver, logger *zap.Logger) *Retriever {
	return &Retriever{corpus: corpus, models: models, logger: logger}
}

// Search embeds query and returns the topK most similar entries of the current corpus.
// Per-query failures degrade to an empty response and are never returned as errors.
func (r *Retriever) Search(ctx context.Context, query string, topK int) response.Response {
	return r.Rank(ctx, r.corpus.Snapshot(), query, topK)
}

// Rank is Search over a caller-held snapshot.
func (r *Retriever) Rank(ctx context.Context, snap *corpus.Snapshot, query string, topK int) response.Response {
	if snap.Len() == 0 {
		return response.Empty()
	}

	model, err := r.models.Model(ctx)
	if err != nil {
		r.logger.Warn("Dense search: model unavailable", zap.Error(err))
		return response.Failed(err)
	}

	emb, err := model.Embed(ctx, query)
	if err != nil {
		r.logger.Warn("Dense search: query embedding failed", zap.Error(err))
		return response.Failed(fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err))
	}
	if len(emb.Embedding) == 0 {
		r.logger.Warn("Dense search: empty query embedding")
		return response.Failed(fmt.Errorf("empty query embedding: %w", domain.ErrEmbeddingProviderError))
	}

	return response.Found(r.rank(snap.Entries(), emb.Embedding, topK))
}

func (r *Retriever) rank(entries []entry.Entry, q []float32, topK int) []result.Result {
	valid := make([]*entry.Entry, 0, len(entries))
	for i := range entries {
		if entries[i].HasValidEmbedding(len(q)) {
			valid = append(valid, &entries[i])
		}
	}
	if skipped := len(entries) - len(valid); skipped > 0 {
		r.logger.Debug("Dense search: skipped malformed entries", zap.Int("skipped", skipped))
	}

	scores := cosineScores(q, valid)
	if scores == nil {
		return nil
	}

	results := make([]result.Result, len(valid))
	for i, e := range valid {
		results[i] = result.FromEntry(e, scores[i])
	}
	result.SortByScore(results)
	return result.Detached(result.Truncate(results, topK))
}
