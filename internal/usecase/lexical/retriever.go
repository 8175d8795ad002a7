package lexical

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragsearch/internal/corpus"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/response"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/result"
	"github.com/kailas-cloud/ragsearch/internal/tokenizer"
)

// ctxCheckInterval is how many documents are scored between cancellation checks.
const ctxCheckInterval = 256

// Retriever ranks corpus entries by BM25 relevance to the query.
type Retriever struct {
	corpus SnapshotReader
	logger *zap.Logger
}

// New creates a lexical retriever.
func New(corpus SnapshotReader, logger *zap.Logger) *Retriever {
	return &Retriever{corpus: corpus, logger: logger}
}

// Search returns the topK entries with a positive BM25 score, best first.
// Corpus statistics are computed from the current snapshot on every call.
func (r *Retriever) Search(ctx context.Context, query string, topK int) response.Response {
	return r.Rank(ctx, r.corpus.Snapshot(), query, topK)
}

// Rank is Search over a caller-held snapshot.
func (r *Retriever) Rank(ctx context.Context, snap *corpus.Snapshot, query string, topK int) response.Response {
	queryTokens := tokenizer.Tokenize(query)
	if len(queryTokens) == 0 {
		return response.Empty()
	}

	entries := snap.Entries()
	n := len(entries)
	if n == 0 {
		return response.Empty()
	}

	docs := make([]tokenizer.Document, n)
	var totalLen int
	for i := range entries {
		docs[i] = tokenizer.NewDocument(entries[i].Text())
		totalLen += docs[i].Len()
	}
	avgDocLen := float64(totalLen) / float64(n)
	if avgDocLen == 0 {
		return response.Empty()
	}

	df := make(map[string]int, len(queryTokens))
	for _, term := range queryTokens {
		if _, ok := df[term]; ok {
			continue
		}
		var count int
		for i := range docs {
			if docs[i].Contains(term) {
				count++
			}
		}
		df[term] = count
	}

	results := make([]result.Result, 0)
	for i := range docs {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				r.logger.Warn("Lexical search cancelled", zap.Error(err))
				return response.Failed(err)
			}
		}
		score := Score(queryTokens, docs[i], avgDocLen, df, n)
		if score > 0 {
			results = append(results, result.FromEntry(&entries[i], score))
		}
	}

	result.SortByScore(results)
	return response.Found(result.Detached(result.Truncate(results, topK)))
}
