package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/ragsearch/internal/corpus"
	"github.com/kailas-cloud/ragsearch/internal/domain"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/request"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/response"
)

// Service handles search across semantic, keyword, and hybrid modes.
type Service struct {
	corpus  SnapshotReader
	dense   Retriever
	lexical Retriever
	timeout time.Duration
	logger  *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithTimeout bounds every search call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// New creates a search service.
func New(corpus SnapshotReader, dense, lexical Retriever, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{corpus: corpus, dense: dense, lexical: lexical, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search dispatches a validated request to the retrieval path named by its mode.
func (s *Service) Search(ctx context.Context, req *request.Request) response.Response {
	switch req.Mode() {
	case mode.Semantic:
		return s.Semantic(ctx, req.Query(), req.TopK())
	case mode.Keyword:
		return s.Keyword(ctx, req.Query(), req.TopK())
	default:
		return s.hybrid(ctx, req.Query(), req.TopK(), req.Alpha())
	}
}

// Semantic runs dense retrieval only.
func (s *Service) Semantic(ctx context.Context, query string, topK int) response.Response {
	return s.bounded(ctx, func(ctx context.Context) response.Response {
		return s.dense.Rank(ctx, s.corpus.Snapshot(), query, topK)
	})
}

// Keyword runs BM25 retrieval only.
func (s *Service) Keyword(ctx context.Context, query string, topK int) response.Response {
	return s.bounded(ctx, func(ctx context.Context) response.Response {
		return s.lexical.Rank(ctx, s.corpus.Snapshot(), query, topK)
	})
}

// Hybrid runs dense and lexical retrieval concurrently and fuses them via weighted RRF.
// alpha is the dense weight; values outside [0, 1] are rejected.
func (s *Service) Hybrid(ctx context.Context, query string, topK int, alpha float64) (response.Response, error) {
	if err := request.ValidateAlpha(alpha); err != nil {
		return response.Response{}, err
	}
	return s.hybrid(ctx, query, topK, alpha), nil
}

func (s *Service) hybrid(ctx context.Context, query string, topK int, alpha float64) response.Response {
	return s.bounded(ctx, func(ctx context.Context) response.Response {
		snap := s.corpus.Snapshot()
		if snap.Len() == 0 {
			return response.Empty()
		}
		candidates := min(2*topK, snap.Len())

		semantic, lexical := s.fanOut(ctx, snap, query, candidates)

		switch {
		case semantic.IsDegraded() && lexical.IsDegraded():
			return response.Failed(errors.Join(semantic.Cause, lexical.Cause))
		case semantic.IsDegraded():
			s.logger.Warn("Hybrid search: dense retrieval degraded, using lexical only", zap.Error(semantic.Cause))
		case lexical.IsDegraded():
			s.logger.Warn("Hybrid search: lexical retrieval degraded, using dense only", zap.Error(lexical.Cause))
		}

		return response.Found(fuseRRF(semantic.Results, lexical.Results, alpha, topK))
	})
}

// fanOut runs both retrievers over the same snapshot and joins their results.
func (s *Service) fanOut(
	ctx context.Context, snap *corpus.Snapshot, query string, topK int,
) (semantic, lexical response.Response) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		semantic = s.dense.Rank(gctx, snap, query, topK)
		return nil
	})
	g.Go(func() error {
		lexical = s.lexical.Rank(gctx, snap, query, topK)
		return nil
	})
	_ = g.Wait()
	return semantic, lexical
}

// bounded runs fn under the service timeout. On expiry the in-flight call is
// cancelled and abandoned, and the response is degraded with ErrSearchTimeout.
func (s *Service) bounded(ctx context.Context, fn func(context.Context) response.Response) response.Response {
	if s.timeout <= 0 {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan response.Response, 1)
	go func() { done <- fn(ctx) }()

	select {
	case resp := <-done:
		if resp.IsDegraded() && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return s.timedOut()
		}
		return resp
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return s.timedOut()
		}
		return response.Failed(ctx.Err())
	}
}

func (s *Service) timedOut() response.Response {
	s.logger.Warn("Search timed out", zap.Duration("timeout", s.timeout))
	return response.Failed(fmt.Errorf("%w after %s", domain.ErrSearchTimeout, s.timeout))
}
