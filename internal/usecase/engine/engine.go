// Package engine owns the retrieval lifecycle: model initialization, the corpus,
// and the dense, lexical and hybrid search paths.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/ragsearch/internal/corpus"
	"github.com/kailas-cloud/ragsearch/internal/domain"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/request"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/response"
	"github.com/kailas-cloud/ragsearch/internal/metrics"
	"github.com/kailas-cloud/ragsearch/internal/usecase/dense"
	"github.com/kailas-cloud/ragsearch/internal/usecase/lexical"
	"github.com/kailas-cloud/ragsearch/internal/usecase/search"
)

const initKey = "init"

// Stats is a read-only diagnostic snapshot of the engine.
type Stats struct {
	VectorCount   int  `json:"vectorCount"`
	IsInitialized bool `json:"isInitialized"`
	ModelLoaded   bool `json:"modelLoaded"`
	Dimensions    int  `json:"dimensions"`
}

type modelHandle struct {
	embedder domain.Embedder
}

// Engine is the hybrid retrieval engine. Construct with New, then Initialize.
type Engine struct {
	loader ModelLoader
	source corpus.Source
	store  *corpus.Store
	search *search.Service

	initGroup   singleflight.Group
	model       atomic.Pointer[modelHandle]
	initialized atomic.Bool
	timeout     time.Duration

	logger *zap.Logger
}

type settings struct {
	sink     corpus.Sink
	timeout  time.Duration
	backfill bool
}

// Option configures an Engine.
type Option func(*settings)

// WithSink persists entries added through AddVector.
func WithSink(sink corpus.Sink) Option {
	return func(s *settings) { s.sink = sink }
}

// WithBackfill embeds loaded corpus entries that have no stored embedding.
func WithBackfill() Option {
	return func(s *settings) { s.backfill = true }
}

// WithSearchTimeout bounds every search call.
func WithSearchTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

// New wires an engine. Nothing is loaded until Initialize or the first search.
func New(loader ModelLoader, source corpus.Source, logger *zap.Logger, opts ...Option) *Engine {
	var cfg settings
	for _, opt := range opts {
		opt(&cfg)
	}

	e := &Engine{loader: loader, source: source, logger: logger, timeout: cfg.timeout}

	var storeOpts []corpus.Option
	if cfg.sink != nil {
		storeOpts = append(storeOpts, corpus.WithSink(cfg.sink))
	}
	if cfg.backfill {
		storeOpts = append(storeOpts, corpus.WithBackfill())
	}
	e.store = corpus.New(e, logger, storeOpts...)
	e.search = search.New(e.store,
		dense.New(e.store, e, logger),
		lexical.New(e.store, logger),
		logger,
		search.WithTimeout(cfg.timeout),
	)
	return e
}

// Initialize loads the embedding model and then the corpus. Concurrent callers
// share one in-flight initialization. The load itself is detached from ctx; ctx
// only bounds how long this caller waits for it. A failure leaves the engine
// uninitialized so a later call retries.
func (e *Engine) Initialize(ctx context.Context) error {
	if e.initialized.Load() {
		return nil
	}

	ch := e.initGroup.DoChan(initKey, func() (any, error) {
		if e.initialized.Load() {
			return nil, nil
		}
		// Shared by every waiter, so one caller's cancellation must not fail the rest.
		initCtx := context.WithoutCancel(ctx)

		start := time.Now()
		model, err := e.loader.Load(initCtx)
		if err != nil {
			metrics.EngineInitTotal.WithLabelValues("error").Inc()
			e.logger.Error("Engine initialization failed", zap.Error(err))
			return nil, fmt.Errorf("%w: %w", domain.ErrInitialization, err)
		}
		e.model.Store(&modelHandle{embedder: model})

		n := e.store.Load(initCtx, e.source)
		metrics.CorpusEntries.Set(float64(n))

		e.initialized.Store(true)
		metrics.EngineInitTotal.WithLabelValues("success").Inc()
		e.logger.Info("Engine initialized",
			zap.Int("entries", n),
			zap.Duration("duration", time.Since(start)),
		)
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err //nolint:wrapcheck // already wrapped with ErrInitialization
	case <-ctx.Done():
		return fmt.Errorf("wait for initialization: %w", ctx.Err())
	}
}

// prepare bounds ctx by the search timeout and initializes the engine within
// that bound, so a slow model load cannot outlive the search deadline.
func (e *Engine) prepare(ctx context.Context, topK int) (context.Context, context.CancelFunc, error) {
	if err := request.ValidateTopK(topK); err != nil {
		return ctx, func() {}, err
	}
	cancel := context.CancelFunc(func() {})
	if e.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
	}
	if err := e.Initialize(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", domain.ErrSearchTimeout, err)
		}
		return ctx, cancel, err
	}
	return ctx, cancel, nil
}

// Model returns the loaded embedding model, initializing the engine on first use.
func (e *Engine) Model(ctx context.Context) (domain.Embedder, error) {
	if h := e.model.Load(); h != nil {
		return h.embedder, nil
	}
	if err := e.Initialize(ctx); err != nil {
		return nil, err
	}
	return e.model.Load().embedder, nil
}

// Search runs dense retrieval only.
func (e *Engine) Search(ctx context.Context, query string, topK int) response.Response {
	start := time.Now()
	ctx, cancel, err := e.prepare(ctx, topK)
	defer cancel()

	var resp response.Response
	if err != nil {
		resp = response.Failed(err)
	} else {
		resp = e.search.Semantic(ctx, query, topK)
	}
	observe(mode.Semantic, resp, start)
	return resp
}

// LexicalSearch runs BM25 retrieval only. It never triggers initialization.
func (e *Engine) LexicalSearch(ctx context.Context, query string, topK int) response.Response {
	start := time.Now()
	var resp response.Response
	if err := request.ValidateTopK(topK); err != nil {
		resp = response.Failed(err)
	} else {
		resp = e.search.Keyword(ctx, query, topK)
	}
	observe(mode.Keyword, resp, start)
	return resp
}

// HybridSearch fuses dense and lexical retrieval. The error is non-nil only for
// an invalid alpha or topK; every other failure is reported through the response status.
func (e *Engine) HybridSearch(ctx context.Context, query string, topK int, alpha float64) (response.Response, error) {
	if err := request.ValidateAlpha(alpha); err != nil {
		return response.Response{}, err
	}
	if err := request.ValidateTopK(topK); err != nil {
		return response.Response{}, err
	}
	start := time.Now()
	ctx, cancel, err := e.prepare(ctx, topK)
	defer cancel()

	var resp response.Response
	if err != nil {
		resp = response.Failed(err)
	} else {
		if resp, err = e.search.Hybrid(ctx, query, topK, alpha); err != nil {
			return response.Response{}, fmt.Errorf("hybrid search: %w", err)
		}
	}
	observe(mode.Hybrid, resp, start)
	return resp, nil
}

// Execute runs a validated request on the path named by its mode.
func (e *Engine) Execute(ctx context.Context, req *request.Request) response.Response {
	switch req.Mode() {
	case mode.Semantic:
		return e.Search(ctx, req.Query(), req.TopK())
	case mode.Keyword:
		return e.LexicalSearch(ctx, req.Query(), req.TopK())
	default:
		resp, err := e.HybridSearch(ctx, req.Query(), req.TopK(), req.Alpha())
		if err != nil {
			return response.Failed(err)
		}
		return resp
	}
}

// AddVector embeds text and appends it to the corpus, returning the new ID.
func (e *Engine) AddVector(ctx context.Context, text string, metadata map[string]any) (string, error) {
	if err := e.Initialize(ctx); err != nil {
		return "", err
	}
	id, err := e.store.Add(ctx, text, metadata)
	if err != nil {
		return "", fmt.Errorf("add vector: %w", err)
	}
	metrics.CorpusEntries.Set(float64(e.store.Snapshot().Len()))
	return id, nil
}

// RemoveVector deletes an entry from the corpus.
func (e *Engine) RemoveVector(ctx context.Context, id string) error {
	if !e.store.Remove(ctx, id) {
		return fmt.Errorf("vector %q: %w", id, domain.ErrNotFound)
	}
	metrics.CorpusEntries.Set(float64(e.store.Snapshot().Len()))
	return nil
}

// ClearVectors empties the corpus.
func (e *Engine) ClearVectors(ctx context.Context) {
	e.store.Clear(ctx)
	metrics.CorpusEntries.Set(0)
}

// Stats returns corpus size and lifecycle state.
func (e *Engine) Stats() Stats {
	snap := e.store.Snapshot()
	return Stats{
		VectorCount:   snap.Len(),
		IsInitialized: e.initialized.Load(),
		ModelLoaded:   e.model.Load() != nil,
		Dimensions:    snap.Dim(),
	}
}

// Ready reports whether initialization has completed.
func (e *Engine) Ready() bool { return e.initialized.Load() }

func observe(m mode.Mode, resp response.Response, start time.Time) {
	metrics.SearchRequestsTotal.WithLabelValues(string(m), string(resp.Status)).Inc()
	metrics.SearchDuration.WithLabelValues(string(m)).Observe(time.Since(start).Seconds())
	metrics.SearchResults.WithLabelValues(string(m)).Observe(float64(len(resp.Results)))
}
