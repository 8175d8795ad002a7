package ragsearch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragsearch/internal/corpus"
	dbRedis "github.com/kailas-cloud/ragsearch/internal/db/redis"
	"github.com/kailas-cloud/ragsearch/internal/domain"
	"github.com/kailas-cloud/ragsearch/internal/domain/entry"
	corpusrepo "github.com/kailas-cloud/ragsearch/internal/repository/corpus"
	"github.com/kailas-cloud/ragsearch/internal/transport/hashemb"
	embeddinguc "github.com/kailas-cloud/ragsearch/internal/usecase/embedding"
	"github.com/kailas-cloud/ragsearch/internal/usecase/engine"
	healthuc "github.com/kailas-cloud/ragsearch/internal/usecase/health"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is an in-process hybrid retrieval engine.
type Client struct {
	store  *dbRedis.Store
	engine *engine.Engine
	health healthUseCase
	obs    *observer
}

// Document is a corpus entry supplied by the caller.
type Document struct {
	// ID is generated when empty.
	ID       string
	Text     string
	Vector   []float32
	Metadata map[string]any
}

// Stats is a diagnostic snapshot of the corpus and engine state.
type Stats struct {
	Documents   int
	Initialized bool
	ModelLoaded bool
	Dimensions  int
}

// New builds the engine, loads the corpus and embeds documents that lack a vector.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{keyPrefix: defaultKeyPrefix}
	for _, o := range opts {
		o.apply(cfg)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	seeded, err := documentEntries(cfg.documents)
	if err != nil {
		return nil, err
	}

	var store *dbRedis.Store
	if len(cfg.addrs) > 0 {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("ragsearch: create redis store: %w", err)
		}
		if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("ragsearch: database not ready: %w", err)
		}
	}

	c := wireClient(store, cfg, seeded, obs)
	if err := c.engine.Initialize(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("ragsearch: %w", err)
	}
	return c, nil
}

func wireClient(store *dbRedis.Store, cfg *clientConfig, seeded []entry.Entry, obs *observer) *Client {
	logger := zap.NewNop()

	var emb domain.Embedder = hashemb.New(hashemb.DefaultDimensions)
	if cfg.embedder != nil {
		emb = adaptEmbedder(cfg.embedder)
	}
	loader := embeddinguc.NewLoader(
		func(context.Context) (domain.Embedder, error) { return emb, nil },
		nil,
		logger,
	)

	var source corpus.Source = sliceSource(seeded)
	engineOpts := []engine.Option{engine.WithBackfill()}
	if cfg.searchTimeout > 0 {
		engineOpts = append(engineOpts, engine.WithSearchTimeout(cfg.searchTimeout))
	}

	var db healthuc.DBPinger
	if store != nil {
		repo := corpusrepo.New(store, cfg.keyPrefix, logger)
		source = chainSource{repo, sliceSource(seeded)}
		engineOpts = append(engineOpts, engine.WithSink(repo))
		db = store
	}

	var embChecker healthuc.EmbeddingChecker
	if hc, ok := cfg.embedder.(domain.HealthChecker); ok {
		embChecker = hc
	}

	eng := engine.New(loader, source, logger, engineOpts...)
	return &Client{
		store:  store,
		engine: eng,
		health: healthuc.New(eng, db, embChecker),
		obs:    obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Add embeds text and appends it to the corpus, returning the generated ID.
func (c *Client) Add(ctx context.Context, text string, metadata map[string]any) (id string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("add", start, err) }()

	id, err = c.engine.AddVector(ctx, text, metadata)
	if err != nil {
		return "", fmt.Errorf("add: %w", err)
	}
	return id, nil
}

// Remove deletes a document. Returns ErrNotFound for an unknown ID.
func (c *Client) Remove(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("remove", start, err) }()

	if err = c.engine.RemoveVector(ctx, id); err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

// Clear empties the corpus.
func (c *Client) Clear(ctx context.Context) {
	start := time.Now()
	c.engine.ClearVectors(ctx)
	c.obs.observe("clear", start, nil)
}

// Stats reports corpus size and engine state.
func (c *Client) Stats() Stats {
	s := c.engine.Stats()
	return Stats{
		Documents:   s.VectorCount,
		Initialized: s.IsInitialized,
		ModelLoaded: s.ModelLoaded,
		Dimensions:  s.Dimensions,
	}
}

func documentEntries(docs []Document) ([]entry.Entry, error) {
	entries := make([]entry.Entry, 0, len(docs))
	for i, d := range docs {
		id := d.ID
		if id == "" {
			id = corpus.NewID()
		}
		e, err := entry.New(id, d.Text, d.Vector, d.Metadata)
		if err != nil {
			return nil, fmt.Errorf("ragsearch: document [%d]: %w: %w", i, ErrInvalidRequest, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

type sliceSource []entry.Entry

func (s sliceSource) Load(context.Context) ([]entry.Entry, error) { return s, nil }

// chainSource concatenates sources in order. A failing source is skipped so
// the others still load.
type chainSource []corpus.Source

func (c chainSource) Load(ctx context.Context) ([]entry.Entry, error) {
	var all []entry.Entry
	var firstErr error
	for _, src := range c {
		entries, err := src.Load(ctx)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		all = append(all, entries...)
	}
	if len(all) == 0 && firstErr != nil {
		return nil, fmt.Errorf("load corpus: %w", firstErr)
	}
	return all, nil
}
