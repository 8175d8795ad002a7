package corpus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragsearch/internal/domain"
	"github.com/kailas-cloud/ragsearch/internal/domain/entry"
)

// IDPrefix prefixes generated entry identifiers.
const IDPrefix = "vec-"

// Snapshot is an immutable view of the corpus. Searches read one snapshot from start to end.
type Snapshot struct {
	entries []entry.Entry
}

// Entries returns the entries in corpus order. Callers must not modify the slice.
func (s *Snapshot) Entries() []entry.Entry { return s.entries }

// Len returns the number of entries.
func (s *Snapshot) Len() int { return len(s.entries) }

// Dim returns the embedding length of the first entry that has one, or 0.
func (s *Snapshot) Dim() int {
	for i := range s.entries {
		if d := s.entries[i].Dim(); d > 0 {
			return d
		}
	}
	return 0
}

// Stats is a read-only diagnostic snapshot.
type Stats struct {
	Count int
	Ready bool
}

// Store is the in-memory corpus. Readers take lock-free snapshots;
// writers serialize on mu and publish a fresh snapshot (copy-on-write).
type Store struct {
	mu    sync.Mutex
	snap  atomic.Pointer[Snapshot]
	ready atomic.Bool

	models   ModelResolver
	sink     Sink
	newID    func() string
	backfill bool
	logger   *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithSink enables best-effort write-through of added entries.
func WithSink(sink Sink) Option {
	return func(s *Store) { s.sink = sink }
}

// WithIDGenerator overrides entry ID generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithBackfill embeds loaded entries that carry no embedding.
func WithBackfill() Option {
	return func(s *Store) { s.backfill = true }
}

// NewID generates an entry identifier.
func NewID() string { return IDPrefix + uuid.NewString() }

// New creates an empty store. models is used by Add to embed new texts.
func New(models ModelResolver, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		models: models,
		newID:  NewID,
		logger: logger,
	}
	s.snap.Store(&Snapshot{})
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the current corpus view.
func (s *Store) Snapshot() *Snapshot { return s.snap.Load() }

// Load replaces the corpus wholesale from src. On failure the corpus is emptied
// and the error logged, so searches keep working and return empty results.
// Entries with duplicate IDs keep their first occurrence. Returns the loaded count.
func (s *Store) Load(ctx context.Context, src Source) int {
	entries, err := src.Load(ctx)
	if err != nil {
		s.logger.Error("Failed to load corpus", zap.Error(err))
		entries = nil
	}

	seen := make(map[string]struct{}, len(entries))
	kept := make([]entry.Entry, 0, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.ID()]; dup {
			s.logger.Warn("Skipping duplicate corpus entry", zap.String("id", e.ID()))
			continue
		}
		seen[e.ID()] = struct{}{}
		kept = append(kept, e)
	}
	if s.backfill {
		s.fill(ctx, kept)
	}

	s.mu.Lock()
	s.snap.Store(&Snapshot{entries: kept})
	s.mu.Unlock()
	s.ready.Store(true)

	s.logger.Info("Corpus loaded", zap.Int("entries", len(kept)))
	return len(kept)
}

// fill embeds entries without an embedding in place. Failures are logged and
// leave those entries lexical-only.
func (s *Store) fill(ctx context.Context, entries []entry.Entry) {
	var idx []int
	var texts []string
	for i := range entries {
		if entries[i].Dim() == 0 {
			idx = append(idx, i)
			texts = append(texts, entries[i].Text())
		}
	}
	if len(idx) == 0 {
		return
	}

	model, err := s.models.Model(ctx)
	if err != nil {
		s.logger.Warn("Skipping embedding backfill", zap.Error(err))
		return
	}
	res, err := domain.EmbedBatch(ctx, model, texts)
	if err != nil {
		s.logger.Warn("Embedding backfill failed", zap.Int("entries", len(idx)), zap.Error(err))
		return
	}
	if len(res.Embeddings) != len(idx) {
		s.logger.Warn("Embedding backfill returned wrong count",
			zap.Int("expected", len(idx)), zap.Int("got", len(res.Embeddings)))
		return
	}

	for j, i := range idx {
		e := &entries[i]
		entries[i] = entry.Reconstruct(e.ID(), e.Text(), res.Embeddings[j], e.Metadata())
	}
	s.logger.Info("Embedding backfill done", zap.Int("entries", len(idx)))
}

// Add embeds text, appends a new entry and returns its generated ID.
func (s *Store) Add(ctx context.Context, text string, metadata map[string]any) (string, error) {
	if text == "" {
		return "", fmt.Errorf("%w: text is required", domain.ErrInvalidRequest)
	}

	model, err := s.models.Model(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve model: %w", err)
	}
	res, err := model.Embed(ctx, text)
	if err != nil {
		return "", fmt.Errorf("embed text: %w", err)
	}
	if len(res.Embedding) == 0 {
		return "", fmt.Errorf("empty embedding: %w", domain.ErrEmbeddingProviderError)
	}

	e, err := entry.New(s.newID(), text, res.Embedding, metadata)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	s.mu.Lock()
	cur := s.snap.Load()
	if d := cur.Dim(); d > 0 && d != e.Dim() {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: corpus has %d, embedding has %d", domain.ErrVectorDimMismatch, d, e.Dim())
	}
	next := make([]entry.Entry, len(cur.entries), len(cur.entries)+1)
	copy(next, cur.entries)
	s.snap.Store(&Snapshot{entries: append(next, e)})
	s.mu.Unlock()

	s.logger.Debug("Added corpus entry", zap.String("id", e.ID()), zap.Int("dimensions", e.Dim()))

	if s.sink != nil {
		if err := s.sink.Save(ctx, []entry.Entry{e}); err != nil {
			s.logger.Warn("Failed to persist corpus entry", zap.String("id", e.ID()), zap.Error(err))
		}
	}
	return e.ID(), nil
}

// Remove deletes the entry with the given ID. Returns false if it was absent.
// A sink implementing Deleter is updated best-effort.
func (s *Store) Remove(ctx context.Context, id string) bool {
	if !s.removeLocal(id) {
		return false
	}
	if d, ok := s.sink.(Deleter); ok {
		if _, err := d.Delete(ctx, id); err != nil {
			s.logger.Warn("Failed to delete persisted corpus entry", zap.String("id", id), zap.Error(err))
		}
	}
	return true
}

func (s *Store) removeLocal(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snap.Load()
	for i := range cur.entries {
		if cur.entries[i].ID() != id {
			continue
		}
		next := make([]entry.Entry, 0, len(cur.entries)-1)
		next = append(next, cur.entries[:i]...)
		next = append(next, cur.entries[i+1:]...)
		s.snap.Store(&Snapshot{entries: next})
		return true
	}
	return false
}

// Clear empties the corpus. A sink implementing Deleter is cleared best-effort.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.snap.Store(&Snapshot{})
	s.mu.Unlock()

	if d, ok := s.sink.(Deleter); ok {
		if _, err := d.Clear(ctx); err != nil {
			s.logger.Warn("Failed to clear persisted corpus", zap.Error(err))
		}
	}
}

// Stats returns the entry count and whether the initial load has completed.
func (s *Store) Stats() Stats {
	return Stats{Count: s.snap.Load().Len(), Ready: s.ready.Load()}
}
