package corpus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragsearch/internal/domain"
	"github.com/kailas-cloud/ragsearch/internal/domain/entry"
)

// --- Mocks ---

type mockSource struct {
	entries []entry.Entry
	err     error
}

func (m *mockSource) Load(_ context.Context) ([]entry.Entry, error) {
	return m.entries, m.err
}

type mockSink struct {
	mu    sync.Mutex
	saved []entry.Entry
	err   error
}

func (m *mockSink) Save(_ context.Context, entries []entry.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, entries...)
	return m.err
}

type mockDeleterSink struct {
	mockSink
	deleted []string
	cleared int
}

func (m *mockDeleterSink) Delete(_ context.Context, id string) (bool, error) {
	m.deleted = append(m.deleted, id)
	return true, nil
}

func (m *mockDeleterSink) Clear(_ context.Context) (int64, error) {
	m.cleared++
	return 0, nil
}

type mockEmbedder struct {
	vec []float32
	err error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

type mockModels struct {
	model domain.Embedder
	err   error
}

func (m *mockModels) Model(_ context.Context) (domain.Embedder, error) {
	return m.model, m.err
}

func makeEntry(id, text string, vec ...float32) entry.Entry {
	return entry.Reconstruct(id, text, vec, nil)
}

func newStore(vec []float32, opts ...Option) *Store {
	return New(&mockModels{model: &mockEmbedder{vec: vec}}, zap.NewNop(), opts...)
}

// --- Tests ---

func TestStore_LoadDedupesFirstWins(t *testing.T) {
	s := newStore(nil)
	n := s.Load(context.Background(), &mockSource{entries: []entry.Entry{
		makeEntry("a", "first", 1, 0),
		makeEntry("b", "second", 0, 1),
		makeEntry("a", "duplicate", 1, 1),
	}})
	if n != 2 {
		t.Fatalf("expected 2 loaded, got %d", n)
	}
	snap := s.Snapshot()
	if snap.Entries()[0].Text() != "first" {
		t.Errorf("expected first occurrence kept, got %q", snap.Entries()[0].Text())
	}
	if snap.Dim() != 2 {
		t.Errorf("expected dim 2, got %d", snap.Dim())
	}
	if st := s.Stats(); !st.Ready || st.Count != 2 {
		t.Errorf("unexpected stats: %+v", st)
	}
}

func TestStore_LoadFailureYieldsEmptyCorpus(t *testing.T) {
	s := newStore(nil)
	s.Load(context.Background(), &mockSource{entries: []entry.Entry{makeEntry("a", "x", 1)}})

	n := s.Load(context.Background(), &mockSource{err: errors.New("unreachable")})
	if n != 0 {
		t.Fatalf("expected 0 loaded, got %d", n)
	}
	if s.Snapshot().Len() != 0 {
		t.Error("expected empty corpus after failed load")
	}
	if !s.Stats().Ready {
		t.Error("store should be ready even after a failed load")
	}
}

func TestStore_Add(t *testing.T) {
	sink := &mockSink{}
	s := newStore([]float32{0.6, 0.8}, WithSink(sink), WithIDGenerator(func() string { return "vec-fixed" }))

	id, err := s.Add(context.Background(), "hello", map[string]any{"source": "test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "vec-fixed" {
		t.Errorf("expected generated id, got %q", id)
	}
	snap := s.Snapshot()
	if snap.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", snap.Len())
	}
	if snap.Entries()[0].Metadata()["source"] != "test" {
		t.Error("metadata not stored")
	}
	if len(sink.saved) != 1 || sink.saved[0].ID() != "vec-fixed" {
		t.Errorf("expected entry persisted to sink, got %d", len(sink.saved))
	}
}

func TestStore_AddDefaultIDPrefix(t *testing.T) {
	s := newStore([]float32{1})
	id, err := s.Add(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(id) <= len(IDPrefix) || id[:len(IDPrefix)] != IDPrefix {
		t.Errorf("expected %q prefix, got %q", IDPrefix, id)
	}
}

func TestStore_AddUniqueIDs(t *testing.T) {
	s := newStore([]float32{1})
	seen := map[string]bool{}
	for i := range 50 {
		id, err := s.Add(context.Background(), fmt.Sprintf("text %d", i), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestStore_AddSinkFailureIsBestEffort(t *testing.T) {
	s := newStore([]float32{1}, WithSink(&mockSink{err: errors.New("down")}))
	if _, err := s.Add(context.Background(), "hello", nil); err != nil {
		t.Fatalf("sink failure should not fail Add: %v", err)
	}
	if s.Snapshot().Len() != 1 {
		t.Error("entry should be kept in memory")
	}
}

func TestStore_AddEmptyEmbedding(t *testing.T) {
	s := newStore(nil)
	_, err := s.Add(context.Background(), "hello", nil)
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
	if s.Snapshot().Len() != 0 {
		t.Error("corpus should be unchanged")
	}
}

func TestStore_AddDimensionMismatch(t *testing.T) {
	s := newStore([]float32{1, 0, 0})
	s.Load(context.Background(), &mockSource{entries: []entry.Entry{makeEntry("a", "x", 1, 0)}})

	_, err := s.Add(context.Background(), "hello", nil)
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
	if s.Snapshot().Len() != 1 {
		t.Error("corpus should be unchanged")
	}
}

func TestStore_AddErrors(t *testing.T) {
	tests := []struct {
		name   string
		models *mockModels
		text   string
	}{
		{"empty text", &mockModels{model: &mockEmbedder{vec: []float32{1}}}, ""},
		{"model unavailable", &mockModels{err: domain.ErrInitialization}, "x"},
		{"embed failure", &mockModels{model: &mockEmbedder{err: errors.New("boom")}}, "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.models, zap.NewNop())
			if _, err := s.Add(context.Background(), tt.text, nil); err == nil {
				t.Fatal("expected error")
			}
			if s.Snapshot().Len() != 0 {
				t.Error("corpus should be unchanged")
			}
		})
	}
}

func TestStore_SnapshotIsolation(t *testing.T) {
	s := newStore([]float32{1})
	s.Load(context.Background(), &mockSource{entries: []entry.Entry{makeEntry("a", "x", 1)}})

	before := s.Snapshot()
	if _, err := s.Add(context.Background(), "y", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if before.Len() != 1 {
		t.Errorf("old snapshot changed: %d entries", before.Len())
	}
	if s.Snapshot().Len() != 2 {
		t.Errorf("expected 2 entries, got %d", s.Snapshot().Len())
	}
}

func TestStore_RemoveAndClear(t *testing.T) {
	s := newStore(nil)
	s.Load(context.Background(), &mockSource{entries: []entry.Entry{
		makeEntry("a", "x", 1), makeEntry("b", "y", 1), makeEntry("c", "z", 1),
	}})

	if !s.Remove(context.Background(), "b") {
		t.Fatal("expected b removed")
	}
	if s.Remove(context.Background(), "b") {
		t.Error("second remove should report absent")
	}
	entries := s.Snapshot().Entries()
	if len(entries) != 2 || entries[0].ID() != "a" || entries[1].ID() != "c" {
		t.Errorf("unexpected entries after remove: %d", len(entries))
	}

	s.Clear(context.Background())
	if s.Stats().Count != 0 {
		t.Error("expected empty corpus after clear")
	}
}

func TestStore_RemoveAndClearMirrorToDeleter(t *testing.T) {
	sink := &mockDeleterSink{}
	s := newStore(nil, WithSink(sink))
	s.Load(context.Background(), &mockSource{entries: []entry.Entry{makeEntry("a", "x", 1)}})

	s.Remove(context.Background(), "missing")
	s.Remove(context.Background(), "a")
	s.Clear(context.Background())

	if len(sink.deleted) != 1 || sink.deleted[0] != "a" {
		t.Errorf("expected only existing entries deleted, got %v", sink.deleted)
	}
	if sink.cleared != 1 {
		t.Errorf("expected 1 clear, got %d", sink.cleared)
	}
}

func TestStore_ConcurrentAdds(t *testing.T) {
	s := newStore([]float32{1, 0})
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Add(context.Background(), fmt.Sprintf("t%d", i), nil); err != nil {
				t.Errorf("add: %v", err)
			}
			_ = s.Snapshot().Len()
		}()
	}
	wg.Wait()
	if s.Snapshot().Len() != 20 {
		t.Errorf("expected 20 entries, got %d", s.Snapshot().Len())
	}
}

func TestStore_LoadBackfillsMissingEmbeddings(t *testing.T) {
	s := newStore([]float32{0.6, 0.8}, WithBackfill())
	s.Load(context.Background(), &mockSource{entries: []entry.Entry{
		makeEntry("a", "has vector", 1, 0),
		entry.Reconstruct("b", "needs vector", nil, map[string]any{entry.MetaCategory: "x"}),
	}})

	entries := s.Snapshot().Entries()
	if entries[0].Embedding()[0] != 1 {
		t.Error("existing embedding must be kept")
	}
	if entries[1].Dim() != 2 || entries[1].Embedding()[1] != 0.8 {
		t.Errorf("expected backfilled embedding, got %v", entries[1].Embedding())
	}
	if entries[1].Metadata()[entry.MetaCategory] != "x" {
		t.Error("metadata lost during backfill")
	}
}

func TestStore_LoadBackfillFailureKeepsEntries(t *testing.T) {
	s := New(&mockModels{model: &mockEmbedder{err: errors.New("down")}}, zap.NewNop(), WithBackfill())
	n := s.Load(context.Background(), &mockSource{entries: []entry.Entry{
		entry.Reconstruct("a", "text", nil, nil),
	}})
	if n != 1 {
		t.Fatalf("expected entry kept, got %d", n)
	}
	if s.Snapshot().Entries()[0].Dim() != 0 {
		t.Error("expected entry to stay without embedding")
	}
}

func TestStore_LoadWithoutBackfillSkipsModel(t *testing.T) {
	s := New(&mockModels{err: errors.New("must not be called")}, zap.NewNop())
	s.Load(context.Background(), &mockSource{entries: []entry.Entry{
		entry.Reconstruct("a", "text", nil, nil),
	}})
	if s.Snapshot().Entries()[0].Dim() != 0 {
		t.Error("expected no backfill")
	}
}
