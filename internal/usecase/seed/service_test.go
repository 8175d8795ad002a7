package seed

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragsearch/internal/corpus"
	"github.com/kailas-cloud/ragsearch/internal/domain"
	"github.com/kailas-cloud/ragsearch/internal/domain/entry"
	"github.com/kailas-cloud/ragsearch/internal/repository/corpusfile"
)

// --- Mocks ---

type mockEmbedder struct {
	calls atomic.Int64
	err   error
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls.Add(1)
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{float32(len(text)), 1}}, nil
}

type mockSink struct {
	mu      sync.Mutex
	saved   []entry.Entry
	failIDs map[string]bool
}

func (m *mockSink) Save(_ context.Context, entries []entry.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range entries {
		if m.failIDs[entries[i].ID()] {
			return errors.New("write failed")
		}
	}
	m.saved = append(m.saved, entries...)
	return nil
}

func (m *mockSink) byID() map[string]entry.Entry {
	out := make(map[string]entry.Entry, len(m.saved))
	for _, e := range m.saved {
		out[e.ID()] = e
	}
	return out
}

// --- Tests ---

func TestRun_EmbedsAndSaves(t *testing.T) {
	emb := &mockEmbedder{}
	sink := &mockSink{}
	svc := New(emb, sink, Config{BatchSize: 2, Workers: 2}, zap.NewNop())

	records := []corpusfile.Record{
		{ID: "a", Text: "alpha", Category: "letters"},
		{ID: "b", Text: "bravo", Vector: []float32{9, 9}},
		{Text: "charlie"},
		{ID: "d", Text: ""},
		{ID: "e", Text: "echo"},
	}

	rep, err := svc.Run(context.Background(), records)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Records != 5 || rep.Saved != 4 || rep.Skipped != 1 || rep.Embedded != 3 || rep.Failed != 0 {
		t.Errorf("unexpected report %+v", rep)
	}
	if emb.calls.Load() != 3 {
		t.Errorf("expected 3 embed calls, got %d", emb.calls.Load())
	}

	saved := sink.byID()
	if len(saved) != 4 {
		t.Fatalf("expected 4 saved, got %d", len(saved))
	}
	a := saved["a"]
	if a.Embedding()[0] != 5 || a.Metadata()[entry.MetaCategory] != "letters" {
		t.Errorf("unexpected entry a: %v %v", a.Embedding(), a.Metadata())
	}
	if b := saved["b"]; b.Embedding()[0] != 9 {
		t.Errorf("precomputed vector must be kept, got %v", b.Embedding())
	}

	var generated int
	for id := range saved {
		if strings.HasPrefix(id, corpus.IDPrefix) {
			generated++
		}
	}
	if generated != 1 {
		t.Errorf("expected 1 generated id, got %d", generated)
	}
}

func TestRun_BatchFailuresAreCounted(t *testing.T) {
	sink := &mockSink{failIDs: map[string]bool{"c": true}}
	svc := New(&mockEmbedder{}, sink, Config{BatchSize: 2, Workers: 1}, zap.NewNop())

	rep, err := svc.Run(context.Background(), []corpusfile.Record{
		{ID: "a", Text: "a"}, {ID: "b", Text: "b"},
		{ID: "c", Text: "c"}, {ID: "d", Text: "d"},
	})
	if err == nil {
		t.Fatal("expected joined error")
	}
	if rep.Saved != 2 || rep.Failed != 2 {
		t.Errorf("unexpected report %+v", rep)
	}
}

func TestRun_EmbedderError(t *testing.T) {
	boom := errors.New("provider down")
	svc := New(&mockEmbedder{err: boom}, &mockSink{}, Config{}, zap.NewNop())

	rep, err := svc.Run(context.Background(), []corpusfile.Record{{ID: "a", Text: "a"}})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
	if rep.Failed != 1 || rep.Saved != 0 {
		t.Errorf("unexpected report %+v", rep)
	}
}

func TestRun_Empty(t *testing.T) {
	rep, err := New(&mockEmbedder{}, &mockSink{}, Config{}, zap.NewNop()).Run(context.Background(), nil)
	if err != nil || rep != (Report{}) {
		t.Fatalf("expected empty report, got %+v %v", rep, err)
	}
}
