package ragsearch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func testDocs() []Document {
	return []Document{
		{ID: "cat", Text: "Cats are small domesticated felines that purr.", Metadata: map[string]any{"category": "animals"}},
		{ID: "dog", Text: "Dogs are loyal companions that bark."},
		{ID: "qm", Text: "Quantum mechanics describes particles at atomic scales."},
	}
}

func newTestClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithDocuments(testDocs()...)}, opts...)
	c, err := New(context.Background(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.embedFn(ctx, text)
}

type mockBatchEmbedder struct {
	batchCalls int
	embedCalls int
}

func (m *mockBatchEmbedder) Embed(_ context.Context, _ string) (EmbeddingResult, error) {
	m.embedCalls++
	return EmbeddingResult{Embedding: []float32{1, 0}}, nil
}

func (m *mockBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	m.batchCalls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return BatchEmbeddingResult{Embeddings: out}, nil
}

func TestNew_DefaultEmbedderLoadsDocuments(t *testing.T) {
	c := newTestClient(t)

	s := c.Stats()
	if !s.Initialized || !s.ModelLoaded {
		t.Fatalf("expected initialized engine, got %+v", s)
	}
	if s.Documents != 3 {
		t.Fatalf("expected 3 documents, got %d", s.Documents)
	}
	if s.Dimensions == 0 {
		t.Fatal("expected backfilled embeddings")
	}
}

func TestNew_InvalidDocument(t *testing.T) {
	_, err := New(context.Background(), WithDocuments(Document{ID: "x"}))
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestNew_GeneratesMissingIDs(t *testing.T) {
	c, err := New(context.Background(), WithDocuments(Document{Text: "alpha beta"}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := c.Search(context.Background(), Query{Text: "alpha", Mode: ModeKeyword})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Hits) != 1 || res.Hits[0].ID == "" {
		t.Fatalf("expected one hit with a generated ID, got %+v", res.Hits)
	}
}

func TestSearch_Hybrid(t *testing.T) {
	c := newTestClient(t)

	res, err := c.Search(context.Background(), Query{Text: "cats purr", TopK: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Status != StatusOK {
		t.Fatalf("expected ok, got %s", res.Status)
	}
	if len(res.Hits) == 0 || res.Hits[0].ID != "cat" {
		t.Fatalf("expected cat first, got %+v", res.Hits)
	}
	if res.Hits[0].Fusion == nil {
		t.Fatal("expected fusion provenance on hybrid hit")
	}
	if res.Hits[0].Metadata["category"] != "animals" {
		t.Fatalf("expected metadata to survive, got %v", res.Hits[0].Metadata)
	}
}

func TestSearch_KeywordNoMatch(t *testing.T) {
	c := newTestClient(t)

	res, err := c.Search(context.Background(), Query{Text: "zebra", Mode: ModeKeyword})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Status != StatusNoMatch || len(res.Hits) != 0 {
		t.Fatalf("expected no_match, got %s with %d hits", res.Status, len(res.Hits))
	}
}

func TestSearch_InvalidQuery(t *testing.T) {
	c := newTestClient(t)
	bad := 1.5

	tests := []struct {
		name string
		q    Query
		want error
	}{
		{"empty text", Query{Text: "  "}, ErrInvalidRequest},
		{"bad mode", Query{Text: "cats", Mode: "fuzzy"}, ErrInvalidRequest},
		{"alpha out of range", Query{Text: "cats", Alpha: &bad}, ErrInvalidAlpha},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Search(context.Background(), tt.q)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSearch_ProviderFailureDegradesSemantic(t *testing.T) {
	emb := &mockEmbedder{embedFn: func(context.Context, string) (EmbeddingResult, error) {
		return EmbeddingResult{}, fmt.Errorf("%w: upstream down", ErrEmbeddingProviderError)
	}}
	c := newTestClient(t, WithEmbedder(emb))

	res, err := c.Search(context.Background(), Query{Text: "cats", Mode: ModeSemantic})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Status != StatusDegraded || !errors.Is(res.Cause, ErrEmbeddingProviderError) {
		t.Fatalf("expected degraded provider error, got %s / %v", res.Status, res.Cause)
	}

	res, err = c.Search(context.Background(), Query{Text: "cats", Mode: ModeKeyword})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Status != StatusOK {
		t.Fatalf("expected keyword search to keep working, got %s", res.Status)
	}
}

func TestNew_UsesBatchEmbedderForBackfill(t *testing.T) {
	emb := &mockBatchEmbedder{}
	newTestClient(t, WithEmbedder(emb))

	if emb.batchCalls != 1 {
		t.Fatalf("expected 1 batch call, got %d", emb.batchCalls)
	}
	if emb.embedCalls != 0 {
		t.Fatalf("expected no single embeds, got %d", emb.embedCalls)
	}
}

func TestAddRemoveClear(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	id, err := c.Add(ctx, "Parrots can mimic human speech.", nil)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if c.Stats().Documents != 4 {
		t.Fatalf("expected 4 documents, got %d", c.Stats().Documents)
	}

	res, _ := c.Search(ctx, Query{Text: "parrots", Mode: ModeKeyword})
	if len(res.Hits) != 1 || res.Hits[0].ID != id {
		t.Fatalf("expected added document, got %+v", res.Hits)
	}

	if err := c.Remove(ctx, id); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := c.Remove(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	c.Clear(ctx)
	if c.Stats().Documents != 0 {
		t.Fatalf("expected empty corpus, got %d", c.Stats().Documents)
	}
}

func TestAdd_EmptyText(t *testing.T) {
	c := newTestClient(t)
	if _, err := c.Add(context.Background(), "", nil); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestHealth(t *testing.T) {
	c := newTestClient(t)

	h := c.Health(context.Background())
	if h.Status != "ok" {
		t.Fatalf("expected ok, got %s", h.Status)
	}
	if h.Checks["engine"] != "ok" {
		t.Fatalf("expected engine ok, got %v", h.Checks)
	}
	if _, ok := h.Checks["database"]; ok {
		t.Fatal("database check should be absent without Redis")
	}
}

func TestWithPrometheus_RecordsOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := newTestClient(t, WithPrometheus(reg))

	if _, err := c.Search(context.Background(), Query{Text: "cats"}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if _, err := c.Search(context.Background(), Query{Text: ""}); err == nil {
		t.Fatal("expected invalid query error")
	}

	if n, err := testutil.GatherAndCount(reg, "ragsearch_sdk_operations_total"); err != nil || n != 2 {
		t.Fatalf("expected ok and error series, got %d (%v)", n, err)
	}

	// A second client on the same registry reuses the collectors.
	if _, err := New(context.Background(), WithPrometheus(reg)); err != nil {
		t.Fatalf("second New: %v", err)
	}
}

func TestSearch_HitMetadataIsPrivate(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	for _, m := range []Mode{ModeKeyword, ModeSemantic, ModeHybrid} {
		res, err := c.Search(ctx, Query{Text: "cats purr", Mode: m, TopK: 1})
		if err != nil || len(res.Hits) != 1 || res.Hits[0].ID != "cat" {
			t.Fatalf("%s: expected the cat document, got %+v (%v)", m, res.Hits, err)
		}
		res.Hits[0].Metadata["category"] = "changed"
	}

	res, err := c.Search(ctx, Query{Text: "cats", Mode: ModeKeyword})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := res.Hits[0].Metadata["category"]; got != "animals" {
		t.Fatalf("stored metadata changed through a hit: %v", got)
	}
}
