package querycache

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kailas-cloud/ragsearch/internal/domain"
)

type countingEmbedder struct {
	calls int
	err   error
}

func (m *countingEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{float32(len(text))}, TotalTokens: 1}, nil
}

func TestEmbed_CachesByText(t *testing.T) {
	inner := &countingEmbedder{}
	c, err := New(inner, 10, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for range 3 {
		res, err := c.Embed(context.Background(), "hello")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Embedding[0] != 5 {
			t.Fatalf("unexpected vector: %v", res.Embedding)
		}
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 inner call, got %d", inner.calls)
	}
}

func TestEmbed_EvictsLeastRecentlyUsed(t *testing.T) {
	inner := &countingEmbedder{}
	c, err := New(inner, 2, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	for _, text := range []string{"a", "bb", "ccc"} {
		if _, err := c.Embed(ctx, text); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 cached, got %d", c.Len())
	}
	if _, err := c.Embed(ctx, "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 4 {
		t.Errorf("evicted entry should be recomputed, got %d calls", inner.calls)
	}
}

func TestEmbed_ErrorsAreNotCached(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("down")}
	c, err := New(inner, 10, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := c.Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
	if c.Len() != 0 {
		t.Error("failed result must not be cached")
	}
}

func TestBatchEmbed_OnlyMissesReachInner(t *testing.T) {
	inner := &countingEmbedder{}
	c, err := New(inner, 10, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if _, err := c.Embed(ctx, "cached"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	texts := []string{"a", "cached", "abc"}
	res, err := c.BatchEmbed(ctx, texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, text := range texts {
		if res.Embeddings[i][0] != float32(len(text)) {
			t.Errorf("%d: expected %d, got %v", i, len(text), res.Embeddings[i])
		}
	}
	// 1 initial + 2 fallback Embed calls for the misses.
	if inner.calls != 3 {
		t.Errorf("expected 3 inner calls, got %d", inner.calls)
	}
}

func TestNew_DefaultSize(t *testing.T) {
	c, err := New(&countingEmbedder{}, 0, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := range DefaultSize + 5 {
		if _, err := c.Embed(context.Background(), fmt.Sprint(i)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if c.Len() != DefaultSize {
		t.Errorf("expected %d cached, got %d", DefaultSize, c.Len())
	}
}
