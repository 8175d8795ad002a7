package lexical

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragsearch/internal/corpus"
	"github.com/kailas-cloud/ragsearch/internal/domain/entry"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/response"
)

type staticSource struct{ entries []entry.Entry }

func (s staticSource) Load(_ context.Context) ([]entry.Entry, error) { return s.entries, nil }

func newRetriever(t *testing.T, texts ...string) *Retriever {
	t.Helper()
	entries := make([]entry.Entry, len(texts))
	for i, text := range texts {
		entries[i] = entry.Reconstruct(string(rune('0'+i)), text, nil, nil)
	}
	store := corpus.New(nil, zap.NewNop())
	store.Load(context.Background(), staticSource{entries: entries})
	return New(store, zap.NewNop())
}

var petsCorpus = []string{"cats are pets", "dogs are pets", "quantum computing is hard"}

func TestSearch_CatsScenario(t *testing.T) {
	r := newRetriever(t, petsCorpus...)

	resp := r.Search(context.Background(), "cats", 3)
	if resp.Status != response.OK {
		t.Fatalf("expected ok, got %s", resp.Status)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected exactly 1 result, got %d", len(resp.Results))
	}
	if resp.Results[0].ID() != "0" {
		t.Errorf("expected doc 0, got %s", resp.Results[0].ID())
	}
	if resp.Results[0].Score() <= 0 {
		t.Errorf("expected positive score, got %f", resp.Results[0].Score())
	}
}

func TestSearch_ZeroMatchExcludedAtLargeTopK(t *testing.T) {
	r := newRetriever(t, petsCorpus...)

	resp := r.Search(context.Background(), "pets", 100)
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
	for _, res := range resp.Results {
		if res.ID() == "2" {
			t.Error("doc 2 has no overlap and must be excluded")
		}
	}
	// Equal scores keep corpus order.
	if resp.Results[0].ID() != "0" || resp.Results[1].ID() != "1" {
		t.Errorf("expected [0 1], got [%s %s]", resp.Results[0].ID(), resp.Results[1].ID())
	}
}

func TestSearch_PunctuationAndCase(t *testing.T) {
	r := newRetriever(t, "Hello, World!", "goodbye")

	resp := r.Search(context.Background(), "WORLD?", 5)
	if len(resp.Results) != 1 || resp.Results[0].ID() != "0" {
		t.Fatalf("expected doc 0, got %d results", len(resp.Results))
	}
}

func TestSearch_TopK(t *testing.T) {
	r := newRetriever(t, "a b", "a c", "a d", "a e")

	resp := r.Search(context.Background(), "a", 2)
	if len(resp.Results) != 2 {
		t.Errorf("expected 2 results, got %d", len(resp.Results))
	}
}

func TestSearch_NoMatchCases(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		query string
	}{
		{"empty corpus", nil, "cats"},
		{"punctuation-only query", petsCorpus, "?!..."},
		{"no overlap", petsCorpus, "zebra"},
		{"all documents empty", []string{"!!!", "..."}, "cats"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRetriever(t, tt.texts...)
			resp := r.Search(context.Background(), tt.query, 5)
			if resp.Status != response.NoMatch || len(resp.Results) != 0 {
				t.Errorf("expected empty no_match, got %s/%d", resp.Status, len(resp.Results))
			}
		})
	}
}

func TestSearch_Cancelled(t *testing.T) {
	r := newRetriever(t, petsCorpus...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp := r.Search(ctx, "pets", 5)
	if !resp.IsDegraded() {
		t.Errorf("expected degraded, got %s", resp.Status)
	}
}

func TestSearch_Deterministic(t *testing.T) {
	r := newRetriever(t, "the cat sat", "the dog sat on the mat", "a cat and a dog", "nothing here")

	first := r.Search(context.Background(), "cat dog", 4)
	for range 5 {
		again := r.Search(context.Background(), "cat dog", 4)
		if len(again.Results) != len(first.Results) {
			t.Fatal("result count changed")
		}
		for i := range first.Results {
			if first.Results[i].ID() != again.Results[i].ID() || first.Results[i].Score() != again.Results[i].Score() {
				t.Fatalf("result %d changed", i)
			}
		}
	}
}
