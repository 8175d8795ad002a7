package result

import (
	"sort"

	"github.com/kailas-cloud/ragsearch/internal/domain/entry"
)

// HybridInfoKey is the metadata key carrying fusion provenance.
const HybridInfoKey = "hybridInfo"

// HybridInfo records where a fused result ranked in each retrieval list.
// A rank of 0 means the result was absent from that list.
type HybridInfo struct {
	SemanticRank int     `json:"semanticRank"`
	LexicalRank  int     `json:"lexicalRank"`
	FusedScore   float64 `json:"fusedScore"`
}

// Result is a single ranked search hit.
type Result struct {
	id       string
	score    float64
	text     string
	metadata map[string]any
}

// New creates a search result.
func New(id string, score float64, text string, metadata map[string]any) Result {
	return Result{id: id, score: score, text: text, metadata: metadata}
}

// FromEntry creates a result that shares the entry's id, text and metadata.
// Pass results through Detached before they leave the retriever.
func FromEntry(e *entry.Entry, score float64) Result {
	return Result{id: e.ID(), score: score, text: e.Text(), metadata: e.Metadata()}
}

// ID returns the entry identifier.
func (r *Result) ID() string { return r.id }

// Score returns the relevance score. Its meaning depends on the retrieval path.
func (r *Result) Score() float64 { return r.score }

// Text returns the entry text.
func (r *Result) Text() string { return r.text }

// Metadata returns the entry metadata.
func (r *Result) Metadata() map[string]any { return r.metadata }

// HybridInfo returns fusion provenance if the result came from hybrid search.
func (r *Result) HybridInfo() (HybridInfo, bool) {
	for k, v := range r.metadata {
		if info, ok := v.(HybridInfo); ok && isHybridKey(k) {
			return info, true
		}
	}
	return HybridInfo{}, false
}

// WithHybridInfo returns a copy with the fused score and provenance attached.
// Caller-supplied metadata is never overwritten: when HybridInfoKey is taken,
// the provenance goes under the first free underscore-prefixed variant.
func (r *Result) WithHybridInfo(info HybridInfo) Result {
	meta := make(map[string]any, len(r.metadata)+1)
	for k, v := range r.metadata {
		meta[k] = v
	}
	key := HybridInfoKey
	for {
		if _, taken := meta[key]; !taken {
			break
		}
		key = "_" + key
	}
	meta[key] = info
	return Result{id: r.id, score: info.FusedScore, text: r.text, metadata: meta}
}

// SortByScore orders results by descending score. Equal scores keep their input order.
func SortByScore(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
}

// Truncate returns at most topK leading results.
func Truncate(results []Result, topK int) []Result {
	if topK >= 0 && len(results) > topK {
		return results[:topK]
	}
	return results
}

// Detached gives every result a private copy of its metadata, so callers can
// modify it without touching the corpus entry it came from.
func Detached(results []Result) []Result {
	for i := range results {
		results[i].metadata = entry.CloneMetadata(results[i].metadata)
	}
	return results
}

func isHybridKey(k string) bool {
	for len(k) > len(HybridInfoKey) && k[0] == '_' {
		k = k[1:]
	}
	return k == HybridInfoKey
}
