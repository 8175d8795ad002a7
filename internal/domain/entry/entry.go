package entry

import (
	"fmt"
	"math"
)

// Metadata keys populated from corpus source records.
const (
	MetaCategory  = "category"
	MetaTimestamp = "timestamp"
)

// MaxIDLength is the maximum entry identifier length.
const MaxIDLength = 256

// Entry is one corpus unit (immutable value object).
type Entry struct {
	id        string
	text      string
	embedding []float32
	metadata  map[string]any
}

// New validates and creates an Entry. The embedding may be nil: such entries
// still take part in lexical search but are skipped by dense search.
func New(id, text string, embedding []float32, metadata map[string]any) (Entry, error) {
	if id == "" {
		return Entry{}, fmt.Errorf("entry ID is required")
	}
	if len(id) > MaxIDLength {
		return Entry{}, fmt.Errorf("entry ID too long (max %d)", MaxIDLength)
	}
	if text == "" {
		return Entry{}, fmt.Errorf("entry text is required")
	}
	return Reconstruct(id, text, cloneVector(embedding), CloneMetadata(metadata)), nil
}

// Reconstruct creates an Entry without validation (storage hydration).
func Reconstruct(id, text string, embedding []float32, metadata map[string]any) Entry {
	return Entry{id: id, text: text, embedding: embedding, metadata: metadata}
}

// ID returns the entry identifier.
func (e *Entry) ID() string { return e.id }

// Text returns the original text content.
func (e *Entry) Text() string { return e.text }

// Embedding returns the embedding vector. Callers must not modify it.
func (e *Entry) Embedding() []float32 { return e.embedding }

// Metadata returns caller-supplied provenance. Callers must not modify it.
func (e *Entry) Metadata() map[string]any { return e.metadata }

// Dim returns the embedding length (0 when absent).
func (e *Entry) Dim() int { return len(e.embedding) }

// HasValidEmbedding reports whether the embedding has exactly dim finite
// components and a non-zero norm.
func (e *Entry) HasValidEmbedding(dim int) bool {
	if dim <= 0 || len(e.embedding) != dim {
		return false
	}
	var sum float64
	for _, f := range e.embedding {
		v := float64(f)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
		sum += v * v
	}
	return sum > 0
}

// CloneMetadata returns a shallow copy of m (nil stays nil).
func CloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func cloneVector(v []float32) []float32 {
	if v == nil {
		return nil
	}
	c := make([]float32, len(v))
	copy(c, v)
	return c
}
