package dense

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/kailas-cloud/ragsearch/internal/domain/entry"
)

// cosineScores computes cosine similarity between q and every entry in one
// matrix-vector product. Rows are pre-normalized so the product is the cosine.
// Entries must all have len(q) components and non-zero norm.
func cosineScores(q []float32, entries []*entry.Entry) []float64 {
	n, d := len(entries), len(q)
	if n == 0 || d == 0 {
		return nil
	}

	qv := make([]float64, d)
	if normalizeInto(qv, q) == 0 {
		return nil
	}

	data := make([]float64, n*d)
	for i, e := range entries {
		normalizeInto(data[i*d:(i+1)*d], e.Embedding())
	}

	docs := mat.NewDense(n, d, data)
	scores := mat.NewVecDense(n, nil)
	scores.MulVec(docs, mat.NewVecDense(d, qv))
	return scores.RawVector().Data
}

// normalizeInto writes v/‖v‖ into dst and returns ‖v‖. Zero vectors are left zero.
func normalizeInto(dst []float64, v []float32) float64 {
	var sum float64
	for i, f := range v {
		dst[i] = float64(f)
		sum += dst[i] * dst[i]
	}
	norm := math.Sqrt(sum)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return 0
	}
	for i := range dst {
		dst[i] /= norm
	}
	return norm
}
