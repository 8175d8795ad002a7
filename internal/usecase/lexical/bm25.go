package lexical

import (
	"math"

	"github.com/kailas-cloud/ragsearch/internal/tokenizer"
)

// BM25 parameters.
const (
	k1 = 1.5
	b  = 0.75
)

// IDF returns ln((n - df + 0.5)/(df + 0.5) + 1) for a term found in df of n documents.
func IDF(df, n int) float64 {
	return math.Log((float64(n-df)+0.5)/(float64(df)+0.5) + 1)
}

// Score returns the BM25 score of doc for queryTokens. Tokens absent from doc
// contribute nothing; repeated query tokens contribute once per occurrence.
// df maps each query token to its document frequency in a corpus of n documents.
func Score(queryTokens []string, doc tokenizer.Document, avgDocLen float64, df map[string]int, n int) float64 {
	if avgDocLen <= 0 {
		return 0
	}
	docLen := float64(doc.Len())
	var score float64
	for _, term := range queryTokens {
		tf := doc.TF[term]
		if tf == 0 {
			continue
		}
		f := float64(tf)
		score += IDF(df[term], n) * (f * (k1 + 1)) / (f + k1*(1-b+b*docLen/avgDocLen))
	}
	return score
}
