package search

import (
	"sort"

	"github.com/kailas-cloud/ragsearch/internal/domain/search/result"
)

// rrfK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const rrfK = 60

// fusionRecord accumulates one entry's fused score and its rank in each list.
type fusionRecord struct {
	res          result.Result
	score        float64
	semanticRank int
	lexicalRank  int
}

// fuseRRF merges dense and lexical rankings via weighted Reciprocal Rank Fusion.
// score(d) = alpha/(k + rank_dense(d)) + (1-alpha)/(k + rank_lexical(d)), ranks 1-based.
// Equal fused scores keep first-appearance order, dense list first.
func fuseRRF(semantic, lexical []result.Result, alpha float64, topK int) []result.Result {
	records := make([]*fusionRecord, 0, len(semantic)+len(lexical))
	byID := make(map[string]*fusionRecord, len(semantic)+len(lexical))

	add := func(list []result.Result, weight float64, setRank func(*fusionRecord, int)) {
		for i, r := range list {
			rank := i + 1
			rec, ok := byID[r.ID()]
			if !ok {
				rec = &fusionRecord{res: r}
				byID[r.ID()] = rec
				records = append(records, rec)
			}
			rec.score += weight / float64(rrfK+rank)
			setRank(rec, rank)
		}
	}
	add(semantic, alpha, func(rec *fusionRecord, rank int) { rec.semanticRank = rank })
	add(lexical, 1-alpha, func(rec *fusionRecord, rank int) { rec.lexicalRank = rank })

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].score > records[j].score
	})
	if topK >= 0 && len(records) > topK {
		records = records[:topK]
	}

	results := make([]result.Result, len(records))
	for i, rec := range records {
		results[i] = rec.res.WithHybridInfo(result.HybridInfo{
			SemanticRank: rec.semanticRank,
			LexicalRank:  rec.lexicalRank,
			FusedScore:   rec.score,
		})
	}
	return results
}
