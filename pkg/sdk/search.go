package ragsearch

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/ragsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/request"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/response"
)

// Mode selects the retrieval path.
type Mode string

// Retrieval paths.
const (
	ModeHybrid   Mode = Mode(mode.Hybrid)
	ModeSemantic Mode = Mode(mode.Semantic)
	ModeKeyword  Mode = Mode(mode.Keyword)
)

// Status classifies a search outcome.
type Status string

// Search outcomes.
const (
	StatusOK       Status = Status(response.OK)
	StatusNoMatch  Status = Status(response.NoMatch)
	StatusDegraded Status = Status(response.Degraded)
)

// Query describes one search. Zero values mean hybrid mode, five hits and alpha 0.5.
type Query struct {
	Text string
	TopK int
	Mode Mode
	// Alpha weights the semantic ranking in hybrid mode. Must be in [0, 1].
	Alpha *float64
}

// Fusion records where a hybrid hit ranked in each list. 0 means absent.
type Fusion struct {
	SemanticRank int
	LexicalRank  int
}

// Hit is a single ranked document.
type Hit struct {
	ID       string
	Score    float64
	Text     string
	Metadata map[string]any
	// Fusion is set for hybrid hits.
	Fusion *Fusion
}

// Result is the outcome of a search. A degraded result has no hits and a Cause.
type Result struct {
	Hits   []Hit
	Status Status
	Cause  error
}

// Search runs the query. The error is non-nil only for an invalid query;
// provider failures and timeouts come back as a degraded Result.
func (c *Client) Search(ctx context.Context, q Query) (Result, error) {
	start := time.Now()
	op := "search_" + string(q.modeOrDefault())

	req, err := request.New(q.Text, mode.Mode(q.Mode), q.TopK, q.Alpha)
	if err != nil {
		c.obs.observe(op, start, err)
		return Result{}, fmt.Errorf("search: %w", err)
	}
	res := toResult(c.engine.Execute(ctx, &req))
	c.obs.observe(op, start, res.Cause)
	return res, nil
}

func (q Query) modeOrDefault() Mode {
	if q.Mode == "" {
		return ModeHybrid
	}
	return q.Mode
}

func toResult(resp response.Response) Result {
	hits := make([]Hit, 0, len(resp.Results))
	for i := range resp.Results {
		r := &resp.Results[i]
		h := Hit{ID: r.ID(), Score: r.Score(), Text: r.Text(), Metadata: r.Metadata()}
		if info, ok := r.HybridInfo(); ok {
			h.Fusion = &Fusion{SemanticRank: info.SemanticRank, LexicalRank: info.LexicalRank}
		}
		hits = append(hits, h)
	}
	return Result{Hits: hits, Status: Status(resp.Status), Cause: resp.Cause}
}
