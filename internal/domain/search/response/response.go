// Package response carries search outcomes that distinguish "nothing matched"
// from "a step failed", without propagating per-query failures as errors.
package response

import "github.com/kailas-cloud/ragsearch/internal/domain/search/result"

// Status classifies a search outcome.
type Status string

const (
	// OK means at least one result was found.
	OK Status = "ok"
	// NoMatch means the search ran to completion and nothing matched.
	NoMatch Status = "no_match"
	// Degraded means a step failed and the results are empty.
	Degraded Status = "degraded"
)

// Response is the outcome of one retrieval call.
type Response struct {
	Results []result.Result
	Status  Status
	// Cause is set only when Status is Degraded.
	Cause error
}

// Found wraps results; an empty slice yields NoMatch.
func Found(results []result.Result) Response {
	if len(results) == 0 {
		return Empty()
	}
	return Response{Results: results, Status: OK}
}

// Empty is a completed search with no matches.
func Empty() Response {
	return Response{Results: []result.Result{}, Status: NoMatch}
}

// Failed is an empty response caused by err.
func Failed(err error) Response {
	return Response{Results: []result.Result{}, Status: Degraded, Cause: err}
}

// IsDegraded reports whether the search failed.
func (r *Response) IsDegraded() bool { return r.Status == Degraded }
