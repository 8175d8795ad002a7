package chi

import (
	"github.com/kailas-cloud/ragsearch/internal/domain/search/result"
)

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Query string   `json:"query"`
	TopK  int      `json:"top_k"`
	Mode  string   `json:"mode"`
	Alpha *float64 `json:"alpha"`
}

// SearchResultItem is one ranked hit.
type SearchResultItem struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SearchResponse is the body of a successful search.
type SearchResponse struct {
	Results []SearchResultItem `json:"results"`
	Status  string             `json:"status"`
	Mode    string             `json:"mode"`
}

// AddVectorRequest is the body of POST /vectors.
type AddVectorRequest struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// AddVectorResponse is returned with 201 Created.
type AddVectorResponse struct {
	ID string `json:"id"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func searchResultToDTO(r *result.Result) SearchResultItem {
	return SearchResultItem{
		ID:       r.ID(),
		Text:     r.Text(),
		Score:    r.Score(),
		Metadata: r.Metadata(),
	}
}
