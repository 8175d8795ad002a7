package request

import (
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/ragsearch/internal/domain"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/mode"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultTopK    = 5
	MaxTopK        = 500
	// DefaultAlpha weights semantic and keyword rankings equally.
	DefaultAlpha = 0.5
)

// Request is a validated search query.
type Request struct {
	query      string
	searchMode mode.Mode
	topK       int
	alpha      float64
}

// New validates and normalizes search parameters.
// Defaults: mode=hybrid, topK=5, alpha=0.5. topK is clamped to MaxTopK.
// A nil alpha means the default; an explicit alpha outside [0, 1] is rejected.
func New(query string, m mode.Mode, topK int, alpha *float64) (Request, error) {
	if strings.TrimSpace(query) == "" {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidRequest, MaxQueryLength)
	}
	if m == "" {
		m = mode.Hybrid
	}
	if !m.IsValid() {
		return Request{}, fmt.Errorf("%w: invalid search mode: %q", domain.ErrInvalidRequest, m)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}

	a := DefaultAlpha
	if alpha != nil {
		if err := ValidateAlpha(*alpha); err != nil {
			return Request{}, err
		}
		a = *alpha
	}

	return Request{query: query, searchMode: m, topK: topK, alpha: a}, nil
}

// ValidateAlpha rejects fusion weights outside [0, 1] (including NaN).
func ValidateAlpha(alpha float64) error {
	if math.IsNaN(alpha) || alpha < 0 || alpha > 1 {
		return fmt.Errorf("%w, got %v", domain.ErrInvalidAlpha, alpha)
	}
	return nil
}

// ValidateTopK rejects result counts below 1.
func ValidateTopK(topK int) error {
	if topK < 1 {
		return fmt.Errorf("%w: top_k must be at least 1, got %d", domain.ErrInvalidRequest, topK)
	}
	return nil
}

// Query returns the search query text.
func (r *Request) Query() string { return r.query }

// Mode returns the search strategy.
func (r *Request) Mode() mode.Mode { return r.searchMode }

// TopK returns the number of results to return.
func (r *Request) TopK() int { return r.topK }

// Alpha returns the semantic weight used by hybrid search.
func (r *Request) Alpha() float64 { return r.alpha }
