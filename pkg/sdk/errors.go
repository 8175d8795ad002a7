package ragsearch

import "github.com/kailas-cloud/ragsearch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound               = domain.ErrNotFound
	ErrInvalidRequest         = domain.ErrInvalidRequest
	ErrInvalidAlpha           = domain.ErrInvalidAlpha
	ErrVectorDimMismatch      = domain.ErrVectorDimMismatch
	ErrInitialization         = domain.ErrInitialization
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrSearchTimeout          = domain.ErrSearchTimeout
)
