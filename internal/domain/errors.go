package domain

import "errors"

var (
	// ErrNotFound signals a missing corpus entry.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest signals a malformed search or add request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidAlpha signals a fusion weight outside [0, 1].
	ErrInvalidAlpha = errors.New("alpha must be between 0 and 1")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrInitialization signals that the embedding model could not be loaded.
	ErrInitialization = errors.New("engine initialization failed")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrSearchTimeout signals that a search exceeded its deadline.
	ErrSearchTimeout = errors.New("search timed out")
)
