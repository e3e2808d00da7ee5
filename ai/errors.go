package ai

import "errors"

var (
	// ErrEmbeddingFailed indicates the embedding service call failed.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrExtractionFailed indicates the entity extraction call failed.
	ErrExtractionFailed = errors.New("entity extraction failed")

	// ErrDimensionMismatch indicates the embedding service returned a
	// vector of unexpected dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
