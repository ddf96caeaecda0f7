package reembed

import "errors"

var (
	// ErrStoreRequired is returned when a store is not provided.
	ErrStoreRequired = errors.New("store required")

	// ErrEmbedderRequired is returned when no embedder is available.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrInvalidBatchSize is returned when BatchSize is <= 0.
	ErrInvalidBatchSize = errors.New("batch size must be greater than 0")
)
