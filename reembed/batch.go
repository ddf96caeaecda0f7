package reembed

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/unitgraph/ai"
	"github.com/poiesic/unitgraph/core"
	"github.com/poiesic/unitgraph/retry"
	"github.com/poiesic/unitgraph/storage"
)

// BatchProcessor embeds and rewrites batches of units.
type BatchProcessor struct {
	store          Store
	embedder       ai.Embedder
	maxAttempts    int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// maxAttempts: maximum number of attempts for each embedding call and write
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(store Store, embedder ai.Embedder, maxAttempts int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		store:          store,
		embedder:       embedder,
		maxAttempts:    maxAttempts,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process embeds the units of one episode and writes them back.
// Vectors are normalized after embedding to ensure compatibility with cosine similarity.
func (bp *BatchProcessor) Process(ctx context.Context, episodeID string, units []*core.MeaningfulUnit) error {
	if len(units) == 0 {
		return nil
	}

	texts := make([]string, len(units))
	for i, u := range units {
		texts[i] = u.Text
	}

	var embeddings [][]float32
	err := retry.Do(ctx, bp.maxAttempts, bp.retryBaseDelay, ai.IsTransient, func(ctx context.Context) error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		if err == nil && len(embeddings) != len(texts) {
			err = fmt.Errorf("%w: got %d vectors for %d units", ai.ErrMalformedResponse, len(embeddings), len(texts))
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}

	for i, u := range units {
		u.Vector = core.NormalizeVector(embeddings[i])
		err := retry.Do(ctx, bp.maxAttempts, bp.retryBaseDelay, storage.IsTransient, func(ctx context.Context) error {
			return bp.store.CreateUnit(ctx, episodeID, u)
		})
		if err != nil {
			return &core.StorageError{Op: "create_unit", Key: u.ID, Err: err}
		}
	}
	return nil
}
