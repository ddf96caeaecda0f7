package reembed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/unitgraph/ai"
	"github.com/poiesic/unitgraph/core"
)

// Store is the storage surface the reembedder needs.
type Store interface {
	ListUnits(ctx context.Context, episodeID string) ([]*core.MeaningfulUnit, error)
	CreateUnit(ctx context.Context, episodeID string, unit *core.MeaningfulUnit) error
}

// Config holds configuration for the reembedding process.
type Config struct {
	// BatchSize is the number of units sent in one embedding call
	BatchSize int

	// MaxAttempts is the maximum number of attempts for each embedding call and write
	MaxAttempts int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:   32,
		MaxAttempts: 3,
		RetryDelay:  1 * time.Second,
	}
}

// Reembedder rewrites the unit vectors of committed episodes.
type Reembedder struct {
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	store     Store
	logger    *slog.Logger
}

// NewReembedder creates a reembedder. A nil config means DefaultConfig and a
// nil progress writer discards progress output.
func NewReembedder(store Store, embedder ai.Embedder, config *Config, progress io.Writer) (*Reembedder, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.BatchSize <= 0 {
		return nil, ErrInvalidBatchSize
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reembedder{
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(store, embedder, config.MaxAttempts, config.RetryDelay),
		store:     store,
		logger:    slog.Default().With("component", "reembedder"),
	}, nil
}

// Run reembeds every unit of the given episodes and returns how many units
// were rewritten. It stops at the first episode that fails; episodes already
// finished keep their new vectors.
func (r *Reembedder) Run(ctx context.Context, episodeIDs ...string) (int, error) {
	start := time.Now()
	total := 0
	for _, id := range episodeIDs {
		n, err := r.runEpisode(ctx, id)
		total += n
		if err != nil {
			return total, fmt.Errorf("episode %s: %w", id, err)
		}
		fmt.Fprintf(r.progress, "Episode %s: reembedded %d units\n", id, n)
	}

	elapsed := time.Since(start)
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d units in %v\n",
		total, elapsed.Round(time.Millisecond))
	return total, nil
}

func (r *Reembedder) runEpisode(ctx context.Context, episodeID string) (int, error) {
	units, err := r.store.ListUnits(ctx, episodeID)
	if err != nil {
		return 0, err
	}

	done := 0
	for start := 0; start < len(units); start += r.config.BatchSize {
		end := min(start+r.config.BatchSize, len(units))
		if err := r.processor.Process(ctx, episodeID, units[start:end]); err != nil {
			return done, fmt.Errorf("failed to process batch: %w", err)
		}
		done = end
		r.logger.Debug("batch reembedded", "episode_id", episodeID, "units", done, "total", len(units))
	}
	return done, nil
}
