// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package unitgraph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/poiesic/unitgraph/ai"
	"github.com/poiesic/unitgraph/ai/langchain"
	"github.com/poiesic/unitgraph/batch"
	"github.com/poiesic/unitgraph/config"
	"github.com/poiesic/unitgraph/pipeline"
	"github.com/poiesic/unitgraph/reembed"
	"github.com/poiesic/unitgraph/search"
	"github.com/poiesic/unitgraph/storage"
	"github.com/poiesic/unitgraph/storage/badger"
	"github.com/poiesic/unitgraph/storage/neo4j"
	"github.com/poiesic/unitgraph/storage/surreal"
)

// Database bundles a graph store and an AI provider and builds pipelines over
// them.
type Database struct {
	store    storage.GraphStore
	provider ai.AIProvider
	cfg      *config.Config
	logger   *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	store    storage.GraphStore
	provider ai.AIProvider
	logger   *slog.Logger
}

// WithGraphStore uses store instead of opening the configured backend.
// The Database takes ownership and closes it.
func WithGraphStore(store storage.GraphStore) DatabaseOption {
	return func(o *databaseOptions) { o.store = store }
}

// WithAIProvider uses provider instead of building one from the ai section.
// The Database takes ownership and closes it.
func WithAIProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) { o.provider = provider }
}

// WithLogger sets the logger handed to the store and every pipeline.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) { o.logger = logger }
}

// Open opens the graph store and AI provider described by cfg. A nil cfg
// means config.Default().
func Open(ctx context.Context, cfg *config.Config, opts ...DatabaseOption) (*Database, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	options := &databaseOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store := options.store
	if store == nil {
		var err error
		store, err = OpenStore(ctx, cfg.Storage, options.logger)
		if err != nil {
			return nil, err
		}
	}

	provider := options.provider
	if provider == nil {
		var err error
		provider, err = langchain.NewProvider(cfg.AIConfig())
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("create ai provider: %w", err)
		}
	}

	return &Database{
		store:    store,
		provider: provider,
		cfg:      cfg,
		logger:   options.logger,
	}, nil
}

// OpenStore opens the graph store selected by cfg.Backend.
func OpenStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (storage.GraphStore, error) {
	switch strings.ToLower(cfg.Backend) {
	case config.BackendBadger:
		store, err := badger.NewGraphStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open badger store %s: %w", cfg.Path, err)
		}
		return store, nil
	case config.BackendNeo4j:
		store, err := neo4j.NewStore(ctx, cfg.Neo4j, logger)
		if err != nil {
			return nil, fmt.Errorf("open neo4j store: %w", err)
		}
		return store, nil
	case config.BackendSurreal:
		store, err := surreal.NewStore(ctx, cfg.Surreal, logger)
		if err != nil {
			return nil, fmt.Errorf("open surreal store: %w", err)
		}
		return store, nil
	}
	return nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.Backend)
}

// Close closes the AI provider and then the graph store.
func (db *Database) Close() error {
	var errs []error
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
		errs = append(errs, err)
	}
	if err := db.store.Close(); err != nil {
		db.logger.Error("error closing graph store", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Store returns the graph store.
func (db *Database) Store() storage.GraphStore {
	return db.store
}

// Config returns the configuration the database was opened with.
func (db *Database) Config() *config.Config {
	return db.cfg
}

// NewPipeline builds a pipeline from the pipeline section of the
// configuration. opts are applied after it and win. Call Release when done.
func (db *Database) NewPipeline(opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	base, err := db.cfg.PipelineOptions()
	if err != nil {
		return nil, err
	}
	all := append(base, pipeline.WithLogger(db.logger))
	all = append(all, opts...)
	return pipeline.New(db.store, db.provider, all...)
}

// NewBatchRunner builds a batch runner over p using the configured episode
// concurrency.
func (db *Database) NewBatchRunner(p *pipeline.Pipeline, opts ...batch.Option) (*batch.Runner, error) {
	all := append([]batch.Option{
		batch.WithConcurrency(db.cfg.Pipeline.Concurrency),
		batch.WithLogger(db.logger),
	}, opts...)
	return batch.NewRunner(p, all...)
}

// NewSearcher builds a unit searcher over the graph store. Semantic ranking
// is used when embeddings are enabled and the provider has an embedder.
func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	var embedder ai.Embedder
	if db.cfg.Pipeline.Embeddings {
		embedder = db.provider.Embedder()
	}
	all := append([]search.Option{search.WithLogger(db.logger)}, opts...)
	return search.NewSearcher(db.store, embedder, all...)
}

// NewReembedder builds a reembedder writing to the graph store with the
// provider's embedder. Returns reembed.ErrEmbedderRequired when the provider
// has none.
func (db *Database) NewReembedder(cfg *reembed.Config, progress io.Writer) (*reembed.Reembedder, error) {
	return reembed.NewReembedder(db.store, db.provider.Embedder(), cfg, progress)
}

// DeleteEpisode removes the episode subgraph, committed or not, and returns
// the number of records removed.
func (db *Database) DeleteEpisode(ctx context.Context, episodeID string) (int, error) {
	n, err := db.store.DeleteEpisodeSubgraph(ctx, episodeID)
	if err != nil {
		return 0, fmt.Errorf("delete episode %s: %w", episodeID, err)
	}
	db.logger.Info("episode deleted", "episode_id", episodeID, "records", n)
	return n, nil
}
