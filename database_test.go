package unitgraph

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/unitgraph/ai/mock"
	"github.com/poiesic/unitgraph/config"
	"github.com/poiesic/unitgraph/core"
	"github.com/poiesic/unitgraph/pipeline"
	"github.com/poiesic/unitgraph/reembed"
	"github.com/poiesic/unitgraph/storage"
	"github.com/poiesic/unitgraph/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "graph")
	cfg.Pipeline.RetryDelay = 0
	return cfg
}

func testProvider() *mock.MockProvider {
	provider := mock.NewMockProvider()
	provider.GetMockStructureAnalyzer().AnalyzeStructureFunc = mock.EvenUnits(2)
	return provider
}

func testSegments() []core.Segment {
	texts := []string{
		"Welcome back, I am Jane Doe.",
		"Glad to be here talking about Koji.",
		"How did you start with Koji?",
		"A friend in Tokyo showed me.",
		"And now you teach it.",
		"Every weekend, at Acme Ferments.",
	}
	speakers := []string{"Jane Doe", "Sam Lee"}
	segs := make([]core.Segment, len(texts))
	for i, text := range texts {
		segs[i] = core.Segment{
			Start:   float64(i * 3),
			End:     float64(i*3 + 2),
			Speaker: speakers[i%2],
			Text:    text,
		}
	}
	return segs
}

func TestOpen(t *testing.T) {
	t.Run("opens configured badger store", func(t *testing.T) {
		db, err := Open(context.Background(), testConfig(t), WithAIProvider(testProvider()))
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		assert.NotNil(t, db.Store())
		assert.NotNil(t, db.logger)
		assert.Equal(t, config.BackendBadger, db.Config().Storage.Backend)
	})

	t.Run("error with file as store path", func(t *testing.T) {
		cfg := testConfig(t)
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))
		cfg.Storage.Path = tmpFile

		db, err := Open(context.Background(), cfg, WithAIProvider(testProvider()))
		assert.Error(t, err)
		assert.Nil(t, db)
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Storage.Backend = "cassandra"

		db, err := Open(context.Background(), cfg, WithAIProvider(testProvider()))
		assert.ErrorIs(t, err, config.ErrUnknownBackend)
		assert.Nil(t, db)
	})
}

func TestOpenStore_UnknownBackend(t *testing.T) {
	_, err := OpenStore(context.Background(), config.StorageConfig{Backend: "sqlite"}, nil)
	assert.ErrorIs(t, err, config.ErrUnknownBackend)
}

func TestDatabase_Close(t *testing.T) {
	provider := testProvider()
	db, err := Open(context.Background(), testConfig(t), WithAIProvider(provider))
	require.NoError(t, err)

	assert.NoError(t, db.Close())
	assert.True(t, provider.Closed())
}

func TestDatabase_ProcessAndDelete(t *testing.T) {
	ctx := context.Background()
	store, err := badger.NewMemoryGraphStore()
	require.NoError(t, err)

	db, err := Open(ctx, testConfig(t), WithGraphStore(store), WithAIProvider(testProvider()))
	require.NoError(t, err)
	defer db.Close()

	p, err := db.NewPipeline(pipeline.WithWorkers(2))
	require.NoError(t, err)
	defer p.Release()

	meta := core.EpisodeMetadata{ID: "ep-koji", Title: "Koji"}
	result, err := p.ProcessEpisode(ctx, meta, testSegments())
	require.NoError(t, err)
	assert.True(t, result.Committed())

	ep, err := db.Store().GetEpisode(ctx, "ep-koji")
	require.NoError(t, err)
	assert.Equal(t, 2, ep.UnitCount)

	searcher, err := db.NewSearcher()
	require.NoError(t, err)
	hits, err := searcher.FindUnits(ctx, "ep-koji", "Tokyo", 3)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, 1, hits[0].Unit.Index)

	n, err := db.DeleteEpisode(ctx, "ep-koji")
	require.NoError(t, err)
	assert.Equal(t, result.Stats.RecordsWritten-1, n, "the commit marker is not a record")

	_, err = db.Store().GetEpisode(ctx, "ep-koji")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDatabase_NewReembedder(t *testing.T) {
	db, err := Open(context.Background(), testConfig(t), WithAIProvider(testProvider()))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.NewReembedder(nil, nil)
	assert.ErrorIs(t, err, reembed.ErrEmbedderRequired)

	withEmbedder, err := Open(context.Background(), testConfig(t),
		WithAIProvider(testProvider().WithEmbedder(mock.NewMockEmbedder())))
	require.NoError(t, err)
	defer withEmbedder.Close()

	r, err := withEmbedder.NewReembedder(nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, r)
}

func TestDatabase_NewBatchRunner(t *testing.T) {
	db, err := Open(context.Background(), testConfig(t), WithAIProvider(testProvider()))
	require.NoError(t, err)
	defer db.Close()

	p, err := db.NewPipeline()
	require.NoError(t, err)
	defer p.Release()

	runner, err := db.NewBatchRunner(p)
	require.NoError(t, err)
	assert.NotNil(t, runner)
}
