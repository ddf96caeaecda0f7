package reembed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/poiesic/unitgraph/ai"
	"github.com/poiesic/unitgraph/ai/mock"
	"github.com/poiesic/unitgraph/core"
	"github.com/poiesic/unitgraph/storage"
	"github.com/poiesic/unitgraph/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEpisode(t *testing.T, id string, units int) storage.GraphStore {
	t.Helper()
	ctx := context.Background()
	store, err := badger.NewMemoryGraphStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.CreateEpisode(ctx, &core.Episode{ID: id, Title: "Koji", Status: core.EpisodeStatusPending}))
	for i := range units {
		require.NoError(t, store.CreateUnit(ctx, id, &core.MeaningfulUnit{
			ID:        fmt.Sprintf("unit_%s_%04d", id, i),
			EpisodeID: id,
			Index:     i,
			Text:      fmt.Sprintf("unit text %d", i),
			StartTime: float64(i * 10),
			EndTime:   float64(i*10 + 9),
		}))
	}
	require.NoError(t, store.MarkEpisodeCommitted(ctx, id, time.Now()))
	return store
}

func magnitude(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestNewReembedder_Validation(t *testing.T) {
	store := setupEpisode(t, "ep-1", 1)

	_, err := NewReembedder(nil, mock.NewMockEmbedder(), nil, nil)
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewReembedder(store, nil, nil, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewReembedder(store, mock.NewMockEmbedder(), &Config{BatchSize: 0, MaxAttempts: 1}, nil)
	assert.ErrorIs(t, err, ErrInvalidBatchSize)

	r, err := NewReembedder(store, mock.NewMockEmbedder(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().BatchSize, r.config.BatchSize)
}

func TestReembedder_Run(t *testing.T) {
	ctx := context.Background()
	store := setupEpisode(t, "ep-1", 7)
	embedder := mock.NewMockEmbedder()

	var buf bytes.Buffer
	r, err := NewReembedder(store, embedder, &Config{BatchSize: 3, MaxAttempts: 2}, &buf)
	require.NoError(t, err)

	n, err := r.Run(ctx, "ep-1")
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, 3, embedder.CallCount(), "7 units in batches of 3")
	assert.Contains(t, buf.String(), "Episode ep-1: reembedded 7 units")
	assert.Contains(t, buf.String(), "Reembedding complete")

	units, err := store.ListUnits(ctx, "ep-1")
	require.NoError(t, err)
	require.Len(t, units, 7)
	for _, u := range units {
		require.NotEmpty(t, u.Vector)
		assert.InDelta(t, 1.0, magnitude(u.Vector), 1e-5)
		assert.Equal(t, float64(u.Index*10), u.StartTime, "other fields survive the rewrite")
	}

	count, err := store.CountEpisodeNodes(ctx, "ep-1")
	require.NoError(t, err)
	assert.Equal(t, 8, count, "units are rewritten in place")
}

func TestReembedder_RetriesTransientFailure(t *testing.T) {
	store := setupEpisode(t, "ep-1", 2)
	embedder := mock.NewMockEmbedder()
	calls := 0
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		calls++
		if calls == 1 {
			return nil, ai.ErrRateLimited
		}
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{3, 4}
		}
		return out, nil
	}

	r, err := NewReembedder(store, embedder, &Config{BatchSize: 10, MaxAttempts: 2}, nil)
	require.NoError(t, err)

	n, err := r.Run(context.Background(), "ep-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, calls)

	units, err := store.ListUnits(context.Background(), "ep-1")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.6, 0.8}, units[0].Vector, 1e-6)
}

func TestReembedder_PermanentFailure(t *testing.T) {
	store := setupEpisode(t, "ep-1", 2)
	boom := errors.New("model not found")
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, boom
	}

	r, err := NewReembedder(store, embedder, &Config{BatchSize: 10, MaxAttempts: 3}, nil)
	require.NoError(t, err)

	n, err := r.Run(context.Background(), "ep-1")
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, n)
	assert.Equal(t, 1, embedder.CallCount(), "permanent errors are not retried")
}

func TestReembedder_VectorCountMismatch(t *testing.T) {
	store := setupEpisode(t, "ep-1", 2)
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1, 0}}, nil
	}

	r, err := NewReembedder(store, embedder, &Config{BatchSize: 10, MaxAttempts: 1}, nil)
	require.NoError(t, err)

	_, err = r.Run(context.Background(), "ep-1")
	assert.ErrorIs(t, err, ai.ErrMalformedResponse)
}

func TestReembedder_UnknownEpisode(t *testing.T) {
	store := setupEpisode(t, "ep-1", 1)
	r, err := NewReembedder(store, mock.NewMockEmbedder(), nil, nil)
	require.NoError(t, err)

	_, err = r.Run(context.Background(), "ep-404")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
