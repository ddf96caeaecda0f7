package search

import (
	"context"
	"log/slog"
	"testing"

	"github.com/poiesic/unitgraph/ai/mock"
	"github.com/poiesic/unitgraph/core"
	"github.com/poiesic/unitgraph/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	units    []*core.MeaningfulUnit
	entities []*core.Entity
	err      error
}

func (f *fakeReader) ListUnits(ctx context.Context, episodeID string) ([]*core.MeaningfulUnit, error) {
	return f.units, f.err
}

func (f *fakeReader) ListEntities(ctx context.Context, episodeID string) ([]*core.Entity, error) {
	return f.entities, f.err
}

func testReader() *fakeReader {
	return &fakeReader{
		units: []*core.MeaningfulUnit{
			{ID: "u0", Index: 0, Text: "We talk about Koji and Miso.", Vector: []float32{1, 0}},
			{ID: "u1", Index: 1, Text: "Stories from a trip to Tokyo.", Vector: []float32{0, 1}},
			{ID: "u2", Index: 2, Text: "Running Acme Ferments in Portland.", Vector: []float32{0.7, 0.7}},
		},
		entities: []*core.Entity{
			{Type: "Organization", Value: "Acme Ferments", SupportingUnitIDs: []string{"u2"}},
			{Type: "Place", Value: "Tokyo", SupportingUnitIDs: []string{"u1"}},
		},
	}
}

func fixedEmbedder(v []float32) *mock.MockEmbedder {
	e := mock.NewMockEmbedder()
	e.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return v, nil
	}
	return e
}

func hitIDs(hits []*Hit) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.Unit.ID
	}
	return ids
}

func TestNewSearcher(t *testing.T) {
	reader := testReader()

	t.Run("valid configuration", func(t *testing.T) {
		searcher, err := NewSearcher(reader, mock.NewMockEmbedder())
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("nil embedder allowed", func(t *testing.T) {
		searcher, err := NewSearcher(reader, nil)
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		searcher, err := NewSearcher(reader, nil, WithLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("with custom logger", func(t *testing.T) {
		_, err := NewSearcher(reader, nil, WithLogger(slog.Default()))
		require.NoError(t, err)
	})

	t.Run("nil reader", func(t *testing.T) {
		_, err := NewSearcher(nil, nil)
		assert.Equal(t, ErrReaderRequired, err)
	})

	t.Run("min similarity out of range", func(t *testing.T) {
		_, err := NewSearcher(reader, nil, WithMinSimilarity(1.5))
		assert.Error(t, err)
	})
}

func TestFindUnits_SemanticWithVerbatimBoost(t *testing.T) {
	searcher, err := NewSearcher(testReader(), fixedEmbedder([]float32{1, 0}))
	require.NoError(t, err)

	hits, err := searcher.FindUnits(context.Background(), "ep-1", "koji", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"u0", "u2"}, hitIDs(hits))
	assert.InDelta(t, 1.3, hits[0].Score, 1e-5)
	assert.InDelta(t, 0.7071, hits[1].Similarity, 1e-3)
}

func TestFindUnits_SemanticAndEntity(t *testing.T) {
	searcher, err := NewSearcher(testReader(), fixedEmbedder([]float32{0, 1}))
	require.NoError(t, err)

	hits, err := searcher.FindUnits(context.Background(), "ep-1", "Tokyo", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "u1", hits[0].Unit.ID)
	assert.InDelta(t, 1.8, hits[0].Score, 1e-5)
	assert.Equal(t, []string{"Tokyo"}, hits[0].Entities)
}

func TestFindUnits_EntityOnlyWithoutEmbedder(t *testing.T) {
	searcher, err := NewSearcher(testReader(), nil)
	require.NoError(t, err)

	hits, err := searcher.FindUnits(context.Background(), "ep-1", "What about ACME ferments?", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "u2", hits[0].Unit.ID)
	assert.InDelta(t, 1.5, hits[0].Score, 1e-5)
	assert.Equal(t, []string{"Acme Ferments"}, hits[0].Entities)
}

func TestFindUnits_MaxHits(t *testing.T) {
	searcher, err := NewSearcher(testReader(), fixedEmbedder([]float32{1, 0}), WithMinSimilarity(0))
	require.NoError(t, err)

	hits, err := searcher.FindUnits(context.Background(), "ep-1", "fermentation", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"u0", "u2"}, hitIDs(hits))
}

func TestFindUnits_SkipsEmbeddingWithoutVectors(t *testing.T) {
	reader := testReader()
	for _, u := range reader.units {
		u.Vector = nil
	}
	embedder := mock.NewMockEmbedder()
	searcher, err := NewSearcher(reader, embedder)
	require.NoError(t, err)

	hits, err := searcher.FindUnits(context.Background(), "ep-1", "nothing matches here", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Equal(t, 0, embedder.CallCount())
}

func TestFindUnits_Errors(t *testing.T) {
	searcher, err := NewSearcher(testReader(), nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = searcher.FindUnits(ctx, "ep-1", "  ", 5)
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = searcher.FindUnits(ctx, "ep-1", "koji", 0)
	assert.ErrorIs(t, err, ErrInvalidMaxHits)

	missing, err := NewSearcher(&fakeReader{err: storage.ErrNotFound}, nil)
	require.NoError(t, err)
	_, err = missing.FindUnits(ctx, "ep-404", "koji", 5)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestContainsAllQueryWords(t *testing.T) {
	assert.True(t, containsAllQueryWords("Running Acme Ferments in Portland.", "the acme in portland"))
	assert.False(t, containsAllQueryWords("Running Acme Ferments.", "acme portland"))
	assert.False(t, containsAllQueryWords("anything", "the of and"))
}

func TestMentions(t *testing.T) {
	q := phrase("Tell me about Bank of America, please")
	assert.True(t, mentions(q, "Bank of America"))
	assert.True(t, mentions(q, "america"))
	assert.False(t, mentions(q, "America Bank"))
	assert.False(t, mentions(q, "Ban"))
	assert.False(t, mentions(q, ""))
}
