package extraction

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/unitgraph/ai"
	"github.com/poiesic/unitgraph/ai/mock"
	"github.com/poiesic/unitgraph/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUnits(n int) []*core.MeaningfulUnit {
	units := make([]*core.MeaningfulUnit, n)
	for i := range n {
		units[i] = &core.MeaningfulUnit{
			ID:        fmt.Sprintf("unit_ep-1_%04d", i),
			EpisodeID: "ep-1",
			Index:     i,
			Text:      fmt.Sprintf("Jane talks about Koji batch %d with Sam.", i),
			Speakers:  []string{"Jane Doe", "Sam Lee"},
		}
	}
	return units
}

func newTestExtractor(t *testing.T, m ai.KnowledgeExtractor, opts ...Option) *Extractor {
	t.Helper()
	opts = append([]Option{WithRetryDelay(0)}, opts...)
	e, err := New(m, opts...)
	require.NoError(t, err)
	t.Cleanup(e.Release)
	return e
}

var testEpisode = core.NewEpisodeContext(core.EpisodeMetadata{ID: "ep-1", Title: "Koji Hour"})

func TestNew_Validation(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrExtractorRequired)

	m := mock.NewMockKnowledgeExtractor()
	_, err = New(m, WithWorkers(0))
	assert.Error(t, err)
	_, err = New(m, WithFailureThreshold(1.5))
	assert.Error(t, err)
	_, err = New(m, WithMaxAttempts(0))
	assert.Error(t, err)

	e, err := New(m)
	require.NoError(t, err)
	defer e.Release()
	assert.Equal(t, DefaultWorkers, e.Workers())
}

func TestExtract_PoolSizeDoesNotChangeOutput(t *testing.T) {
	units := testUnits(8)

	serial := newTestExtractor(t, mock.NewMockKnowledgeExtractor(), WithWorkers(1))
	parallel := newTestExtractor(t, mock.NewMockKnowledgeExtractor(), WithWorkers(5))

	a, err := serial.Extract(context.Background(), testEpisode, units)
	require.NoError(t, err)
	b, err := parallel.Extract(context.Background(), testEpisode, units)
	require.NoError(t, err)

	assert.Equal(t, a.Knowledge, b.Knowledge)
	require.Len(t, a.Knowledge, 8)
	for i, k := range a.Knowledge {
		assert.Equal(t, i, k.UnitIndex)
		assert.Equal(t, units[i].ID, k.UnitID)
	}
	assert.Equal(t, 8, a.Calls)
	assert.Empty(t, a.Failures)
}

func TestExtract_EmptyUnits(t *testing.T) {
	m := mock.NewMockKnowledgeExtractor()
	e := newTestExtractor(t, m)

	res, err := e.Extract(context.Background(), testEpisode, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Knowledge)
	assert.Equal(t, 0, m.CallCount())
}

func TestExtract_ZeroThresholdRejectsOnOneFailure(t *testing.T) {
	units := testUnits(4)
	boom := errors.New("model refused")
	m := mock.NewMockKnowledgeExtractor()
	m.ExtractKnowledgeFunc = func(ctx context.Context, req ai.ExtractionRequest) (*ai.ExtractionResponse, error) {
		if req.UnitID == units[2].ID {
			return nil, boom
		}
		return &ai.ExtractionResponse{}, nil
	}
	e := newTestExtractor(t, m, WithWorkers(2))

	res, err := e.Extract(context.Background(), testEpisode, units)
	require.Error(t, err)

	var te *core.ExtractionThresholdError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 1, te.Failed)
	assert.Equal(t, 4, te.Total)
	assert.ErrorIs(t, err, boom)
	require.NotNil(t, res)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, units[2].ID, res.Failures[0].UnitID)
	assert.Equal(t, 1, res.Failures[0].Attempts, "permanent errors are not retried")
}

func TestExtract_ThresholdToleratesFailures(t *testing.T) {
	units := testUnits(4)
	m := mock.NewMockKnowledgeExtractor()
	m.ExtractKnowledgeFunc = func(ctx context.Context, req ai.ExtractionRequest) (*ai.ExtractionResponse, error) {
		if req.UnitID == units[1].ID {
			return nil, errors.New("bad unit")
		}
		return &ai.ExtractionResponse{
			Entities: []ai.ExtractedEntity{{Type: "Ingredient", Value: "koji", Confidence: 0.9}},
		}, nil
	}
	e := newTestExtractor(t, m, WithFailureThreshold(0.5))

	res, err := e.Extract(context.Background(), testEpisode, units)
	require.NoError(t, err)
	assert.Len(t, res.Knowledge, 3)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, units[1].ID, res.Failures[0].UnitID)
	for _, k := range res.Knowledge {
		assert.NotEqual(t, units[1].ID, k.UnitID)
	}
}

func TestExtract_RetriesTransientFailure(t *testing.T) {
	units := testUnits(3)
	var failed atomic.Bool
	m := mock.NewMockKnowledgeExtractor()
	m.ExtractKnowledgeFunc = func(ctx context.Context, req ai.ExtractionRequest) (*ai.ExtractionResponse, error) {
		if req.UnitID == units[0].ID && failed.CompareAndSwap(false, true) {
			return nil, fmt.Errorf("decode: %w", ai.ErrMalformedResponse)
		}
		return &ai.ExtractionResponse{}, nil
	}
	e := newTestExtractor(t, m)

	res, err := e.Extract(context.Background(), testEpisode, units)
	require.NoError(t, err)
	assert.Len(t, res.Knowledge, 3)
	assert.Equal(t, 4, res.Calls)
	assert.Equal(t, 4, m.CallCount())
}

func TestExtract_TransientFailureExhaustsAttempts(t *testing.T) {
	units := testUnits(1)
	m := mock.NewMockKnowledgeExtractor()
	m.ExtractKnowledgeFunc = func(ctx context.Context, req ai.ExtractionRequest) (*ai.ExtractionResponse, error) {
		return nil, ai.ErrRateLimited
	}
	e := newTestExtractor(t, m, WithMaxAttempts(3))

	res, err := e.Extract(context.Background(), testEpisode, units)
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrRateLimited)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 3, res.Failures[0].Attempts)
	assert.Equal(t, 3, m.CallCount())
}

func TestExtract_BreachStopsUnstartedUnits(t *testing.T) {
	units := testUnits(5)
	m := mock.NewMockKnowledgeExtractor()
	m.ExtractKnowledgeFunc = func(ctx context.Context, req ai.ExtractionRequest) (*ai.ExtractionResponse, error) {
		if req.UnitID == units[0].ID {
			return nil, errors.New("rejected")
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
			return &ai.ExtractionResponse{}, nil
		}
	}
	e := newTestExtractor(t, m, WithWorkers(1))

	res, err := e.Extract(context.Background(), testEpisode, units)
	var te *core.ExtractionThresholdError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 1, te.Failed)
	assert.Less(t, m.CallCount(), 5)
	assert.Empty(t, res.Knowledge)
}

func TestExtract_ParentCancellation(t *testing.T) {
	units := testUnits(3)
	ctx, cancel := context.WithCancel(context.Background())
	m := mock.NewMockKnowledgeExtractor()
	m.ExtractKnowledgeFunc = func(ctx context.Context, req ai.ExtractionRequest) (*ai.ExtractionResponse, error) {
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	}
	e := newTestExtractor(t, m)

	res, err := e.Extract(ctx, testEpisode, units)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestExtract_CountsDroppedItems(t *testing.T) {
	units := testUnits(2)
	m := mock.NewMockKnowledgeExtractor()
	m.ExtractKnowledgeFunc = func(ctx context.Context, req ai.ExtractionRequest) (*ai.ExtractionResponse, error) {
		return &ai.ExtractionResponse{
			Entities: []ai.ExtractedEntity{
				{Type: "Person", Value: "Jane Doe", Confidence: 0.9},
				{Type: "Person", Value: "", Confidence: 0.9},
			},
			Relationships: []ai.ExtractedRelationship{
				{Source: "Jane Doe", Target: "Nobody", Type: "knows", Confidence: 0.5},
			},
		}, nil
	}
	e := newTestExtractor(t, m)

	res, err := e.Extract(context.Background(), testEpisode, units)
	require.NoError(t, err)
	assert.Equal(t, 2, res.InvalidDropped)
	assert.Equal(t, 2, res.DanglingDropped)
}
