package mock

import (
	"context"
	"sync"
	"testing"

	"github.com/poiesic/unitgraph/ai"
	"github.com/poiesic/unitgraph/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ai.AIProvider = (*MockProvider)(nil)

func segments(n int) []core.Segment {
	segs := make([]core.Segment, n)
	for i := range segs {
		segs[i] = core.Segment{Start: float64(i), End: float64(i) + 1, Speaker: "A", Text: "line"}
	}
	return segs
}

func TestEvenUnits(t *testing.T) {
	resp, err := EvenUnits(3)(context.Background(), ai.StructureRequest{Segments: segments(10)})
	require.NoError(t, err)
	require.Len(t, resp.Units, 3)

	assert.Equal(t, 0, resp.Units[0].StartIndex)
	assert.Equal(t, 9, resp.Units[2].EndIndex)
	for i := 1; i < len(resp.Units); i++ {
		assert.Equal(t, resp.Units[i-1].EndIndex+1, resp.Units[i].StartIndex)
	}
	assert.InDelta(t, 1.0, resp.ToStructure().Coverage(10), 1e-9)
}

func TestMockStructureAnalyzer_Default(t *testing.T) {
	m := NewMockStructureAnalyzer()
	resp, err := m.AnalyzeStructure(context.Background(), ai.StructureRequest{Segments: segments(4)})
	require.NoError(t, err)
	require.Len(t, resp.Units, 1)
	assert.Equal(t, 3, resp.Units[0].EndIndex)
	assert.Equal(t, 1, m.CallCount())

	m.Reset()
	assert.Equal(t, 0, m.CallCount())
}

func TestMockSpeakerIdentifier_Default(t *testing.T) {
	m := NewMockSpeakerIdentifier()
	resp, err := m.IdentifySpeakers(context.Background(), ai.SpeakerRequest{Labels: []string{"SPEAKER_01", "SPEAKER_00"}})
	require.NoError(t, err)
	assert.Equal(t, "Participant A", resp.Speakers["SPEAKER_00"])
	assert.Equal(t, "Participant B", resp.Speakers["SPEAKER_01"])
}

func TestMockKnowledgeExtractor_ConcurrentCalls(t *testing.T) {
	m := NewMockKnowledgeExtractor()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.ExtractKnowledge(context.Background(), ai.ExtractionRequest{UnitID: "u", Text: "Jane met Bob in Paris."})
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, m.CallCount())
	assert.Len(t, m.UnitIDs(), 20)
}

func TestMockKnowledgeExtractor_Default(t *testing.T) {
	m := NewMockKnowledgeExtractor()
	resp, err := m.ExtractKnowledge(context.Background(), ai.ExtractionRequest{Text: "Jane met Bob. Jane left."})
	require.NoError(t, err)

	values := make([]string, 0, len(resp.Entities))
	for _, e := range resp.Entities {
		values = append(values, e.Value)
	}
	assert.Equal(t, []string{"Jane", "Bob"}, values)
}

func TestMockEmbedder_Deterministic(t *testing.T) {
	m := NewMockEmbedder()
	v1, err := m.EmbedText(context.Background(), "hello")
	require.NoError(t, err)
	v2, err := m.EmbedText(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Len(t, v1, 16)
}

func TestMockProvider_Embedder(t *testing.T) {
	p := NewMockProvider()
	assert.Nil(t, p.Embedder(), "no embedder by default")

	p.WithEmbedder(NewMockEmbedder())
	assert.NotNil(t, p.Embedder())

	require.NoError(t, p.Close())
	assert.True(t, p.Closed())
}
