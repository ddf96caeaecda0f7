package neo4j

import (
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/poiesic/unitgraph/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMicros_ZeroTime(t *testing.T) {
	assert.Zero(t, micros(time.Time{}))
	assert.True(t, fromMicros(0).IsZero())

	ts := time.Date(2025, 6, 1, 8, 30, 0, 123000, time.UTC)
	assert.True(t, ts.Equal(fromMicros(micros(ts))))
}

func TestUnitProps_SpeakerSharesAlignWithSpeakers(t *testing.T) {
	u := &core.MeaningfulUnit{
		Speakers:            []string{"Jane", "Sam"},
		SpeakerDistribution: map[string]float64{"Sam": 0.25, "Jane": 0.75},
	}
	p := unitProps(u)
	assert.Equal(t, []float64{0.75, 0.25}, p["speaker_shares"])
	assert.Equal(t, []string{}, p["themes"])
}

func TestUnitFromProps(t *testing.T) {
	// Lists come back from the driver as []any.
	p := map[string]any{
		"id":              "unit_ep_0001",
		"index":           int64(1),
		"start_time":      8.0,
		"original_start":  10.0,
		"end_time":        20.0,
		"speakers":        []any{"Jane", "Sam"},
		"speaker_shares":  []any{0.6, 0.4},
		"segment_indices": []any{int64(3), int64(4)},
		"vector":          []any{0.5, 0.5},
	}
	u := unitFromProps("ep", p)
	assert.Equal(t, "unit_ep_0001", u.ID)
	assert.Equal(t, "ep", u.EpisodeID)
	assert.Equal(t, 1, u.Index)
	assert.Equal(t, []int{3, 4}, u.SegmentIndices)
	assert.InDelta(t, 0.6, u.SpeakerDistribution["Jane"], 1e-9)
	assert.Equal(t, "Jane", u.PrimarySpeaker())
	assert.Equal(t, []float32{0.5, 0.5}, u.Vector)
}

func TestEntityFromProps(t *testing.T) {
	id := core.IDFromContent("jane")
	e, err := entityFromProps(map[string]any{
		"id":                  id.String(),
		"type":                "Person",
		"value":               "Jane Doe",
		"mentions":            int64(2),
		"supporting_unit_ids": []any{"u1", "u2"},
	})
	require.NoError(t, err)
	assert.Equal(t, id, e.ID)
	assert.Equal(t, 2, e.Mentions)
	assert.Equal(t, []string{"u1", "u2"}, e.SupportingUnitIDs)

	_, err = entityFromProps(map[string]any{"id": "zz"})
	assert.Error(t, err)
}

func TestRecordInt(t *testing.T) {
	assert.Zero(t, recordInt(nil, "c"))
	rec := &neo4j.Record{Keys: []string{"c"}, Values: []any{int64(7)}}
	assert.Equal(t, 7, recordInt([]*neo4j.Record{rec}, "c"))
}
