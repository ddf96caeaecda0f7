package surreal

import (
	"time"

	"github.com/poiesic/unitgraph/core"
)

// Rows mirror the schema. Slices are never nil because SCHEMAFULL array
// fields reject NULL.

type episodeRow struct {
	EpisodeID    string   `json:"episode_id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Source       string   `json:"source"`
	Status       int      `json:"status"`
	SegmentCount int      `json:"segment_count"`
	UnitCount    int      `json:"unit_count"`
	Coverage     float64  `json:"coverage"`
	Themes       []string `json:"themes"`
	CreatedAt    int64    `json:"created_at"`
	CommittedAt  int64    `json:"committed_at"`
}

type unitRow struct {
	EpisodeID      string    `json:"episode_id"`
	UnitID         string    `json:"unit_id"`
	Index          int       `json:"index"`
	Text           string    `json:"text"`
	StartTime      float64   `json:"start_time"`
	OriginalStart  float64   `json:"original_start"`
	EndTime        float64   `json:"end_time"`
	Summary        string    `json:"summary"`
	UnitType       string    `json:"unit_type"`
	Themes         []string  `json:"themes"`
	Speakers       []string  `json:"speakers"`
	SpeakerShares  []float64 `json:"speaker_shares"`
	SegmentIndices []int     `json:"segment_indices"`
	Vector         []float64 `json:"vector"`
}

type entityRow struct {
	EpisodeID         string   `json:"episode_id"`
	EntityID          string   `json:"entity_id"`
	Type              string   `json:"type"`
	Value             string   `json:"value"`
	Description       string   `json:"description"`
	Confidence        float64  `json:"confidence"`
	Mentions          int      `json:"mentions"`
	SupportingUnitIDs []string `json:"supporting_unit_ids"`
}

type relationRow struct {
	EpisodeID        string  `json:"episode_id"`
	Key              string  `json:"key"`
	SourceID         string  `json:"source_id"`
	TargetID         string  `json:"target_id"`
	RelType          string  `json:"rel_type"`
	Description      string  `json:"description"`
	Confidence       float64 `json:"confidence"`
	SupportingUnitID string  `json:"supporting_unit_id"`
}

// itemRow stores both quotes and insights.
type itemRow struct {
	EpisodeID  string  `json:"episode_id"`
	ItemID     string  `json:"item_id"`
	Text       string  `json:"text"`
	UnitID     string  `json:"unit_id"`
	Speaker    string  `json:"speaker"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

type countRow struct {
	C int `json:"c"`
}

func orEmpty[T any](vs []T) []T {
	if vs == nil {
		return []T{}
	}
	return vs
}

func micros(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func fromMicros(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.UnixMicro(v).UTC()
}

func newEpisodeRow(ep *core.Episode) episodeRow {
	return episodeRow{
		EpisodeID:    ep.ID,
		Title:        ep.Title,
		Description:  ep.Description,
		Source:       ep.Source,
		Status:       int(ep.Status),
		SegmentCount: ep.SegmentCount,
		UnitCount:    ep.UnitCount,
		Coverage:     ep.Coverage,
		Themes:       orEmpty(ep.Themes),
		CreatedAt:    micros(ep.CreatedAt),
		CommittedAt:  micros(ep.CommittedAt),
	}
}

func (r episodeRow) episode() *core.Episode {
	return &core.Episode{
		ID:           r.EpisodeID,
		Title:        r.Title,
		Description:  r.Description,
		Source:       r.Source,
		Status:       core.EpisodeStatus(r.Status),
		SegmentCount: r.SegmentCount,
		UnitCount:    r.UnitCount,
		Coverage:     r.Coverage,
		Themes:       r.Themes,
		CreatedAt:    fromMicros(r.CreatedAt),
		CommittedAt:  fromMicros(r.CommittedAt),
	}
}

func newUnitRow(episodeID string, u *core.MeaningfulUnit) unitRow {
	shares := make([]float64, len(u.Speakers))
	for i, sp := range u.Speakers {
		shares[i] = u.SpeakerDistribution[sp]
	}
	vector := make([]float64, len(u.Vector))
	for i, v := range u.Vector {
		vector[i] = float64(v)
	}
	return unitRow{
		EpisodeID:      episodeID,
		UnitID:         u.ID,
		Index:          u.Index,
		Text:           u.Text,
		StartTime:      u.StartTime,
		OriginalStart:  u.OriginalStart,
		EndTime:        u.EndTime,
		Summary:        u.Summary,
		UnitType:       u.UnitType,
		Themes:         orEmpty(u.Themes),
		Speakers:       orEmpty(u.Speakers),
		SpeakerShares:  shares,
		SegmentIndices: orEmpty(u.SegmentIndices),
		Vector:         vector,
	}
}

func (r unitRow) unit() *core.MeaningfulUnit {
	u := &core.MeaningfulUnit{
		ID:                  r.UnitID,
		EpisodeID:           r.EpisodeID,
		Index:               r.Index,
		Text:                r.Text,
		StartTime:           r.StartTime,
		OriginalStart:       r.OriginalStart,
		EndTime:             r.EndTime,
		Summary:             r.Summary,
		UnitType:            r.UnitType,
		Themes:              r.Themes,
		Speakers:            r.Speakers,
		SegmentIndices:      r.SegmentIndices,
		SpeakerDistribution: make(map[string]float64, len(r.Speakers)),
	}
	for i, sp := range r.Speakers {
		if i < len(r.SpeakerShares) {
			u.SpeakerDistribution[sp] = r.SpeakerShares[i]
		}
	}
	if len(r.Vector) > 0 {
		u.Vector = make([]float32, len(r.Vector))
		for i, v := range r.Vector {
			u.Vector[i] = float32(v)
		}
	}
	return u
}

func newEntityRow(episodeID string, e *core.Entity) entityRow {
	return entityRow{
		EpisodeID:         episodeID,
		EntityID:          e.ID.String(),
		Type:              e.Type,
		Value:             e.Value,
		Description:       e.Description,
		Confidence:        e.Confidence,
		Mentions:          e.Mentions,
		SupportingUnitIDs: orEmpty(e.SupportingUnitIDs),
	}
}

func (r entityRow) entity() (*core.Entity, error) {
	id, err := core.ParseID(r.EntityID)
	if err != nil {
		return nil, err
	}
	return &core.Entity{
		ID:                id,
		Type:              r.Type,
		Value:             r.Value,
		Description:       r.Description,
		Confidence:        r.Confidence,
		Mentions:          r.Mentions,
		SupportingUnitIDs: r.SupportingUnitIDs,
	}, nil
}

func newRelationRow(episodeID string, rel *core.Relationship) relationRow {
	return relationRow{
		EpisodeID:        episodeID,
		Key:              core.IDFromContent(episodeID + "\x00" + rel.Key()).String(),
		SourceID:         rel.SourceEntityID.String(),
		TargetID:         rel.TargetEntityID.String(),
		RelType:          rel.Type,
		Description:      rel.Description,
		Confidence:       rel.Confidence,
		SupportingUnitID: rel.SupportingUnitID,
	}
}

func (r relationRow) relationship() (*core.Relationship, error) {
	src, err := core.ParseID(r.SourceID)
	if err != nil {
		return nil, err
	}
	tgt, err := core.ParseID(r.TargetID)
	if err != nil {
		return nil, err
	}
	return &core.Relationship{
		SourceEntityID:   src,
		TargetEntityID:   tgt,
		Type:             r.RelType,
		Description:      r.Description,
		Confidence:       r.Confidence,
		SupportingUnitID: r.SupportingUnitID,
	}, nil
}
