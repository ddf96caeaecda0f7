package neo4j

import (
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/poiesic/unitgraph/core"
)

// Neo4j properties cannot hold maps, so a unit's speaker distribution is
// stored as two aligned lists: speakers (ordered by share) and shares.

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

func nonNilStrings(vs []string) []string {
	if vs == nil {
		return []string{}
	}
	return vs
}

func episodeProps(ep *core.Episode) map[string]any {
	return map[string]any{
		"title":         ep.Title,
		"description":   ep.Description,
		"source":        ep.Source,
		"status":        int64(ep.Status),
		"segment_count": int64(ep.SegmentCount),
		"unit_count":    int64(ep.UnitCount),
		"coverage":      ep.Coverage,
		"themes":        nonNilStrings(ep.Themes),
		"created_at":    micros(ep.CreatedAt),
		"committed_at":  micros(ep.CommittedAt),
	}
}

func episodeFromProps(episodeID string, p map[string]any) *core.Episode {
	return &core.Episode{
		ID:           episodeID,
		Title:        str(p, "title"),
		Description:  str(p, "description"),
		Source:       str(p, "source"),
		Status:       core.EpisodeStatus(integer(p, "status")),
		SegmentCount: int(integer(p, "segment_count")),
		UnitCount:    int(integer(p, "unit_count")),
		Coverage:     float(p, "coverage"),
		Themes:       strs(p, "themes"),
		CreatedAt:    fromMicros(integer(p, "created_at")),
		CommittedAt:  fromMicros(integer(p, "committed_at")),
	}
}

func unitProps(u *core.MeaningfulUnit) map[string]any {
	shares := make([]float64, len(u.Speakers))
	for i, sp := range u.Speakers {
		shares[i] = u.SpeakerDistribution[sp]
	}
	indices := make([]int64, len(u.SegmentIndices))
	for i, v := range u.SegmentIndices {
		indices[i] = int64(v)
	}
	vector := make([]float64, len(u.Vector))
	for i, v := range u.Vector {
		vector[i] = float64(v)
	}
	return map[string]any{
		"index":           int64(u.Index),
		"text":            u.Text,
		"start_time":      u.StartTime,
		"original_start":  u.OriginalStart,
		"end_time":        u.EndTime,
		"summary":         u.Summary,
		"unit_type":       u.UnitType,
		"themes":          nonNilStrings(u.Themes),
		"speakers":        nonNilStrings(u.Speakers),
		"speaker_shares":  shares,
		"segment_indices": indices,
		"vector":          vector,
	}
}

func unitFromProps(episodeID string, p map[string]any) *core.MeaningfulUnit {
	u := &core.MeaningfulUnit{
		ID:            str(p, "id"),
		EpisodeID:     episodeID,
		Index:         int(integer(p, "index")),
		Text:          str(p, "text"),
		StartTime:     float(p, "start_time"),
		OriginalStart: float(p, "original_start"),
		EndTime:       float(p, "end_time"),
		Summary:       str(p, "summary"),
		UnitType:      str(p, "unit_type"),
		Themes:        strs(p, "themes"),
		Speakers:      strs(p, "speakers"),
	}
	shares := list(p, "speaker_shares")
	u.SpeakerDistribution = make(map[string]float64, len(u.Speakers))
	for i, sp := range u.Speakers {
		if i < len(shares) {
			v, _ := shares[i].(float64)
			u.SpeakerDistribution[sp] = v
		}
	}
	for _, v := range list(p, "segment_indices") {
		n, _ := v.(int64)
		u.SegmentIndices = append(u.SegmentIndices, int(n))
	}
	for _, v := range list(p, "vector") {
		f, _ := v.(float64)
		u.Vector = append(u.Vector, float32(f))
	}
	return u
}

func entityProps(e *core.Entity) map[string]any {
	return map[string]any{
		"type":                e.Type,
		"value":               e.Value,
		"description":         e.Description,
		"confidence":          e.Confidence,
		"mentions":            int64(e.Mentions),
		"supporting_unit_ids": nonNilStrings(e.SupportingUnitIDs),
	}
}

func entityFromProps(p map[string]any) (*core.Entity, error) {
	id, err := core.ParseID(str(p, "id"))
	if err != nil {
		return nil, err
	}
	return &core.Entity{
		ID:                id,
		Type:              str(p, "type"),
		Value:             str(p, "value"),
		Description:       str(p, "description"),
		Confidence:        float(p, "confidence"),
		Mentions:          int(integer(p, "mentions")),
		SupportingUnitIDs: strs(p, "supporting_unit_ids"),
	}, nil
}

func relationshipProps(r *core.Relationship) map[string]any {
	return map[string]any{
		"type":               r.Type,
		"description":        r.Description,
		"confidence":         r.Confidence,
		"supporting_unit_id": r.SupportingUnitID,
	}
}

func relationshipFromRecord(rec *neo4j.Record) (*core.Relationship, error) {
	raw, ok := rec.Get("r")
	if !ok {
		return nil, fmt.Errorf("record has no relationship")
	}
	edge, ok := raw.(neo4j.Relationship)
	if !ok {
		return nil, fmt.Errorf("unexpected relationship value %T", raw)
	}
	source, _ := rec.Get("source")
	target, _ := rec.Get("target")
	srcID, err := core.ParseID(fmt.Sprint(source))
	if err != nil {
		return nil, err
	}
	tgtID, err := core.ParseID(fmt.Sprint(target))
	if err != nil {
		return nil, err
	}
	p := edge.Props
	return &core.Relationship{
		SourceEntityID:   srcID,
		TargetEntityID:   tgtID,
		Type:             str(p, "type"),
		Description:      str(p, "description"),
		Confidence:       float(p, "confidence"),
		SupportingUnitID: str(p, "supporting_unit_id"),
	}, nil
}

func nodeProps(rec *neo4j.Record, key string) (map[string]any, error) {
	raw, ok := rec.Get(key)
	if !ok {
		return nil, fmt.Errorf("record has no %q", key)
	}
	node, ok := raw.(neo4j.Node)
	if !ok {
		return nil, fmt.Errorf("unexpected node value %T", raw)
	}
	return node.Props, nil
}

// recordInt reads an integer column from the first record, or 0.
func recordInt(records []*neo4j.Record, key string) int {
	if len(records) == 0 {
		return 0
	}
	v, _ := records[0].Get(key)
	n, _ := v.(int64)
	return int(n)
}

func str(p map[string]any, key string) string {
	s, _ := p[key].(string)
	return s
}

func integer(p map[string]any, key string) int64 {
	n, _ := p[key].(int64)
	return n
}

func float(p map[string]any, key string) float64 {
	f, _ := p[key].(float64)
	return f
}

func list(p map[string]any, key string) []any {
	l, _ := p[key].([]any)
	return l
}

func strs(p map[string]any, key string) []string {
	raw := list(p, key)
	if len(raw) == 0 {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
