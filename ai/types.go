package ai

import (
	"github.com/poiesic/unitgraph/core"
)

// StructureRequest is the input to a structure call: the full transcript
// plus episode metadata.
type StructureRequest struct {
	Title       string
	Description string
	Segments    []core.Segment
}

// StructureResponse is the JSON document returned by a structure call.
type StructureResponse struct {
	Units  []UnitRange `json:"units"`
	Themes []ThemeItem `json:"themes"`
	Flow   []FlowItem  `json:"flow"`
}

// UnitRange is one unit in a structure response. Indices are inclusive.
type UnitRange struct {
	StartIndex   int      `json:"start_index"`
	EndIndex     int      `json:"end_index"`
	UnitType     string   `json:"unit_type"`
	Summary      string   `json:"summary"`
	Completeness string   `json:"completeness"`
	Themes       []string `json:"themes"`
}

// ThemeItem is one theme in a structure response.
type ThemeItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// FlowItem is one narrative boundary in a structure response.
type FlowItem struct {
	SegmentIndex int    `json:"segment_index"`
	Kind         string `json:"type"`
	Description  string `json:"description"`
}

// ToStructure converts the wire response into a domain structure.
// Indices are copied as returned; clamping is the caller's job.
func (r *StructureResponse) ToStructure() *core.ConversationStructure {
	cs := &core.ConversationStructure{
		Units:  make([]core.UnitSpec, 0, len(r.Units)),
		Themes: make([]core.Theme, 0, len(r.Themes)),
		Flow:   make([]core.Boundary, 0, len(r.Flow)),
	}
	for _, u := range r.Units {
		cs.Units = append(cs.Units, core.UnitSpec{
			StartIndex:   u.StartIndex,
			EndIndex:     u.EndIndex,
			UnitType:     u.UnitType,
			Summary:      u.Summary,
			Themes:       append([]string(nil), u.Themes...),
			Completeness: u.Completeness,
		})
	}
	for _, t := range r.Themes {
		cs.Themes = append(cs.Themes, core.Theme{Name: t.Name, Description: t.Description})
	}
	for _, f := range r.Flow {
		cs.Flow = append(cs.Flow, core.Boundary{SegmentIndex: f.SegmentIndex, Kind: f.Kind, Description: f.Description})
	}
	return cs
}

// SpeakerRequest is the input to a speaker identification call.
type SpeakerRequest struct {
	Title       string
	Description string
	// Labels are the raw labels that still need resolving.
	Labels []string
	// Samples holds a few lines spoken under each label.
	Samples map[string][]string
	// Known holds labels already resolved from hints, for context.
	Known map[string]string
}

// SpeakerResponse is the JSON document returned by a speaker call.
type SpeakerResponse struct {
	Speakers map[string]string `json:"speakers"`
}

// ExtractionRequest is the input to an extraction call for one unit.
type ExtractionRequest struct {
	EpisodeTitle string
	UnitID       string
	UnitType     string
	Summary      string
	Themes       []string
	Speakers     []string
	Text         string
}

// ExtractionResponse is the JSON document returned by an extraction call.
type ExtractionResponse struct {
	Entities      []ExtractedEntity       `json:"entities"`
	Relationships []ExtractedRelationship `json:"relationships"`
	Quotes        []ExtractedQuote        `json:"quotes"`
	Insights      []ExtractedInsight      `json:"insights"`
}

// ExtractedEntity is a schema-less entity as returned by the model.
type ExtractedEntity struct {
	Type        string  `json:"type"`
	Value       string  `json:"value"`
	Description string  `json:"description,omitempty"`
	Confidence  float64 `json:"confidence"`
}

// ExtractedRelationship links two entities by value.
type ExtractedRelationship struct {
	Source      string  `json:"source"`
	Target      string  `json:"target"`
	Type        string  `json:"type"`
	Description string  `json:"description,omitempty"`
	Confidence  float64 `json:"confidence"`
}

// ExtractedQuote is a notable verbatim statement.
type ExtractedQuote struct {
	Text       string  `json:"text"`
	Speaker    string  `json:"speaker"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// ExtractedInsight is a derived observation.
type ExtractedInsight struct {
	Text       string  `json:"text"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Empty reports whether the response carries no items at all.
func (r *ExtractionResponse) Empty() bool {
	return len(r.Entities) == 0 && len(r.Relationships) == 0 && len(r.Quotes) == 0 && len(r.Insights) == 0
}
