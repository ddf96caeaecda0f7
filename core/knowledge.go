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


package core

// MeaningfulUnit is a merged, semantically coherent group of segments.
// It is the unit of knowledge extraction and storage and is immutable once
// produced by the regrouper.
type MeaningfulUnit struct {
	ID        string
	EpisodeID string
	Index     int
	Text      string

	// StartTime is the navigation start: OriginalStart minus the lookback,
	// floored at zero.
	StartTime     float64
	OriginalStart float64
	EndTime       float64

	Summary  string
	UnitType string
	Themes   []string

	// SpeakerDistribution maps speaker to fraction of covered speaking time.
	SpeakerDistribution map[string]float64
	// Speakers lists speakers by share, ties broken by earliest turn.
	Speakers []string

	SegmentIndices []int
	Vector         []float32 // Optional embedding, populated when an embedder is configured
}

// PrimarySpeaker returns the speaker with the largest share, or "" if none.
func (u *MeaningfulUnit) PrimarySpeaker() string {
	if len(u.Speakers) == 0 {
		return ""
	}
	return u.Speakers[0]
}

// Entity is a schema-less knowledge node. Type is an open string.
type Entity struct {
	ID                ID
	Type              string
	Value             string
	Description       string
	Confidence        float64
	Mentions          int
	SupportingUnitIDs []string // Sorted, unique
}

// Key returns the resolution key: normalized type and value.
func (e *Entity) Key() string {
	return Normalize(e.Type) + "\x00" + Normalize(e.Value)
}

// Relationship is a directed, typed edge between two entities. Type is an open string.
type Relationship struct {
	SourceEntityID   ID
	TargetEntityID   ID
	Type             string
	Description      string
	Confidence       float64
	SupportingUnitID string
}

// Key returns the identity of the edge within an episode.
func (r *Relationship) Key() string {
	return r.SourceEntityID.String() + "\x00" + Normalize(r.Type) + "\x00" + r.TargetEntityID.String()
}

// Quote is a notable verbatim statement linked to exactly one unit.
type Quote struct {
	ID         ID
	Text       string
	UnitID     string
	Speaker    string
	Category   string
	Confidence float64
}

// Insight is a derived observation linked to exactly one unit.
type Insight struct {
	ID         ID
	Text       string
	UnitID     string
	Speaker    string
	Category   string
	Confidence float64
}

// UnitKnowledge is everything extracted from one unit before resolution.
// Entity IDs here are unit-local and are replaced during resolution.
type UnitKnowledge struct {
	UnitID        string
	UnitIndex     int
	Entities      []Entity
	Relationships []Relationship
	Quotes        []Quote
	Insights      []Insight
}
