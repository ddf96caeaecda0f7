package core

// UnitSpec references an inclusive range of segment indices that form one
// semantic unit of conversation.
type UnitSpec struct {
	StartIndex   int
	EndIndex     int
	UnitType     string // Open vocabulary: "topic_discussion", "story", "q_and_a", ...
	Summary      string
	Themes       []string
	Completeness string // "complete", "partial", "fragmented"
}

// Len returns the number of segments covered, or 0 for an empty range.
func (u UnitSpec) Len() int {
	if u.EndIndex < u.StartIndex {
		return 0
	}
	return u.EndIndex - u.StartIndex + 1
}

// Theme is a topic that recurs across the episode.
type Theme struct {
	Name        string
	Description string
}

// Boundary marks a point in the narrative flow, anchored on a segment index.
type Boundary struct {
	SegmentIndex int
	Kind         string // "topic_shift", "story_start", "question", ...
	Description  string
}

// ConversationStructure describes how the segments of one episode group into
// units. It is created once per episode and never mutated after acceptance.
type ConversationStructure struct {
	Units  []UnitSpec
	Themes []Theme
	Flow   []Boundary
}

// Coverage returns the fraction of segment indices in [0, total) covered by the
// union of all unit ranges. Indices outside the range are ignored.
func (cs *ConversationStructure) Coverage(total int) float64 {
	if total <= 0 || cs == nil {
		return 0
	}
	covered := make([]bool, total)
	count := 0
	for _, u := range cs.Units {
		for i := max(u.StartIndex, 0); i <= u.EndIndex && i < total; i++ {
			if !covered[i] {
				covered[i] = true
				count++
			}
		}
	}
	return float64(count) / float64(total)
}

// ThemeNames returns the theme names in declaration order.
func (cs *ConversationStructure) ThemeNames() []string {
	names := make([]string, 0, len(cs.Themes))
	for _, t := range cs.Themes {
		names = append(names, t.Name)
	}
	return names
}
