package transcript

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/poiesic/unitgraph/core"
)

// normalize sorts cues and repairs them into valid segments. Empty cues are
// dropped. A cue with no duration, or one starting before the previous cue
// ends, is merged into the previous segment when the speaker matches;
// otherwise an overlap trims the previous segment and a zero-length cue is
// dropped.
func normalize(cues []cue) ([]core.Segment, []string) {
	slices.SortStableFunc(cues, func(a, b cue) int { return cmp.Compare(a.start, b.start) })

	var issues []string
	segments := make([]core.Segment, 0, len(cues))
	for i, c := range cues {
		c.text = strings.Join(strings.Fields(c.text), " ")
		c.speaker = strings.TrimSpace(c.speaker)
		if c.text == "" {
			issues = append(issues, fmt.Sprintf("cue %d: empty text dropped", i+1))
			continue
		}
		if c.start < 0 {
			c.start = 0
		}

		var prev *core.Segment
		if len(segments) > 0 {
			prev = &segments[len(segments)-1]
		}
		invalid := c.end <= c.start
		overlaps := prev != nil && c.start < prev.End

		switch {
		case (invalid || overlaps) && prev != nil && prev.Speaker == c.speaker:
			prev.Text += " " + c.text
			prev.End = max(prev.End, c.end)
			issues = append(issues, fmt.Sprintf("cue %d: merged into previous cue", i+1))
			continue
		case invalid:
			issues = append(issues, fmt.Sprintf("cue %d: end %.3f not after start %.3f, dropped", i+1, c.end, c.start))
			continue
		case overlaps && c.start > prev.Start:
			prev.End = c.start
			issues = append(issues, fmt.Sprintf("cue %d: overlap trimmed", i+1))
		case overlaps:
			prev.Text += " " + c.text
			prev.End = max(prev.End, c.end)
			issues = append(issues, fmt.Sprintf("cue %d: simultaneous start merged", i+1))
			continue
		}

		segments = append(segments, core.Segment{Start: c.start, End: c.end, Speaker: c.speaker, Text: c.text})
	}
	return segments, issues
}
