package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type jsonSegment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
}

// parseJSON accepts either a bare segment array or an object with a
// "segments" array, the shape diarization tools emit.
func parseJSON(data []byte) ([]cue, error) {
	var segs []jsonSegment
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &segs); err != nil {
			return nil, fmt.Errorf("decode segments: %w", err)
		}
	} else {
		var doc struct {
			Segments []jsonSegment `json:"segments"`
		}
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("decode segments: %w", err)
		}
		segs = doc.Segments
	}

	cues := make([]cue, len(segs))
	for i, s := range segs {
		cues[i] = cue{start: s.Start, end: s.End, speaker: s.Speaker, text: s.Text}
	}
	return cues, nil
}
