package transcript

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNotVTT is returned when a file lacks the WEBVTT signature.
var ErrNotVTT = errors.New("missing WEBVTT header")

var voiceTag = regexp.MustCompile(`<v(?:\.[^ >]+)*\s+([^>]+)>`)

func parseVTT(text string) ([]cue, []string, error) {
	blocks := splitBlocks(text)
	if len(blocks) == 0 || !strings.HasPrefix(blocks[0], "WEBVTT") {
		return nil, nil, ErrNotVTT
	}

	var cues []cue
	var issues []string
	for n, block := range blocks[1:] {
		if strings.HasPrefix(block, "NOTE") || strings.HasPrefix(block, "STYLE") || strings.HasPrefix(block, "REGION") {
			continue
		}
		lines := strings.Split(block, "\n")
		timing := 0
		if !strings.Contains(lines[0], "-->") {
			timing = 1
		}
		if timing >= len(lines) || !strings.Contains(lines[timing], "-->") {
			issues = append(issues, fmt.Sprintf("cue %d: no timing line", n+1))
			continue
		}
		start, end, err := parseTiming(lines[timing])
		if err != nil {
			issues = append(issues, fmt.Sprintf("cue %d: %v", n+1, err))
			continue
		}

		raw := strings.Join(lines[timing+1:], "\n")
		speaker := ""
		if m := voiceTag.FindStringSubmatch(raw); m != nil {
			speaker = strings.TrimSpace(m[1])
		}
		body := joinLines(strings.Split(raw, "\n"))
		if speaker == "" {
			speaker, body = splitSpeaker(body)
		}
		cues = append(cues, cue{start: start, end: end, speaker: speaker, text: body})
	}
	return cues, issues, nil
}
