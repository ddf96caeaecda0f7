package transcript

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	bracketSpeaker = regexp.MustCompile(`^\[([^\]]{1,60})\]\s*(.*)$`)
	colonSpeaker   = regexp.MustCompile(`^([\p{L}\p{N}_.'-]+(?: [\p{L}\p{N}_.'-]+){0,3}):\s+(.+)$`)
	markupTag      = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
	blankLines     = regexp.MustCompile(`\n\s*\n`)
)

func parseSRT(text string) ([]cue, []string) {
	var cues []cue
	var issues []string
	for n, block := range splitBlocks(text) {
		lines := strings.Split(block, "\n")
		timing := -1
		for i, line := range lines {
			if strings.Contains(line, "-->") {
				timing = i
				break
			}
		}
		if timing < 0 {
			issues = append(issues, fmt.Sprintf("block %d: no timing line", n+1))
			continue
		}
		start, end, err := parseTiming(lines[timing])
		if err != nil {
			issues = append(issues, fmt.Sprintf("block %d: %v", n+1, err))
			continue
		}
		speaker, body := splitSpeaker(joinLines(lines[timing+1:]))
		cues = append(cues, cue{start: start, end: end, speaker: speaker, text: body})
	}
	return cues, issues
}

// splitSpeaker separates a leading speaker prefix from the caption text.
func splitSpeaker(text string) (string, string) {
	if m := bracketSpeaker.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}
	if m := colonSpeaker.FindStringSubmatch(text); m != nil {
		return m[1], strings.TrimSpace(m[2])
	}
	return "", text
}

func splitBlocks(text string) []string {
	var blocks []string
	for _, b := range blankLines.Split(strings.TrimSpace(text), -1) {
		if strings.TrimSpace(b) != "" {
			blocks = append(blocks, strings.TrimSpace(b))
		}
	}
	return blocks
}

func joinLines(lines []string) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(markupTag.ReplaceAllString(l, ""))
		if l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, " ")
}
