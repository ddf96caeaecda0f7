package langchain

import (
	"fmt"
	"strings"

	"github.com/poiesic/unitgraph/core"
)

// isKeyRune reports whether r may appear in a bare JSON key.
func isKeyRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
}

// formatTranscript renders segments one per line with their index, so the
// model can refer to segment indices in its answer.
//
//	[12] (754.2-761.8) Jane Doe: So what happened next?
func formatTranscript(segments []core.Segment) string {
	var b strings.Builder
	for i, s := range segments {
		fmt.Fprintf(&b, "[%d] (%.1f-%.1f) %s: %s\n", i, s.Start, s.End, s.Speaker, collapseSpace(s.Text))
	}
	return b.String()
}

// collapseSpace joins whitespace runs into single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate shortens s to at most n bytes for logging.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
