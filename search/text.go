package search

import (
	"strings"

	"github.com/poiesic/unitgraph/core"
)

// Stop words to filter out when checking for verbatim matches
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "what": true, "who": true, "about": true,
}

const punctuation = ".,!?;:'\"-()[]{}"

// words splits text into normalized words with surrounding punctuation
// trimmed.
func words(text string) []string {
	fields := strings.Fields(core.Normalize(text))
	out := fields[:0]
	for _, w := range fields {
		if w = strings.Trim(w, punctuation); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// tokenizeAndFilter returns the words of text minus stop words.
func tokenizeAndFilter(text string) []string {
	all := words(text)
	filtered := make([]string, 0, len(all))
	for _, w := range all {
		if !stopWords[w] {
			filtered = append(filtered, w)
		}
	}
	return filtered
}

// containsAllQueryWords checks if all query words (after filtering) appear in the document
func containsAllQueryWords(document, query string) bool {
	queryWords := tokenizeAndFilter(query)
	if len(queryWords) == 0 {
		return false
	}

	docWordSet := make(map[string]bool)
	for _, word := range words(document) {
		docWordSet[word] = true
	}
	for _, qWord := range queryWords {
		if !docWordSet[qWord] {
			return false
		}
	}
	return true
}

// phrase renders text as a space-delimited word sequence so that whole-word
// containment is a substring test.
func phrase(text string) string {
	return " " + strings.Join(words(text), " ") + " "
}

// mentions reports whether the query names value as a whole phrase.
func mentions(queryPhrase, value string) bool {
	p := phrase(value)
	return p != "  " && strings.Contains(queryPhrase, p)
}
