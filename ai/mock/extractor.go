package mock

import (
	"context"
	"strings"
	"sync"
	"unicode"

	"github.com/poiesic/unitgraph/ai"
)

// MockKnowledgeExtractor is a test double for ai.KnowledgeExtractor.
// It allows custom behavior injection via function fields.
type MockKnowledgeExtractor struct {
	// ExtractKnowledgeFunc is called by ExtractKnowledge if set.
	// If nil, uses default capitalized-word extraction.
	ExtractKnowledgeFunc func(ctx context.Context, req ai.ExtractionRequest) (*ai.ExtractionResponse, error)

	mu        sync.Mutex
	callCount int
	units     []string
}

// NewMockKnowledgeExtractor creates a mock knowledge extractor with default behavior.
func NewMockKnowledgeExtractor() *MockKnowledgeExtractor {
	return &MockKnowledgeExtractor{}
}

// ExtractKnowledge extracts simple mock knowledge from the unit text.
// Default behavior: the first five distinct capitalized words become "Term"
// entities.
func (m *MockKnowledgeExtractor) ExtractKnowledge(ctx context.Context, req ai.ExtractionRequest) (*ai.ExtractionResponse, error) {
	m.mu.Lock()
	m.callCount++
	m.units = append(m.units, req.UnitID)
	fn := m.ExtractKnowledgeFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}

	resp := &ai.ExtractionResponse{}
	seen := make(map[string]bool)
	for _, word := range strings.Fields(req.Text) {
		word = strings.Trim(word, ".,!?;:\"'()[]{}")
		if word == "" || !unicode.IsUpper([]rune(word)[0]) || seen[word] {
			continue
		}
		seen[word] = true
		resp.Entities = append(resp.Entities, ai.ExtractedEntity{Type: "Term", Value: word, Confidence: 0.5})
		if len(resp.Entities) == 5 {
			break
		}
	}
	return resp, nil
}

// CallCount returns the number of times ExtractKnowledge was called.
func (m *MockKnowledgeExtractor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// UnitIDs returns the unit ids seen, in call order.
func (m *MockKnowledgeExtractor) UnitIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.units...)
}

// Reset clears the call count and custom functions.
func (m *MockKnowledgeExtractor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.units = nil
	m.ExtractKnowledgeFunc = nil
}
