package mock

import (
	"context"
	"sync"

	"github.com/poiesic/unitgraph/ai"
)

// MockStructureAnalyzer is a test double for ai.StructureAnalyzer.
type MockStructureAnalyzer struct {
	// AnalyzeStructureFunc is called by AnalyzeStructure if set.
	// If nil, one unit covering every segment is returned.
	AnalyzeStructureFunc func(ctx context.Context, req ai.StructureRequest) (*ai.StructureResponse, error)

	mu        sync.Mutex
	callCount int
}

// NewMockStructureAnalyzer creates a mock structure analyzer with default behavior.
func NewMockStructureAnalyzer() *MockStructureAnalyzer {
	return &MockStructureAnalyzer{}
}

// AnalyzeStructure returns the injected result or a single covering unit.
func (m *MockStructureAnalyzer) AnalyzeStructure(ctx context.Context, req ai.StructureRequest) (*ai.StructureResponse, error) {
	m.mu.Lock()
	m.callCount++
	fn := m.AnalyzeStructureFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return &ai.StructureResponse{
		Units: []ai.UnitRange{{
			StartIndex:   0,
			EndIndex:     len(req.Segments) - 1,
			UnitType:     "topic_discussion",
			Summary:      req.Title,
			Completeness: "complete",
			Themes:       []string{"general"},
		}},
		Themes: []ai.ThemeItem{{Name: "general"}},
	}, nil
}

// CallCount returns the number of times AnalyzeStructure was called.
func (m *MockStructureAnalyzer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockStructureAnalyzer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.AnalyzeStructureFunc = nil
}

// EvenUnits returns a structure function that splits the transcript into n
// contiguous units of near-equal length.
func EvenUnits(n int) func(ctx context.Context, req ai.StructureRequest) (*ai.StructureResponse, error) {
	return func(ctx context.Context, req ai.StructureRequest) (*ai.StructureResponse, error) {
		total := len(req.Segments)
		units := min(n, total)
		resp := &ai.StructureResponse{Themes: []ai.ThemeItem{{Name: "general"}}}
		start := 0
		for i := 0; i < units; i++ {
			end := start + (total-start)/(units-i) - 1
			resp.Units = append(resp.Units, ai.UnitRange{
				StartIndex:   start,
				EndIndex:     end,
				UnitType:     "topic_discussion",
				Completeness: "complete",
				Themes:       []string{"general"},
			})
			start = end + 1
		}
		return resp, nil
	}
}
