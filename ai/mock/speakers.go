package mock

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/poiesic/unitgraph/ai"
)

// MockSpeakerIdentifier is a test double for ai.SpeakerIdentifier.
type MockSpeakerIdentifier struct {
	// IdentifySpeakersFunc is called by IdentifySpeakers if set.
	// If nil, labels are mapped to "Participant A", "Participant B", ...
	// in sorted label order.
	IdentifySpeakersFunc func(ctx context.Context, req ai.SpeakerRequest) (*ai.SpeakerResponse, error)

	mu        sync.Mutex
	callCount int
}

// NewMockSpeakerIdentifier creates a mock speaker identifier with default behavior.
func NewMockSpeakerIdentifier() *MockSpeakerIdentifier {
	return &MockSpeakerIdentifier{}
}

// IdentifySpeakers returns the injected result or a deterministic naming.
func (m *MockSpeakerIdentifier) IdentifySpeakers(ctx context.Context, req ai.SpeakerRequest) (*ai.SpeakerResponse, error) {
	m.mu.Lock()
	m.callCount++
	fn := m.IdentifySpeakersFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}

	labels := slices.Clone(req.Labels)
	slices.Sort(labels)
	resp := &ai.SpeakerResponse{Speakers: make(map[string]string, len(labels))}
	for i, label := range labels {
		resp.Speakers[label] = fmt.Sprintf("Participant %c", 'A'+rune(i%26))
	}
	return resp, nil
}

// CallCount returns the number of times IdentifySpeakers was called.
func (m *MockSpeakerIdentifier) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockSpeakerIdentifier) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.IdentifySpeakersFunc = nil
}
