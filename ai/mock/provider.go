// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package mock

import "github.com/poiesic/unitgraph/ai"

// MockProvider is a test double for ai.AIProvider.
// It aggregates mock instances of every collaborator.
type MockProvider struct {
	structure *MockStructureAnalyzer
	speakers  *MockSpeakerIdentifier
	extractor *MockKnowledgeExtractor
	embedder  *MockEmbedder

	closed bool
}

// NewMockProvider creates a new mock provider with default mock services and
// no embedder.
//
// Returns the concrete type; it satisfies ai.AIProvider and exposes the
// GetMockX accessors for assertions.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		structure: NewMockStructureAnalyzer(),
		speakers:  NewMockSpeakerIdentifier(),
		extractor: NewMockKnowledgeExtractor(),
	}
}

// WithEmbedder attaches a mock embedder so the provider reports embeddings
// as enabled.
func (p *MockProvider) WithEmbedder(e *MockEmbedder) *MockProvider {
	p.embedder = e
	return p
}

// StructureAnalyzer returns the mock structure analyzer.
func (p *MockProvider) StructureAnalyzer() ai.StructureAnalyzer {
	return p.structure
}

// SpeakerIdentifier returns the mock speaker identifier.
func (p *MockProvider) SpeakerIdentifier() ai.SpeakerIdentifier {
	return p.speakers
}

// KnowledgeExtractor returns the mock knowledge extractor.
func (p *MockProvider) KnowledgeExtractor() ai.KnowledgeExtractor {
	return p.extractor
}

// Embedder returns the mock embedder, or nil if none was attached.
func (p *MockProvider) Embedder() ai.Embedder {
	if p.embedder == nil {
		return nil
	}
	return p.embedder
}

// Close marks the provider closed.
func (p *MockProvider) Close() error {
	p.closed = true
	return nil
}

// Closed reports whether Close was called.
func (p *MockProvider) Closed() bool {
	return p.closed
}

// GetMockStructureAnalyzer returns the underlying mock for test assertions.
func (p *MockProvider) GetMockStructureAnalyzer() *MockStructureAnalyzer {
	return p.structure
}

// GetMockSpeakerIdentifier returns the underlying mock for test assertions.
func (p *MockProvider) GetMockSpeakerIdentifier() *MockSpeakerIdentifier {
	return p.speakers
}

// GetMockExtractor returns the underlying mock for test assertions.
func (p *MockProvider) GetMockExtractor() *MockKnowledgeExtractor {
	return p.extractor
}

// GetMockEmbedder returns the underlying mock embedder, which may be nil.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}
