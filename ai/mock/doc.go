// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.StructureAnalyzer,
// ai.SpeakerIdentifier, ai.KnowledgeExtractor, ai.Embedder and ai.AIProvider
// for use in unit tests. The mocks are safe for concurrent use, so they can
// sit behind the extraction worker pool.
//
// # Usage in Tests
//
//	provider := mock.NewMockProvider()
//	provider.GetMockStructureAnalyzer().AnalyzeStructureFunc = mock.EvenUnits(2)
//	provider.GetMockExtractor().ExtractKnowledgeFunc = func(ctx context.Context, req ai.ExtractionRequest) (*ai.ExtractionResponse, error) {
//	    return &ai.ExtractionResponse{}, nil
//	}
//
//	count := provider.GetMockExtractor().CallCount()
//
// # Default Behavior
//
//   - MockStructureAnalyzer: one unit covering every segment
//   - MockSpeakerIdentifier: labels become "Participant A", "Participant B", ...
//   - MockKnowledgeExtractor: capitalized words become "Term" entities
//   - MockEmbedder: deterministic vectors based on text hash
package mock
