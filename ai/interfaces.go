package ai

import "context"

// StructureAnalyzer discovers how the segments of a whole transcript group
// into semantic units. Implementations receive the complete transcript in a
// single call and must be thread-safe for concurrent use.
type StructureAnalyzer interface {
	// AnalyzeStructure returns unit ranges, themes and narrative flow for the
	// transcript. Segment indices in the response refer to req.Segments.
	// Returns an error wrapping ErrMalformedResponse if the output cannot be parsed.
	AnalyzeStructure(ctx context.Context, req StructureRequest) (*StructureResponse, error)
}

// SpeakerIdentifier maps raw speaker labels to resolved names or roles using
// transcript context and episode metadata.
// Implementations must be thread-safe for concurrent use.
type SpeakerIdentifier interface {
	// IdentifySpeakers returns a mapping for the labels in req.Labels.
	// Labels missing from the result are left unchanged by the caller.
	IdentifySpeakers(ctx context.Context, req SpeakerRequest) (*SpeakerResponse, error)
}

// KnowledgeExtractor extracts entities, relationships, quotes and insights
// from one unit of conversation in a single combined call.
// Implementations must be thread-safe for concurrent use.
type KnowledgeExtractor interface {
	// ExtractKnowledge analyzes one unit. Entity and relationship types are
	// open strings chosen by the implementation.
	// Returns an empty response if nothing is found.
	ExtractKnowledge(ctx context.Context, req ExtractionRequest) (*ExtractionResponse, error)
}

// Embedder generates vector embeddings from text.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// All services returned by a provider share its configuration and connection.
type AIProvider interface {
	// StructureAnalyzer returns the transcript structure service.
	StructureAnalyzer() StructureAnalyzer

	// SpeakerIdentifier returns the speaker resolution service.
	SpeakerIdentifier() SpeakerIdentifier

	// KnowledgeExtractor returns the per-unit extraction service.
	KnowledgeExtractor() KnowledgeExtractor

	// Embedder returns the text embedding service, or nil if embeddings are
	// not configured.
	Embedder() Embedder

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
