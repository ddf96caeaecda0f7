package langchain

import (
	"log/slog"

	"github.com/poiesic/unitgraph/ai"
)

// Provider implements ai.AIProvider on langchaingo chat and embedding models.
type Provider struct {
	config    *ai.Config
	structure *StructureAnalyzer
	speakers  *SpeakerIdentifier
	extractor *KnowledgeExtractor
	embedder  *Embedder
	logger    *slog.Logger
}

// NewProvider creates a provider for the configured backend.
// The config is validated and normalized before use. When
// config.RateLimitCalls is positive, the returned provider shares that call
// budget across all of its services.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	structure, err := newStructureAnalyzer(config)
	if err != nil {
		return nil, err
	}
	speakers, err := newSpeakerIdentifier(config)
	if err != nil {
		return nil, err
	}
	extractor, err := newKnowledgeExtractor(config)
	if err != nil {
		return nil, err
	}

	p := &Provider{
		config:    config,
		structure: structure,
		speakers:  speakers,
		extractor: extractor,
		logger:    slog.Default().With("component", "langchain-provider", "provider", config.Provider),
	}

	if config.EmbeddingsEnabled() {
		p.embedder, err = newEmbedder(config)
		if err != nil {
			return nil, err
		}
	}

	return ai.NewRateLimitedProvider(p, config.RateLimitCalls, config.RateWindow), nil
}

// StructureAnalyzer returns the transcript structure service.
func (p *Provider) StructureAnalyzer() ai.StructureAnalyzer {
	return p.structure
}

// SpeakerIdentifier returns the speaker resolution service.
func (p *Provider) SpeakerIdentifier() ai.SpeakerIdentifier {
	return p.speakers
}

// KnowledgeExtractor returns the per-unit extraction service.
func (p *Provider) KnowledgeExtractor() ai.KnowledgeExtractor {
	return p.extractor
}

// Embedder returns the embedding service, or nil when embeddings are disabled.
func (p *Provider) Embedder() ai.Embedder {
	if p.embedder == nil {
		return nil
	}
	return p.embedder
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying clients don't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing provider")
	return nil
}
