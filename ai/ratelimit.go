package ai

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// NewRateLimitedProvider wraps p so every collaborator call made through the
// returned provider draws from one shared budget of calls per window.
// Callers block until a slot is available; a slot that cannot be obtained
// before the context deadline yields ErrRateLimited. A non-positive calls
// value returns p unchanged.
func NewRateLimitedProvider(p AIProvider, calls int, window time.Duration) AIProvider {
	if calls <= 0 || window <= 0 {
		return p
	}
	limiter := rate.NewLimiter(rate.Every(window/time.Duration(calls)), 1)
	rp := &rateLimitedProvider{inner: p, limiter: limiter}
	rp.structure = &limitedStructureAnalyzer{rp: rp, inner: p.StructureAnalyzer()}
	rp.speakers = &limitedSpeakerIdentifier{rp: rp, inner: p.SpeakerIdentifier()}
	rp.extractor = &limitedKnowledgeExtractor{rp: rp, inner: p.KnowledgeExtractor()}
	if e := p.Embedder(); e != nil {
		rp.embedder = &limitedEmbedder{rp: rp, inner: e}
	}
	return rp
}

type rateLimitedProvider struct {
	inner   AIProvider
	limiter *rate.Limiter

	structure *limitedStructureAnalyzer
	speakers  *limitedSpeakerIdentifier
	extractor *limitedKnowledgeExtractor
	embedder  *limitedEmbedder
}

func (p *rateLimitedProvider) wait(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return nil
}

func (p *rateLimitedProvider) StructureAnalyzer() StructureAnalyzer   { return p.structure }
func (p *rateLimitedProvider) SpeakerIdentifier() SpeakerIdentifier   { return p.speakers }
func (p *rateLimitedProvider) KnowledgeExtractor() KnowledgeExtractor { return p.extractor }

func (p *rateLimitedProvider) Embedder() Embedder {
	if p.embedder == nil {
		return nil
	}
	return p.embedder
}

func (p *rateLimitedProvider) Close() error {
	return p.inner.Close()
}

type limitedStructureAnalyzer struct {
	rp    *rateLimitedProvider
	inner StructureAnalyzer
}

func (l *limitedStructureAnalyzer) AnalyzeStructure(ctx context.Context, req StructureRequest) (*StructureResponse, error) {
	if err := l.rp.wait(ctx); err != nil {
		return nil, err
	}
	return l.inner.AnalyzeStructure(ctx, req)
}

type limitedSpeakerIdentifier struct {
	rp    *rateLimitedProvider
	inner SpeakerIdentifier
}

func (l *limitedSpeakerIdentifier) IdentifySpeakers(ctx context.Context, req SpeakerRequest) (*SpeakerResponse, error) {
	if err := l.rp.wait(ctx); err != nil {
		return nil, err
	}
	return l.inner.IdentifySpeakers(ctx, req)
}

type limitedKnowledgeExtractor struct {
	rp    *rateLimitedProvider
	inner KnowledgeExtractor
}

func (l *limitedKnowledgeExtractor) ExtractKnowledge(ctx context.Context, req ExtractionRequest) (*ExtractionResponse, error) {
	if err := l.rp.wait(ctx); err != nil {
		return nil, err
	}
	return l.inner.ExtractKnowledge(ctx, req)
}

type limitedEmbedder struct {
	rp    *rateLimitedProvider
	inner Embedder
}

func (l *limitedEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if err := l.rp.wait(ctx); err != nil {
		return nil, err
	}
	return l.inner.EmbedText(ctx, text)
}

func (l *limitedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if err := l.rp.wait(ctx); err != nil {
		return nil, err
	}
	return l.inner.EmbedTexts(ctx, texts)
}
