package ai_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/unitgraph/ai"
	"github.com/poiesic/unitgraph/ai/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func TestNewRateLimitedProvider_Disabled(t *testing.T) {
	inner := mock.NewMockProvider()
	p := ai.NewRateLimitedProvider(inner, 0, time.Minute)
	assert.Same(t, inner, p)
}

func TestNewRateLimitedProvider_SharedBudget(t *testing.T) {
	inner := mock.NewMockProvider()
	// One call every 50ms, shared by every service.
	p := ai.NewRateLimitedProvider(inner, 20, time.Second)
	ctx := context.Background()

	start := time.Now()
	_, err := p.KnowledgeExtractor().ExtractKnowledge(ctx, ai.ExtractionRequest{Text: "a"})
	require.NoError(t, err)
	_, err = p.SpeakerIdentifier().IdentifySpeakers(ctx, ai.SpeakerRequest{Labels: []string{"x"}})
	require.NoError(t, err)
	_, err = p.KnowledgeExtractor().ExtractKnowledge(ctx, ai.ExtractionRequest{Text: "b"})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond, "second and third call wait for slots")
	assert.Equal(t, 2, inner.GetMockExtractor().CallCount())
	assert.Equal(t, 1, inner.GetMockSpeakerIdentifier().CallCount())
}

func TestNewRateLimitedProvider_DeadlineIsRateLimited(t *testing.T) {
	inner := mock.NewMockProvider()
	p := ai.NewRateLimitedProvider(inner, 1, time.Hour)

	_, err := p.StructureAnalyzer().AnalyzeStructure(context.Background(), ai.StructureRequest{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = p.StructureAnalyzer().AnalyzeStructure(ctx, ai.StructureRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrRateLimited)
	assert.True(t, ai.IsTransient(err))
	assert.Equal(t, 1, inner.GetMockStructureAnalyzer().CallCount())
}

func TestNewRateLimitedProvider_Embedder(t *testing.T) {
	assert.Nil(t, ai.NewRateLimitedProvider(mock.NewMockProvider(), 10, time.Second).Embedder())

	withEmbedder := mock.NewMockProvider().WithEmbedder(mock.NewMockEmbedder())
	p := ai.NewRateLimitedProvider(withEmbedder, 10, time.Second)
	require.NotNil(t, p.Embedder())
	_, err := p.Embedder().EmbedText(context.Background(), "x")
	assert.NoError(t, err)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"malformed", fmt.Errorf("parse: %w", ai.ErrMalformedResponse), true},
		{"rate limited", ai.ErrRateLimited, true},
		{"empty", ai.ErrEmptyResponse, true},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"canceled wrapping malformed", errors.Join(context.Canceled, ai.ErrMalformedResponse), false},
		{"other", errors.New("401 unauthorized"), false},
		{"backend rate limit", llms.NewError(llms.ErrCodeRateLimit, "openai", "Rate limit exceeded"), true},
		{"backend unavailable", fmt.Errorf("extract: %w", llms.NewError(llms.ErrCodeProviderUnavailable, "openai", "down")), true},
		{"backend timeout", llms.NewError(llms.ErrCodeTimeout, "ollama", "timeout"), true},
		{"backend auth", llms.NewError(llms.ErrCodeAuthentication, "openai", "bad key"), false},
		{"backend canceled", llms.NewError(llms.ErrCodeCanceled, "openai", "canceled").WithCause(context.Canceled), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ai.IsTransient(tt.err))
		})
	}
}
