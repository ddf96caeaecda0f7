package langchain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/unitgraph/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// newModel creates a chat model for the configured backend.
func newModel(config *ai.Config, model string) (llms.Model, error) {
	switch config.Provider {
	case ai.ProviderOpenAI:
		// Local OpenAI-compatible services accept any token
		token := config.APIKey
		if token == "" {
			token = "none"
		}
		m, err := openai.New(
			openai.WithBaseURL(config.Host),
			openai.WithToken(token),
			openai.WithModel(model),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}
		return m, nil

	case ai.ProviderOllama:
		m, err := ollama.New(
			ollama.WithModel(model),
			ollama.WithServerURL(config.Host),
			ollama.WithFormat("json"),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}
		return m, nil

	case ai.ProviderAnthropic:
		m, err := anthropic.New(
			anthropic.WithToken(config.APIKey),
			anthropic.WithModel(model),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}
		return m, nil

	default:
		return nil, fmt.Errorf("%w: %q", ai.ErrUnknownProvider, config.Provider)
	}
}

// errorMapper returns the langchaingo mapper that turns backend failures
// (HTTP status errors, timeouts) into *llms.Error values with a code.
func errorMapper(provider string) func(error) error {
	switch provider {
	case ai.ProviderOpenAI:
		return openai.MapError
	case ai.ProviderAnthropic:
		return anthropic.MapError
	default:
		return llms.NewErrorMapper(provider).Map
	}
}

// backendError classifies a failed backend call. The HTTP clients flatten
// context errors into plain strings, so an expired or canceled ctx is joined
// back in for errors.Is.
func backendError(ctx context.Context, mapErr func(error) error, err error) error {
	if mapErr != nil {
		err = mapErr(err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = fmt.Errorf("%w: %w", ctxErr, err)
	}
	return err
}

// jsonClient issues one chat call and decodes the JSON answer.
type jsonClient struct {
	model       llms.Model
	temperature float64
	mapErr      func(error) error
	logger      *slog.Logger
}

// generate sends the system and user prompts and decodes the response into out.
// Unparseable output is reported as ai.ErrMalformedResponse.
func (c *jsonClient) generate(ctx context.Context, systemPrompt, userPrompt string, out any) error {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	response, err := c.model.GenerateContent(ctx, content,
		llms.WithTemperature(c.temperature),
		llms.WithJSONMode(),
	)
	if err != nil {
		err = backendError(ctx, c.mapErr, err)
		c.logger.Error("failed to generate content", "err", err)
		return err
	}

	if len(response.Choices) < 1 {
		c.logger.Debug("no choices returned from model")
		return ai.ErrEmptyResponse
	}

	responseText := cleanResponse(response.Choices[0].Content)
	if err := json.Unmarshal([]byte(responseText), out); err != nil {
		c.logger.Warn("error parsing model response", "response", truncate(responseText, 500), "err", err)
		return fmt.Errorf("%w: %v", ai.ErrMalformedResponse, err)
	}
	return nil
}

// cleanResponse strips code fences and surrounding prose, then repairs
// common syntax slips.
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	return repairJSON(outermostObject(s))
}
