package langchain

import (
	"context"
	"log/slog"

	"github.com/poiesic/unitgraph/ai"
)

// SpeakerIdentifier implements ai.SpeakerIdentifier. It shares the structure
// model, since it needs the same wide view of the episode.
type SpeakerIdentifier struct {
	client *jsonClient
	logger *slog.Logger
}

func newSpeakerIdentifier(config *ai.Config) (*SpeakerIdentifier, error) {
	model, err := newModel(config, config.StructureModel)
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("component", "langchain-speakers")
	return &SpeakerIdentifier{
		client: &jsonClient{
			model:       model,
			temperature: config.Temperature,
			mapErr:      errorMapper(config.Provider),
			logger:      logger,
		},
		logger: logger,
	}, nil
}

// IdentifySpeakers asks the model to name each generic label.
func (s *SpeakerIdentifier) IdentifySpeakers(ctx context.Context, req ai.SpeakerRequest) (*ai.SpeakerResponse, error) {
	s.logger.Debug("identifying speakers", "labels", req.Labels)

	var resp ai.SpeakerResponse
	if err := s.client.generate(ctx, speakerSystemPrompt, buildSpeakerPrompt(req), &resp); err != nil {
		return nil, err
	}
	if resp.Speakers == nil {
		resp.Speakers = map[string]string{}
	}
	return &resp, nil
}
