package langchain

import (
	"context"
	"log/slog"

	"github.com/poiesic/unitgraph/ai"
)

// StructureAnalyzer implements ai.StructureAnalyzer with one chat call over
// the whole transcript.
type StructureAnalyzer struct {
	client *jsonClient
	logger *slog.Logger
}

func newStructureAnalyzer(config *ai.Config) (*StructureAnalyzer, error) {
	model, err := newModel(config, config.StructureModel)
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("component", "langchain-structure")
	return &StructureAnalyzer{
		client: &jsonClient{
			model:       model,
			temperature: config.Temperature,
			mapErr:      errorMapper(config.Provider),
			logger:      logger,
		},
		logger: logger,
	}, nil
}

// AnalyzeStructure asks the model how the transcript groups into units.
func (s *StructureAnalyzer) AnalyzeStructure(ctx context.Context, req ai.StructureRequest) (*ai.StructureResponse, error) {
	s.logger.Debug("analyzing structure", "segments", len(req.Segments))

	var resp ai.StructureResponse
	if err := s.client.generate(ctx, structureSystemPrompt, buildStructurePrompt(req), &resp); err != nil {
		return nil, err
	}

	s.logger.Debug("structure analyzed", "units", len(resp.Units), "themes", len(resp.Themes))
	return &resp, nil
}
