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


package langchain

import (
	"context"
	"log/slog"

	"github.com/poiesic/unitgraph/ai"
)

// KnowledgeExtractor implements ai.KnowledgeExtractor with one combined chat
// call per unit.
type KnowledgeExtractor struct {
	client *jsonClient
	logger *slog.Logger
}

func newKnowledgeExtractor(config *ai.Config) (*KnowledgeExtractor, error) {
	model, err := newModel(config, config.ExtractionModel)
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("component", "langchain-extractor")
	return &KnowledgeExtractor{
		client: &jsonClient{
			model:       model,
			temperature: config.Temperature,
			mapErr:      errorMapper(config.Provider),
			logger:      logger,
		},
		logger: logger,
	}, nil
}

// NewKnowledgeExtractor creates a standalone extractor.
//
// Returns ai.KnowledgeExtractor interface to enforce abstraction.
func NewKnowledgeExtractor(config *ai.Config) (ai.KnowledgeExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return newKnowledgeExtractor(config)
}

// ExtractKnowledge extracts entities, relationships, quotes and insights from
// one unit. Types are passed through as the model wrote them.
func (e *KnowledgeExtractor) ExtractKnowledge(ctx context.Context, req ai.ExtractionRequest) (*ai.ExtractionResponse, error) {
	var resp ai.ExtractionResponse
	if err := e.client.generate(ctx, extractionSystemPrompt, buildExtractionPrompt(req), &resp); err != nil {
		return nil, err
	}

	e.logger.Debug("extracted knowledge",
		"unit_id", req.UnitID,
		"entities", len(resp.Entities),
		"relationships", len(resp.Relationships),
		"quotes", len(resp.Quotes),
		"insights", len(resp.Insights))
	return &resp, nil
}
