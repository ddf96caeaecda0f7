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


// Package ai defines the model-backed services the episode pipeline calls.
//
// Four capabilities are modelled as separate interfaces so a stage depends only
// on what it uses:
//
//   - StructureAnalyzer: proposes meaningful unit boundaries over segments
//   - SpeakerIdentifier: maps generic speaker labels to real names
//   - KnowledgeExtractor: pulls entities, relationships and quotes from a unit
//   - Embedder: turns unit text into vectors, optional
//
// AIProvider bundles them. Embedder returns nil when embeddings are disabled.
//
// Implementations live in sub-packages:
//
//   - ai/langchain: langchaingo clients for Ollama and OpenAI-compatible hosts
//   - ai/mock: deterministic doubles with injectable behavior for tests
//
// NewRateLimitedProvider wraps any provider so every call, across all four
// services, draws from one shared token bucket.
//
// Errors that deserve another attempt (rate limits, timeouts, replies that do
// not parse) are recognised by IsTransient.
//
//	provider, err := langchain.NewProvider(ai.NewConfig(ai.WithModel("qwen3:8b")))
//	if err != nil {
//		return err
//	}
//	defer provider.Close()
//
//	resp, err := provider.StructureAnalyzer().AnalyzeStructure(ctx, req)
package ai
