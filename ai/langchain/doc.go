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


// Package langchain provides AI service implementations on top of langchaingo.
//
// The chat backend is chosen by ai.Config.Provider: any OpenAI-compatible
// server (vLLM, LocalAI, Ollama's /v1 endpoint), a native Ollama server, or
// Anthropic. Embeddings always use an OpenAI-compatible endpoint and are only
// created when ai.Config.EmbeddingModel is set.
//
// Every call asks for JSON output at the configured temperature. Responses are
// stripped of markdown code fences and lightly repaired before decoding; output
// that still fails to decode is reported as ai.ErrMalformedResponse so the
// calling phase can retry it.
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithHost("http://localhost:11434"), // /v1 added automatically
//	    ai.WithModel("qwen2.5:14b"),
//	)
//
//	provider, err := langchain.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	structure, err := provider.StructureAnalyzer().AnalyzeStructure(ctx, req)
package langchain
