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


// Package structure discovers how an episode's segments group into units and
// who is speaking.
//
// The Analyzer sends the whole transcript to an ai.StructureAnalyzer in one
// call, clamps the returned segment ranges into bounds and rejects structures
// that cover less than the minimum fraction of segments with a
// *core.ConversationAnalysisError.
//
// The SpeakerResolver replaces generic labels such as "SPEAKER_01" with
// names. Hints from the episode metadata are applied first and the
// collaborator is only asked about what remains. A generic label that survives
// the retry is reported as a *core.SpeakerIdentificationError.
//
// Both retry once by default. Every failure they return is fatal for the
// episode.
package structure
