package langchain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/poiesic/unitgraph/ai"
)

const structureSystemPrompt = `You analyze the structure of long conversations such as podcast episodes and interviews.

You receive the complete transcript as numbered segments. Group the segments into meaningful units:
contiguous ranges of segments that form one coherent piece of conversation (a topic discussion, a
story, a question and its answer, an introduction, a closing).

Output ONLY valid JSON. Do not include any preamble or explanation. Start your response with { and
end it with }. Use exactly this shape:

{
  "units": [
    {"start_index": 0, "end_index": 12, "unit_type": "introduction", "summary": "...",
     "completeness": "complete", "themes": ["..."]}
  ],
  "themes": [{"name": "...", "description": "..."}],
  "flow": [{"segment_index": 13, "type": "topic_shift", "description": "..."}]
}

Rules:
- start_index and end_index are inclusive segment numbers from the transcript.
- Units must be contiguous, must not overlap, and together must cover every segment.
- Prefer units that hold a complete thought over units of equal length.
- unit_type is a short snake_case label of your choosing.
- completeness is one of "complete", "partial", "fragmented".
- themes are the recurring topics of the whole episode; each unit lists the themes it touches.
- flow marks where the conversation changes direction.`

const speakerSystemPrompt = `You identify the speakers in a conversation transcript.

Some speakers carry generic labels such as "SPEAKER_00" or "Speaker 1". Using the episode title,
description and what each speaker says, give every listed label a real name, or a descriptive role
when no name is stated (for example "Host" or "Guest (cardiologist)").

Output ONLY valid JSON of the form:

{"speakers": {"SPEAKER_00": "Jane Doe", "SPEAKER_01": "Host"}}

Rules:
- Include every label you were asked about.
- Never answer with another generic label such as "Speaker 2" or "Unknown".
- Two labels may map to the same person only if the transcript makes that clear.`

const extractionSystemPrompt = `You extract knowledge from one unit of a conversation.

Return entities, relationships between them, notable quotes and insights, all in a single JSON
object. Types are open: choose whatever type best describes each entity or relationship, including
types you have never used before. Do not force content into a fixed list.

Output ONLY valid JSON of the form:

{
  "entities": [{"type": "Person", "value": "Jane Doe", "description": "...", "confidence": 0.9}],
  "relationships": [{"source": "Jane Doe", "target": "Acme Corp", "type": "founded", "confidence": 0.8}],
  "quotes": [{"text": "...", "speaker": "Jane Doe", "category": "advice", "confidence": 0.7}],
  "insights": [{"text": "...", "category": "lesson", "confidence": 0.6}]
}

Rules:
- Every relationship source and target must be the value of an entity in the same answer.
- Quotes are verbatim from the text.
- confidence is a number between 0 and 1.
- Include only what the text states or clearly implies. Empty arrays are fine.`

// buildStructurePrompt renders the user prompt for a structure call.
func buildStructurePrompt(req ai.StructureRequest) string {
	var b strings.Builder
	writeEpisodeHeader(&b, req.Title, req.Description)
	fmt.Fprintf(&b, "Transcript (%d segments):\n", len(req.Segments))
	b.WriteString(formatTranscript(req.Segments))
	return b.String()
}

// buildSpeakerPrompt renders the user prompt for a speaker call.
func buildSpeakerPrompt(req ai.SpeakerRequest) string {
	var b strings.Builder
	writeEpisodeHeader(&b, req.Title, req.Description)

	if len(req.Known) > 0 {
		b.WriteString("Already identified:\n")
		for _, label := range sortedKeys(req.Known) {
			fmt.Fprintf(&b, "- %s = %s\n", label, req.Known[label])
		}
		b.WriteString("\n")
	}

	b.WriteString("Identify these labels: ")
	b.WriteString(strings.Join(req.Labels, ", "))
	b.WriteString("\n\n")

	for _, label := range req.Labels {
		fmt.Fprintf(&b, "Lines spoken by %s:\n", label)
		for _, line := range req.Samples[label] {
			fmt.Fprintf(&b, "  %q\n", collapseSpace(line))
		}
	}
	return b.String()
}

// buildExtractionPrompt renders the user prompt for an extraction call.
func buildExtractionPrompt(req ai.ExtractionRequest) string {
	var b strings.Builder
	if req.EpisodeTitle != "" {
		fmt.Fprintf(&b, "Episode: %s\n", req.EpisodeTitle)
	}
	if req.UnitType != "" {
		fmt.Fprintf(&b, "Unit type: %s\n", req.UnitType)
	}
	if req.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", req.Summary)
	}
	if len(req.Themes) > 0 {
		fmt.Fprintf(&b, "Themes: %s\n", strings.Join(req.Themes, ", "))
	}
	if len(req.Speakers) > 0 {
		fmt.Fprintf(&b, "Speakers: %s\n", strings.Join(req.Speakers, ", "))
	}
	b.WriteString("\nText:\n")
	b.WriteString(req.Text)
	b.WriteString("\n")
	return b.String()
}

func writeEpisodeHeader(b *strings.Builder, title, description string) {
	if title != "" {
		fmt.Fprintf(b, "Episode title: %s\n", title)
	}
	if description != "" {
		fmt.Fprintf(b, "Episode description: %s\n", description)
	}
	b.WriteString("\n")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
