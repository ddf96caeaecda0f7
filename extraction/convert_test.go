package extraction

import (
	"testing"

	"github.com/poiesic/unitgraph/ai"
	"github.com/poiesic/unitgraph/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func convertUnit() *core.MeaningfulUnit {
	return &core.MeaningfulUnit{
		ID:       "unit_ep-1_0000",
		Index:    0,
		Speakers: []string{"Jane Doe", "Sam Lee"},
	}
}

func TestToKnowledge_FoldsDuplicateEntities(t *testing.T) {
	resp := &ai.ExtractionResponse{
		Entities: []ai.ExtractedEntity{
			{Type: "Person", Value: "Jane Doe", Confidence: 0.6},
			{Type: "person", Value: "  jane doe ", Description: "host", Confidence: 0.9},
			{Type: "Ingredient", Value: "koji", Confidence: 0.8},
		},
	}

	k, stats := ToKnowledge("ep-1", convertUnit(), resp)
	assert.Equal(t, DropStats{}, stats)
	require.Len(t, k.Entities, 2)

	jane := k.Entities[0]
	assert.Equal(t, "Jane Doe", jane.Value, "first spelling wins")
	assert.Equal(t, 2, jane.Mentions)
	assert.InDelta(t, 0.9, jane.Confidence, 1e-9)
	assert.Equal(t, "host", jane.Description)
	assert.Equal(t, core.IDFromContent(jane.Key()), jane.ID)
	assert.Equal(t, []string{"unit_ep-1_0000"}, jane.SupportingUnitIDs)
}

func TestToKnowledge_DropsInvalidAndDangling(t *testing.T) {
	resp := &ai.ExtractionResponse{
		Entities: []ai.ExtractedEntity{
			{Type: "Person", Value: "Jane Doe", Confidence: 0.9},
			{Type: "Organization", Value: "Acme", Confidence: 0.9},
			{Type: "", Value: "untyped", Confidence: 0.9},
			{Type: "Person", Value: "Sam", Confidence: 1.7},
		},
		Relationships: []ai.ExtractedRelationship{
			{Source: "jane doe", Target: "ACME", Type: "works_at", Confidence: 0.8},
			{Source: "Jane Doe", Target: "Acme", Type: "Works_At", Confidence: 0.4},
			{Source: "Jane Doe", Target: "Sam", Type: "knows", Confidence: 0.8},
			{Source: "Jane Doe", Target: "Acme", Type: " ", Confidence: 0.8},
		},
		Quotes: []ai.ExtractedQuote{
			{Text: "", Confidence: 0.5},
		},
		Insights: []ai.ExtractedInsight{
			{Text: "Fermentation is patience", Confidence: -1},
		},
	}

	k, stats := ToKnowledge("ep-1", convertUnit(), resp)
	assert.Equal(t, 5, stats.Invalid)
	assert.Equal(t, 1, stats.Dangling)
	require.Len(t, k.Entities, 2)
	require.Len(t, k.Relationships, 1, "duplicate edge collapses")

	rel := k.Relationships[0]
	assert.Equal(t, k.Entities[0].ID, rel.SourceEntityID)
	assert.Equal(t, k.Entities[1].ID, rel.TargetEntityID)
	assert.Equal(t, "unit_ep-1_0000", rel.SupportingUnitID)
	assert.Empty(t, k.Quotes)
	assert.Empty(t, k.Insights)
}

func TestToKnowledge_QuotesAndInsights(t *testing.T) {
	resp := &ai.ExtractionResponse{
		Quotes: []ai.ExtractedQuote{
			{Text: "Mold is a collaborator.", Category: "memorable", Confidence: 0.9},
			{Text: "Ship it.", Speaker: "Sam Lee", Confidence: 0.7},
		},
		Insights: []ai.ExtractedInsight{
			{Text: "Temperature control matters more than recipe", Category: "technique", Confidence: 0.8},
		},
	}
	unit := convertUnit()

	k, _ := ToKnowledge("ep-1", unit, resp)
	require.Len(t, k.Quotes, 2)
	assert.Equal(t, "Jane Doe", k.Quotes[0].Speaker, "quote without speaker takes the primary speaker")
	assert.Equal(t, "Sam Lee", k.Quotes[1].Speaker)
	assert.Equal(t, unit.ID, k.Quotes[0].UnitID)
	assert.NotEqual(t, k.Quotes[0].ID, k.Quotes[1].ID)

	require.Len(t, k.Insights, 1)
	assert.Equal(t, "technique", k.Insights[0].Category)

	again, _ := ToKnowledge("ep-1", unit, resp)
	assert.Equal(t, k.Quotes[0].ID, again.Quotes[0].ID)
	other, _ := ToKnowledge("ep-2", unit, resp)
	assert.NotEqual(t, k.Quotes[0].ID, other.Quotes[0].ID, "ids are scoped to the episode")
}
