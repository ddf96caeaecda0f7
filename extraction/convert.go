package extraction

import (
	"strings"

	"github.com/poiesic/unitgraph/ai"
	"github.com/poiesic/unitgraph/core"
)

// DropStats counts items removed while converting a response.
type DropStats struct {
	Invalid  int
	Dangling int
}

// ToKnowledge validates a response and converts it into unit knowledge.
//
// Entity IDs are unit-local: IDFromContent of the entity key. Duplicate
// entities within the unit are folded together. Relationships name their
// endpoints by value and are dropped when no entity of the unit has that
// value. Quotes without a speaker get the unit's primary speaker.
func ToKnowledge(episodeID string, unit *core.MeaningfulUnit, resp *ai.ExtractionResponse) (core.UnitKnowledge, DropStats) {
	k := core.UnitKnowledge{UnitID: unit.ID, UnitIndex: unit.Index}
	var stats DropStats

	byKey := make(map[string]int)
	byValue := make(map[string]core.ID)
	for _, item := range resp.Entities {
		ent := core.Entity{
			Type:              strings.TrimSpace(item.Type),
			Value:             strings.TrimSpace(item.Value),
			Description:       strings.TrimSpace(item.Description),
			Confidence:        item.Confidence,
			Mentions:          1,
			SupportingUnitIDs: []string{unit.ID},
		}
		if err := core.ValidateEntity(&ent); err != nil {
			stats.Invalid++
			continue
		}
		key := ent.Key()
		if i, ok := byKey[key]; ok {
			prev := &k.Entities[i]
			prev.Mentions++
			prev.Confidence = max(prev.Confidence, ent.Confidence)
			if prev.Description == "" {
				prev.Description = ent.Description
			}
			continue
		}
		ent.ID = core.IDFromContent(key)
		byKey[key] = len(k.Entities)
		k.Entities = append(k.Entities, ent)

		value := core.Normalize(ent.Value)
		if _, ok := byValue[value]; !ok {
			byValue[value] = ent.ID
		}
	}

	seen := make(map[string]bool)
	for _, item := range resp.Relationships {
		src, okSrc := byValue[core.Normalize(item.Source)]
		tgt, okTgt := byValue[core.Normalize(item.Target)]
		if !okSrc || !okTgt {
			stats.Dangling++
			continue
		}
		rel := core.Relationship{
			SourceEntityID:   src,
			TargetEntityID:   tgt,
			Type:             strings.TrimSpace(item.Type),
			Description:      strings.TrimSpace(item.Description),
			Confidence:       item.Confidence,
			SupportingUnitID: unit.ID,
		}
		if err := core.ValidateRelationship(&rel); err != nil {
			stats.Invalid++
			continue
		}
		if seen[rel.Key()] {
			continue
		}
		seen[rel.Key()] = true
		k.Relationships = append(k.Relationships, rel)
	}

	for _, item := range resp.Quotes {
		q := core.Quote{
			Text:       strings.TrimSpace(item.Text),
			UnitID:     unit.ID,
			Speaker:    strings.TrimSpace(item.Speaker),
			Category:   strings.TrimSpace(item.Category),
			Confidence: item.Confidence,
		}
		if q.Speaker == "" {
			q.Speaker = unit.PrimarySpeaker()
		}
		if err := core.ValidateQuote(&q); err != nil {
			stats.Invalid++
			continue
		}
		q.ID = core.IDFromContent("quote\x00" + episodeID + "\x00" + unit.ID + "\x00" + q.Text)
		k.Quotes = append(k.Quotes, q)
	}

	for _, item := range resp.Insights {
		in := core.Insight{
			Text:       strings.TrimSpace(item.Text),
			UnitID:     unit.ID,
			Category:   strings.TrimSpace(item.Category),
			Confidence: item.Confidence,
		}
		if err := core.ValidateInsight(&in); err != nil {
			stats.Invalid++
			continue
		}
		in.ID = core.IDFromContent("insight\x00" + episodeID + "\x00" + unit.ID + "\x00" + in.Text)
		k.Insights = append(k.Insights, in)
	}

	return k, stats
}
