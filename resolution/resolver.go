// Package resolution merges the per-unit knowledge of one episode into a
// single deduplicated set of entities and relationships.
package resolution

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/unitgraph/core"
)

// Result is the merged knowledge of an episode.
type Result struct {
	// Entities are canonical, ordered by normalized type then value.
	Entities []core.Entity
	// Relationships reference canonical entity ids, ordered by key.
	Relationships []core.Relationship
	Quotes        []core.Quote
	Insights      []core.Insight
	// Merged counts unit-level entities folded into an existing canonical
	// entity.
	Merged int
}

// Resolver performs exact-after-normalization entity resolution.
type Resolver struct {
	logger *slog.Logger
}

// New creates a Resolver. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger.With("component", "resolver")}
}

// CanonicalID returns the episode-scoped id of the entity with the given key.
func CanonicalID(episodeID, key string) core.ID {
	return core.IDFromContent(episodeID + "\x00" + key)
}

// Resolve merges entities sharing (normalized type, normalized value) across
// units. The first spelling seen in unit order is kept; confidence is the
// maximum, mentions are summed and supporting unit ids are unioned.
// Relationships are remapped onto canonical ids and collapsed by key, keeping
// the highest confidence. The output depends only on the input, never on the
// order units finished extracting.
func (r *Resolver) Resolve(ec core.EpisodeContext, knowledge []core.UnitKnowledge) *Result {
	ordered := slices.Clone(knowledge)
	slices.SortStableFunc(ordered, func(a, b core.UnitKnowledge) int { return a.UnitIndex - b.UnitIndex })

	res := &Result{}
	byKey := make(map[string]int)
	// unit-local id -> canonical id
	local := make(map[core.ID]core.ID)

	for _, uk := range ordered {
		for _, ent := range uk.Entities {
			key := ent.Key()
			local[ent.ID] = CanonicalID(ec.EpisodeID, key)
			if i, ok := byKey[key]; ok {
				merge(&res.Entities[i], ent)
				res.Merged++
				continue
			}
			canon := ent
			canon.ID = local[ent.ID]
			canon.SupportingUnitIDs = slices.Clone(ent.SupportingUnitIDs)
			if canon.Mentions < 1 {
				canon.Mentions = 1
			}
			byKey[key] = len(res.Entities)
			res.Entities = append(res.Entities, canon)
		}
		res.Quotes = append(res.Quotes, uk.Quotes...)
		res.Insights = append(res.Insights, uk.Insights...)
	}

	for i := range res.Entities {
		ids := res.Entities[i].SupportingUnitIDs
		slices.Sort(ids)
		res.Entities[i].SupportingUnitIDs = slices.Compact(ids)
	}
	slices.SortFunc(res.Entities, func(a, b core.Entity) int { return strings.Compare(a.Key(), b.Key()) })

	byRel := make(map[string]int)
	for _, uk := range ordered {
		for _, rel := range uk.Relationships {
			src, okSrc := local[rel.SourceEntityID]
			tgt, okTgt := local[rel.TargetEntityID]
			if !okSrc || !okTgt {
				r.logger.Warn("relationship references unknown entity",
					"episode_id", ec.EpisodeID, "unit_id", uk.UnitID, "type", rel.Type)
				continue
			}
			rel.SourceEntityID, rel.TargetEntityID = src, tgt
			key := rel.Key()
			// An edge carries one supporting unit: the earliest unit that
			// asserted it. Later assertions only raise the confidence.
			if i, ok := byRel[key]; ok {
				if rel.Confidence > res.Relationships[i].Confidence {
					res.Relationships[i].Confidence = rel.Confidence
				}
				continue
			}
			byRel[key] = len(res.Relationships)
			res.Relationships = append(res.Relationships, rel)
		}
	}
	slices.SortFunc(res.Relationships, func(a, b core.Relationship) int { return strings.Compare(a.Key(), b.Key()) })

	res.Quotes = dedupe(res.Quotes, func(q core.Quote) core.ID { return q.ID })
	res.Insights = dedupe(res.Insights, func(in core.Insight) core.ID { return in.ID })

	r.logger.Debug("entities resolved",
		"episode_id", ec.EpisodeID, "entities", len(res.Entities), "merged", res.Merged,
		"relationships", len(res.Relationships))
	return res
}

func merge(dst *core.Entity, src core.Entity) {
	dst.Confidence = max(dst.Confidence, src.Confidence)
	dst.Mentions += max(src.Mentions, 1)
	dst.SupportingUnitIDs = append(dst.SupportingUnitIDs, src.SupportingUnitIDs...)
	if dst.Description == "" {
		dst.Description = src.Description
	}
}

func dedupe[T any](items []T, id func(T) core.ID) []T {
	seen := make(map[core.ID]bool, len(items))
	out := items[:0]
	for _, it := range items {
		if seen[id(it)] {
			continue
		}
		seen[id(it)] = true
		out = append(out, it)
	}
	return slices.Clip(out)
}
