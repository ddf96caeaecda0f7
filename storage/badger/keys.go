package badger

import (
	"fmt"

	"github.com/poiesic/unitgraph/core"
)

// Every record of an episode lives under one prefix so the subgraph can be
// listed, counted and deleted by prefix:
//
//	g:<len(episodeID)>:<episodeID>:<kind>[:<id>]
//
// The length keeps "ep" and "ep:1" from sharing a prefix.
const (
	graphPrefix        = "g"
	episodeKind        = "ep"
	unitKind           = "u"
	entityKind         = "e"
	relationshipKind   = "r"
	quoteKind          = "q"
	insightKind        = "i"
	unitIndexKeyFormat = "%08d"
)

// makeEpisodePrefix returns the prefix shared by all records of an episode.
func makeEpisodePrefix(episodeID string) []byte {
	return []byte(fmt.Sprintf("%s:%d:%s:", graphPrefix, len(episodeID), episodeID))
}

// makeKindPrefix returns the prefix of one record kind within an episode.
func makeKindPrefix(episodeID, kind string) []byte {
	return append(makeEpisodePrefix(episodeID), kind+":"...)
}

// makeEpisodeKey returns the key of the episode root record.
func makeEpisodeKey(episodeID string) []byte {
	return append(makeEpisodePrefix(episodeID), episodeKind...)
}

// makeUnitKey orders units by index within the episode.
func makeUnitKey(episodeID string, index int) []byte {
	return append(makeKindPrefix(episodeID, unitKind), fmt.Sprintf(unitIndexKeyFormat, index)...)
}

func makeEntityKey(episodeID string, id core.ID) []byte {
	return append(makeKindPrefix(episodeID, entityKind), id.String()...)
}

// makeRelationshipKey derives the key from source, normalized type and
// target, so re-asserting an edge overwrites it.
func makeRelationshipKey(episodeID string, rel *core.Relationship) []byte {
	return append(makeKindPrefix(episodeID, relationshipKind), core.IDFromContent(rel.Key()).String()...)
}

func makeQuoteKey(episodeID string, id core.ID) []byte {
	return append(makeKindPrefix(episodeID, quoteKind), id.String()...)
}

func makeInsightKey(episodeID string, id core.ID) []byte {
	return append(makeKindPrefix(episodeID, insightKind), id.String()...)
}
