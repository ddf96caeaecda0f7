package storage

import (
	"context"
	"time"

	"github.com/poiesic/unitgraph/core"
)

// GraphWriter exposes the write primitives the pipeline commits an episode
// with. Every record is scoped to an episode id so the whole subgraph can be
// removed in one call. Create operations are upserts: writing the same record
// twice leaves one record.
// Implementations must be thread-safe and support concurrent access.
type GraphWriter interface {
	// CreateEpisode stores the episode root record. The pipeline always writes
	// it with status pending; readers ignore it until MarkEpisodeCommitted.
	CreateEpisode(ctx context.Context, episode *core.Episode) error

	// CreateUnit stores one meaningful unit of the episode.
	CreateUnit(ctx context.Context, episodeID string, unit *core.MeaningfulUnit) error

	// CreateEntity stores one resolved entity of the episode.
	CreateEntity(ctx context.Context, episodeID string, entity *core.Entity) error

	// CreateRelationship stores one edge. Re-asserting an edge with the same
	// source, normalized type and target does not create a second edge.
	CreateRelationship(ctx context.Context, episodeID string, rel *core.Relationship) error

	// CreateQuote stores one quote linked to its unit.
	CreateQuote(ctx context.Context, episodeID string, quote *core.Quote) error

	// CreateInsight stores one insight linked to its unit.
	CreateInsight(ctx context.Context, episodeID string, insight *core.Insight) error

	// MarkEpisodeCommitted flips the episode to committed, making the subgraph
	// visible to readers. Returns ErrNotFound if the episode was never created.
	MarkEpisodeCommitted(ctx context.Context, episodeID string, committedAt time.Time) error

	// DeleteEpisodeSubgraph removes every record written for the episode,
	// committed or not, and returns how many were removed. Deleting an
	// episode with no records is not an error.
	DeleteEpisodeSubgraph(ctx context.Context, episodeID string) (int, error)
}

// GraphReader exposes committed episodes. Every method except
// CountEpisodeNodes and GetEpisodeStatus returns ErrNotFound for an episode
// that is absent or not yet committed.
type GraphReader interface {
	// GetEpisode returns the committed episode record.
	GetEpisode(ctx context.Context, episodeID string) (*core.Episode, error)

	// GetEpisodeStatus returns the raw status of the episode record, pending
	// included. Returns ErrNotFound if no record exists.
	GetEpisodeStatus(ctx context.Context, episodeID string) (core.EpisodeStatus, error)

	// ListUnits returns the units ordered by index.
	ListUnits(ctx context.Context, episodeID string) ([]*core.MeaningfulUnit, error)

	// ListEntities returns the entities ordered by normalized type then value.
	ListEntities(ctx context.Context, episodeID string) ([]*core.Entity, error)

	// ListRelationships returns the edges ordered by source, type, target.
	ListRelationships(ctx context.Context, episodeID string) ([]*core.Relationship, error)

	// ListQuotes returns the quotes ordered by unit id then text.
	ListQuotes(ctx context.Context, episodeID string) ([]*core.Quote, error)

	// ListInsights returns the insights ordered by unit id then text.
	ListInsights(ctx context.Context, episodeID string) ([]*core.Insight, error)

	// CountEpisodeNodes counts every stored record of the episode regardless
	// of commit status: the episode root, units, entities, relationships,
	// quotes and insights.
	CountEpisodeNodes(ctx context.Context, episodeID string) (int, error)
}

// GraphStore is a complete graph backend.
type GraphStore interface {
	GraphWriter
	GraphReader

	// Close closes the storage backend and releases resources.
	Close() error
}
