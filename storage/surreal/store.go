package surreal

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/unitgraph/core"
	"github.com/poiesic/unitgraph/storage"
	"github.com/surrealdb/surrealdb.go"
)

// Store implements storage.GraphStore on SurrealDB.
type Store struct {
	client *client
	logger *slog.Logger
}

var _ storage.GraphStore = (*Store)(nil)

// NewStore connects, authenticates and defines the schema.
func NewStore(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c, err := newClient(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := c.initSchema(ctx); err != nil {
		_ = c.close(ctx)
		return nil, err
	}
	return &Store{client: c, logger: logger.With("component", "surreal")}, nil
}

// Close closes the connection.
func (s *Store) Close() error {
	return s.client.close(context.Background())
}

func checkEpisodeID(episodeID string) error {
	if strings.TrimSpace(episodeID) == "" {
		return storage.ErrInvalidEpisodeID
	}
	return nil
}

func (s *Store) upsert(ctx context.Context, table, id, episodeID string, row any) error {
	if err := checkEpisodeID(episodeID); err != nil {
		return err
	}
	return s.client.exec(ctx, `UPSERT type::record($table, $id) CONTENT $row RETURN NONE`,
		map[string]any{"table": table, "id": id, "row": row})
}

// CreateEpisode upserts the episode record.
func (s *Store) CreateEpisode(ctx context.Context, ep *core.Episode) error {
	return s.upsert(ctx, "ug_episode", ep.ID, ep.ID, newEpisodeRow(ep))
}

// CreateUnit upserts a unit record.
func (s *Store) CreateUnit(ctx context.Context, episodeID string, u *core.MeaningfulUnit) error {
	return s.upsert(ctx, "ug_unit", u.ID, episodeID, newUnitRow(episodeID, u))
}

// CreateEntity upserts an entity record.
func (s *Store) CreateEntity(ctx context.Context, episodeID string, e *core.Entity) error {
	return s.upsert(ctx, "ug_entity", e.ID.String(), episodeID, newEntityRow(episodeID, e))
}

// CreateRelationship replaces any edge with the same key, then RELATEs the
// two entities.
func (s *Store) CreateRelationship(ctx context.Context, episodeID string, rel *core.Relationship) error {
	if err := checkEpisodeID(episodeID); err != nil {
		return err
	}
	row := newRelationRow(episodeID, rel)
	return s.client.exec(ctx, `
		LET $from = type::record("ug_entity", $source);
		LET $to = type::record("ug_entity", $target);
		DELETE ug_relates WHERE key = $key;
		RELATE $from->ug_relates->$to CONTENT $row RETURN NONE;
	`, map[string]any{"source": row.SourceID, "target": row.TargetID, "key": row.Key, "row": row})
}

// CreateQuote upserts a quote record.
func (s *Store) CreateQuote(ctx context.Context, episodeID string, q *core.Quote) error {
	return s.upsert(ctx, "ug_quote", q.ID.String(), episodeID, itemRow{
		EpisodeID: episodeID, ItemID: q.ID.String(), Text: q.Text, UnitID: q.UnitID,
		Speaker: q.Speaker, Category: q.Category, Confidence: q.Confidence,
	})
}

// CreateInsight upserts an insight record.
func (s *Store) CreateInsight(ctx context.Context, episodeID string, in *core.Insight) error {
	return s.upsert(ctx, "ug_insight", in.ID.String(), episodeID, itemRow{
		EpisodeID: episodeID, ItemID: in.ID.String(), Text: in.Text, UnitID: in.UnitID,
		Speaker: in.Speaker, Category: in.Category, Confidence: in.Confidence,
	})
}

// MarkEpisodeCommitted flips the episode status.
func (s *Store) MarkEpisodeCommitted(ctx context.Context, episodeID string, committedAt time.Time) error {
	results, err := surrealdb.Query[[]episodeRow](ctx, s.client.db, `
		UPDATE type::record("ug_episode", $id) SET status = $status, committed_at = $at RETURN AFTER
	`, map[string]any{"id": episodeID, "status": int(core.EpisodeStatusCommitted), "at": micros(committedAt)})
	if err != nil {
		return wrapQueryError(err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteEpisodeSubgraph deletes the episode record first, then every record
// tagged with the episode id.
func (s *Store) DeleteEpisodeSubgraph(ctx context.Context, episodeID string) (int, error) {
	if err := checkEpisodeID(episodeID); err != nil {
		return 0, err
	}
	before, err := s.CountEpisodeNodes(ctx, episodeID)
	if err != nil {
		return 0, err
	}
	if before == 0 {
		return 0, nil
	}

	vars := map[string]any{"id": episodeID}
	if err := s.client.exec(ctx, `DELETE type::record("ug_episode", $id) RETURN NONE`, vars); err != nil {
		return 0, err
	}
	for _, table := range subgraphTables {
		sql := fmt.Sprintf("DELETE %s WHERE episode_id = $id RETURN NONE", table)
		if err := s.client.exec(ctx, sql, vars); err != nil {
			return 0, fmt.Errorf("delete %s: %w", table, err)
		}
	}
	s.logger.Debug("deleted episode subgraph", "episode_id", episodeID, "records", before)
	return before, nil
}

// CountEpisodeNodes counts records in every subgraph table.
func (s *Store) CountEpisodeNodes(ctx context.Context, episodeID string) (int, error) {
	if err := checkEpisodeID(episodeID); err != nil {
		return 0, err
	}
	var sql strings.Builder
	for _, table := range subgraphTables {
		fmt.Fprintf(&sql, "SELECT count() AS c FROM %s WHERE episode_id = $id GROUP ALL;\n", table)
	}
	results, err := surrealdb.Query[[]countRow](ctx, s.client.db, sql.String(), map[string]any{"id": episodeID})
	if err != nil {
		return 0, wrapQueryError(err)
	}
	total := 0
	if results != nil {
		for _, r := range *results {
			for _, row := range r.Result {
				total += row.C
			}
		}
	}
	return total, nil
}

func (s *Store) episodeRow(ctx context.Context, episodeID string) (*episodeRow, error) {
	results, err := surrealdb.Query[[]episodeRow](ctx, s.client.db,
		`SELECT * FROM type::record("ug_episode", $id)`, map[string]any{"id": episodeID})
	if err != nil {
		return nil, wrapQueryError(err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, storage.ErrNotFound
	}
	return &(*results)[0].Result[0], nil
}

// GetEpisode returns the committed episode.
func (s *Store) GetEpisode(ctx context.Context, episodeID string) (*core.Episode, error) {
	row, err := s.episodeRow(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	if core.EpisodeStatus(row.Status) != core.EpisodeStatusCommitted {
		return nil, storage.ErrNotFound
	}
	return row.episode(), nil
}

// GetEpisodeStatus returns the raw episode status.
func (s *Store) GetEpisodeStatus(ctx context.Context, episodeID string) (core.EpisodeStatus, error) {
	row, err := s.episodeRow(ctx, episodeID)
	if err != nil {
		return 0, err
	}
	return core.EpisodeStatus(row.Status), nil
}

// selectRows reads a table's rows for a committed episode.
func selectRows[T any](ctx context.Context, s *Store, table, episodeID string) ([]T, error) {
	if _, err := s.GetEpisode(ctx, episodeID); err != nil {
		return nil, err
	}
	sql := fmt.Sprintf("SELECT * FROM %s WHERE episode_id = $id", table)
	results, err := surrealdb.Query[[]T](ctx, s.client.db, sql, map[string]any{"id": episodeID})
	if err != nil {
		return nil, wrapQueryError(err)
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	return (*results)[0].Result, nil
}

// ListUnits returns units ordered by index.
func (s *Store) ListUnits(ctx context.Context, episodeID string) ([]*core.MeaningfulUnit, error) {
	rows, err := selectRows[unitRow](ctx, s, "ug_unit", episodeID)
	if err != nil {
		return nil, err
	}
	units := make([]*core.MeaningfulUnit, 0, len(rows))
	for _, r := range rows {
		units = append(units, r.unit())
	}
	slices.SortFunc(units, func(a, b *core.MeaningfulUnit) int { return a.Index - b.Index })
	return units, nil
}

// ListEntities returns entities ordered by normalized type then value.
func (s *Store) ListEntities(ctx context.Context, episodeID string) ([]*core.Entity, error) {
	rows, err := selectRows[entityRow](ctx, s, "ug_entity", episodeID)
	if err != nil {
		return nil, err
	}
	entities := make([]*core.Entity, 0, len(rows))
	for _, r := range rows {
		e, err := r.entity()
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	slices.SortFunc(entities, func(a, b *core.Entity) int { return strings.Compare(a.Key(), b.Key()) })
	return entities, nil
}

// ListRelationships returns edges ordered by key.
func (s *Store) ListRelationships(ctx context.Context, episodeID string) ([]*core.Relationship, error) {
	rows, err := selectRows[relationRow](ctx, s, "ug_relates", episodeID)
	if err != nil {
		return nil, err
	}
	rels := make([]*core.Relationship, 0, len(rows))
	for _, r := range rows {
		rel, err := r.relationship()
		if err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}
	slices.SortFunc(rels, func(a, b *core.Relationship) int { return strings.Compare(a.Key(), b.Key()) })
	return rels, nil
}

func itemsOrdered(rows []itemRow) []itemRow {
	slices.SortFunc(rows, func(a, b itemRow) int {
		if c := strings.Compare(a.UnitID, b.UnitID); c != 0 {
			return c
		}
		return strings.Compare(a.Text, b.Text)
	})
	return rows
}

// ListQuotes returns quotes ordered by unit then text.
func (s *Store) ListQuotes(ctx context.Context, episodeID string) ([]*core.Quote, error) {
	rows, err := selectRows[itemRow](ctx, s, "ug_quote", episodeID)
	if err != nil {
		return nil, err
	}
	quotes := make([]*core.Quote, 0, len(rows))
	for _, r := range itemsOrdered(rows) {
		id, err := core.ParseID(r.ItemID)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, &core.Quote{
			ID: id, Text: r.Text, UnitID: r.UnitID, Speaker: r.Speaker,
			Category: r.Category, Confidence: r.Confidence,
		})
	}
	return quotes, nil
}

// ListInsights returns insights ordered by unit then text.
func (s *Store) ListInsights(ctx context.Context, episodeID string) ([]*core.Insight, error) {
	rows, err := selectRows[itemRow](ctx, s, "ug_insight", episodeID)
	if err != nil {
		return nil, err
	}
	insights := make([]*core.Insight, 0, len(rows))
	for _, r := range itemsOrdered(rows) {
		id, err := core.ParseID(r.ItemID)
		if err != nil {
			return nil, err
		}
		insights = append(insights, &core.Insight{
			ID: id, Text: r.Text, UnitID: r.UnitID, Speaker: r.Speaker,
			Category: r.Category, Confidence: r.Confidence,
		})
	}
	return insights, nil
}
