package neo4j

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/poiesic/unitgraph/core"
	"github.com/poiesic/unitgraph/storage"
)

// Config holds Neo4j connection settings.
type Config struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"` // Empty selects the server default
}

// Store implements storage.GraphStore on Neo4j.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

var _ storage.GraphStore = (*Store)(nil)

// NewStore connects to Neo4j, verifies connectivity and creates indexes.
func NewStore(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.URI == "" {
		return nil, errors.New("neo4j uri is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}

	s := &Store{
		driver:   driver,
		database: cfg.Database,
		logger:   logger.With("component", "neo4j"),
	}
	if err := s.initSchema(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}
	return s, nil
}

var schemaStatements = []string{
	"CREATE INDEX episode_id_index IF NOT EXISTS FOR (e:Episode) ON (e.episode_id)",
	"CREATE INDEX unit_episode_index IF NOT EXISTS FOR (u:Unit) ON (u.episode_id)",
	"CREATE INDEX entity_episode_index IF NOT EXISTS FOR (e:Entity) ON (e.episode_id, e.id)",
	"CREATE INDEX quote_episode_index IF NOT EXISTS FOR (q:Quote) ON (q.episode_id)",
	"CREATE INDEX insight_episode_index IF NOT EXISTS FOR (i:Insight) ON (i.episode_id)",
}

func (s *Store) initSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if err := s.write(ctx, stmt, nil); err != nil {
			return fmt.Errorf("init neo4j schema: %w", err)
		}
	}
	return nil
}

// Close closes the driver.
func (s *Store) Close() error {
	return s.driver.Close(context.Background())
}

func (s *Store) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database, AccessMode: mode})
}

// write runs one statement in a managed write transaction.
func (s *Store) write(ctx context.Context, query string, params map[string]any) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	return err
}

// read runs one statement in a managed read transaction and collects its records.
func (s *Store) read(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return records.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*neo4j.Record), nil
}

func checkEpisodeID(episodeID string) error {
	if strings.TrimSpace(episodeID) == "" {
		return storage.ErrInvalidEpisodeID
	}
	return nil
}

// CreateEpisode MERGEs the Episode node.
func (s *Store) CreateEpisode(ctx context.Context, ep *core.Episode) error {
	if err := checkEpisodeID(ep.ID); err != nil {
		return err
	}
	return s.write(ctx, `
		MERGE (e:Episode {episode_id: $episode_id})
		SET e += $props`,
		map[string]any{"episode_id": ep.ID, "props": episodeProps(ep)})
}

// CreateUnit MERGEs a Unit node and links it to its episode.
func (s *Store) CreateUnit(ctx context.Context, episodeID string, u *core.MeaningfulUnit) error {
	if err := checkEpisodeID(episodeID); err != nil {
		return err
	}
	return s.write(ctx, `
		MATCH (e:Episode {episode_id: $episode_id})
		MERGE (u:Unit {episode_id: $episode_id, id: $id})
		SET u += $props
		MERGE (u)-[:PART_OF]->(e)`,
		map[string]any{"episode_id": episodeID, "id": u.ID, "props": unitProps(u)})
}

// CreateEntity MERGEs an Entity node and links it to its supporting units.
func (s *Store) CreateEntity(ctx context.Context, episodeID string, ent *core.Entity) error {
	if err := checkEpisodeID(episodeID); err != nil {
		return err
	}
	return s.write(ctx, `
		MERGE (n:Entity {episode_id: $episode_id, id: $id})
		SET n += $props
		WITH n
		UNWIND $unit_ids AS unit_id
		MATCH (u:Unit {episode_id: $episode_id, id: unit_id})
		MERGE (n)-[:MENTIONED_IN]->(u)`,
		map[string]any{
			"episode_id": episodeID,
			"id":         ent.ID.String(),
			"props":      entityProps(ent),
			"unit_ids":   nonNilStrings(ent.SupportingUnitIDs),
		})
}

// CreateRelationship MERGEs a RELATES edge on its key.
func (s *Store) CreateRelationship(ctx context.Context, episodeID string, rel *core.Relationship) error {
	if err := checkEpisodeID(episodeID); err != nil {
		return err
	}
	return s.write(ctx, `
		MATCH (a:Entity {episode_id: $episode_id, id: $source})
		MATCH (b:Entity {episode_id: $episode_id, id: $target})
		MERGE (a)-[r:RELATES {episode_id: $episode_id, key: $key}]->(b)
		SET r += $props`,
		map[string]any{
			"episode_id": episodeID,
			"source":     rel.SourceEntityID.String(),
			"target":     rel.TargetEntityID.String(),
			"key":        core.IDFromContent(rel.Key()).String(),
			"props":      relationshipProps(rel),
		})
}

// CreateQuote MERGEs a Quote node and links it to its unit.
func (s *Store) CreateQuote(ctx context.Context, episodeID string, q *core.Quote) error {
	if err := checkEpisodeID(episodeID); err != nil {
		return err
	}
	return s.write(ctx, `
		MERGE (q:Quote {episode_id: $episode_id, id: $id})
		SET q += $props
		WITH q
		MATCH (u:Unit {episode_id: $episode_id, id: $unit_id})
		MERGE (q)-[:FROM_UNIT]->(u)`,
		map[string]any{
			"episode_id": episodeID,
			"id":         q.ID.String(),
			"unit_id":    q.UnitID,
			"props": map[string]any{
				"text": q.Text, "unit_id": q.UnitID, "speaker": q.Speaker,
				"category": q.Category, "confidence": q.Confidence,
			},
		})
}

// CreateInsight MERGEs an Insight node and links it to its unit.
func (s *Store) CreateInsight(ctx context.Context, episodeID string, in *core.Insight) error {
	if err := checkEpisodeID(episodeID); err != nil {
		return err
	}
	return s.write(ctx, `
		MERGE (i:Insight {episode_id: $episode_id, id: $id})
		SET i += $props
		WITH i
		MATCH (u:Unit {episode_id: $episode_id, id: $unit_id})
		MERGE (i)-[:FROM_UNIT]->(u)`,
		map[string]any{
			"episode_id": episodeID,
			"id":         in.ID.String(),
			"unit_id":    in.UnitID,
			"props": map[string]any{
				"text": in.Text, "unit_id": in.UnitID, "speaker": in.Speaker,
				"category": in.Category, "confidence": in.Confidence,
			},
		})
}

// MarkEpisodeCommitted flips the Episode node's status.
func (s *Store) MarkEpisodeCommitted(ctx context.Context, episodeID string, committedAt time.Time) error {
	records, err := s.read(ctx, `MATCH (e:Episode {episode_id: $episode_id}) RETURN count(e) AS c`,
		map[string]any{"episode_id": episodeID})
	if err != nil {
		return err
	}
	if recordInt(records, "c") == 0 {
		return storage.ErrNotFound
	}
	return s.write(ctx, `
		MATCH (e:Episode {episode_id: $episode_id})
		SET e.status = $status, e.committed_at = $committed_at`,
		map[string]any{
			"episode_id":   episodeID,
			"status":       int64(core.EpisodeStatusCommitted),
			"committed_at": micros(committedAt),
		})
}

// DeleteEpisodeSubgraph removes the Episode node, then every node tagged with
// the episode id. The returned count covers nodes and RELATES edges.
func (s *Store) DeleteEpisodeSubgraph(ctx context.Context, episodeID string) (int, error) {
	if err := checkEpisodeID(episodeID); err != nil {
		return 0, err
	}
	params := map[string]any{"episode_id": episodeID}

	before, err := s.CountEpisodeNodes(ctx, episodeID)
	if err != nil {
		return 0, err
	}
	if before == 0 {
		return 0, nil
	}
	if err := s.write(ctx, `MATCH (e:Episode {episode_id: $episode_id}) DETACH DELETE e`, params); err != nil {
		return 0, err
	}
	if err := s.write(ctx, `MATCH (n {episode_id: $episode_id}) DETACH DELETE n`, params); err != nil {
		return 0, err
	}
	s.logger.Debug("deleted episode subgraph", "episode_id", episodeID, "records", before)
	return before, nil
}

// CountEpisodeNodes counts nodes and RELATES edges tagged with the episode id.
func (s *Store) CountEpisodeNodes(ctx context.Context, episodeID string) (int, error) {
	if err := checkEpisodeID(episodeID); err != nil {
		return 0, err
	}
	params := map[string]any{"episode_id": episodeID}
	nodes, err := s.read(ctx, `MATCH (n {episode_id: $episode_id}) RETURN count(n) AS c`, params)
	if err != nil {
		return 0, err
	}
	edges, err := s.read(ctx, `MATCH ()-[r:RELATES {episode_id: $episode_id}]->() RETURN count(r) AS c`, params)
	if err != nil {
		return 0, err
	}
	return recordInt(nodes, "c") + recordInt(edges, "c"), nil
}

func (s *Store) episodeNode(ctx context.Context, episodeID string) (*core.Episode, error) {
	records, err := s.read(ctx, `MATCH (e:Episode {episode_id: $episode_id}) RETURN e`,
		map[string]any{"episode_id": episodeID})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, storage.ErrNotFound
	}
	props, err := nodeProps(records[0], "e")
	if err != nil {
		return nil, err
	}
	return episodeFromProps(episodeID, props), nil
}

// GetEpisode returns the committed episode.
func (s *Store) GetEpisode(ctx context.Context, episodeID string) (*core.Episode, error) {
	ep, err := s.episodeNode(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	if ep.Status != core.EpisodeStatusCommitted {
		return nil, storage.ErrNotFound
	}
	return ep, nil
}

// GetEpisodeStatus returns the raw episode status.
func (s *Store) GetEpisodeStatus(ctx context.Context, episodeID string) (core.EpisodeStatus, error) {
	ep, err := s.episodeNode(ctx, episodeID)
	if err != nil {
		return 0, err
	}
	return ep.Status, nil
}

// listNodes returns the properties of every node with label, after checking
// the episode is committed.
func (s *Store) listNodes(ctx context.Context, episodeID, label string) ([]map[string]any, error) {
	if _, err := s.GetEpisode(ctx, episodeID); err != nil {
		return nil, err
	}
	records, err := s.read(ctx, fmt.Sprintf(`MATCH (n:%s {episode_id: $episode_id}) RETURN n`, label),
		map[string]any{"episode_id": episodeID})
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		props, err := nodeProps(rec, "n")
		if err != nil {
			return nil, err
		}
		out = append(out, props)
	}
	return out, nil
}

// ListUnits returns units ordered by index.
func (s *Store) ListUnits(ctx context.Context, episodeID string) ([]*core.MeaningfulUnit, error) {
	nodes, err := s.listNodes(ctx, episodeID, "Unit")
	if err != nil {
		return nil, err
	}
	units := make([]*core.MeaningfulUnit, 0, len(nodes))
	for _, p := range nodes {
		units = append(units, unitFromProps(episodeID, p))
	}
	slices.SortFunc(units, func(a, b *core.MeaningfulUnit) int { return a.Index - b.Index })
	return units, nil
}

// ListEntities returns entities ordered by normalized type then value.
func (s *Store) ListEntities(ctx context.Context, episodeID string) ([]*core.Entity, error) {
	nodes, err := s.listNodes(ctx, episodeID, "Entity")
	if err != nil {
		return nil, err
	}
	entities := make([]*core.Entity, 0, len(nodes))
	for _, p := range nodes {
		e, err := entityFromProps(p)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	slices.SortFunc(entities, func(a, b *core.Entity) int { return strings.Compare(a.Key(), b.Key()) })
	return entities, nil
}

// ListRelationships returns RELATES edges ordered by key.
func (s *Store) ListRelationships(ctx context.Context, episodeID string) ([]*core.Relationship, error) {
	if _, err := s.GetEpisode(ctx, episodeID); err != nil {
		return nil, err
	}
	records, err := s.read(ctx, `
		MATCH (a:Entity)-[r:RELATES {episode_id: $episode_id}]->(b:Entity)
		RETURN a.id AS source, b.id AS target, r AS r`,
		map[string]any{"episode_id": episodeID})
	if err != nil {
		return nil, err
	}
	rels := make([]*core.Relationship, 0, len(records))
	for _, rec := range records {
		rel, err := relationshipFromRecord(rec)
		if err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}
	slices.SortFunc(rels, func(a, b *core.Relationship) int { return strings.Compare(a.Key(), b.Key()) })
	return rels, nil
}

// ListQuotes returns quotes ordered by unit then text.
func (s *Store) ListQuotes(ctx context.Context, episodeID string) ([]*core.Quote, error) {
	nodes, err := s.listNodes(ctx, episodeID, "Quote")
	if err != nil {
		return nil, err
	}
	quotes := make([]*core.Quote, 0, len(nodes))
	for _, p := range nodes {
		id, err := core.ParseID(str(p, "id"))
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, &core.Quote{
			ID: id, Text: str(p, "text"), UnitID: str(p, "unit_id"), Speaker: str(p, "speaker"),
			Category: str(p, "category"), Confidence: float(p, "confidence"),
		})
	}
	slices.SortFunc(quotes, func(a, b *core.Quote) int {
		if c := strings.Compare(a.UnitID, b.UnitID); c != 0 {
			return c
		}
		return strings.Compare(a.Text, b.Text)
	})
	return quotes, nil
}

// ListInsights returns insights ordered by unit then text.
func (s *Store) ListInsights(ctx context.Context, episodeID string) ([]*core.Insight, error) {
	nodes, err := s.listNodes(ctx, episodeID, "Insight")
	if err != nil {
		return nil, err
	}
	insights := make([]*core.Insight, 0, len(nodes))
	for _, p := range nodes {
		id, err := core.ParseID(str(p, "id"))
		if err != nil {
			return nil, err
		}
		insights = append(insights, &core.Insight{
			ID: id, Text: str(p, "text"), UnitID: str(p, "unit_id"), Speaker: str(p, "speaker"),
			Category: str(p, "category"), Confidence: float(p, "confidence"),
		})
	}
	slices.SortFunc(insights, func(a, b *core.Insight) int {
		if c := strings.Compare(a.UnitID, b.UnitID); c != 0 {
			return c
		}
		return strings.Compare(a.Text, b.Text)
	})
	return insights, nil
}
