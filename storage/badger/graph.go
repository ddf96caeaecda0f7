package badger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/unitgraph/core"
	"github.com/poiesic/unitgraph/storage"
)

// GraphStore implements storage.GraphStore on BadgerDB.
type GraphStore struct {
	backend   *Backend
	ownsStore bool
}

var _ storage.GraphStore = (*GraphStore)(nil)

// NewGraphStore opens (or creates) an on-disk graph store at path.
//
// Returns storage.GraphStore interface to enforce abstraction.
func NewGraphStore(path string) (storage.GraphStore, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return &GraphStore{backend: backend, ownsStore: true}, nil
}

// NewGraphStoreWithBackend creates a graph store over an existing backend.
// Closing the store leaves the backend open.
func NewGraphStoreWithBackend(backend *Backend) *GraphStore {
	return &GraphStore{backend: backend}
}

// Close closes the backend if the store opened it.
func (s *GraphStore) Close() error {
	if s.ownsStore {
		return s.backend.Close()
	}
	return nil
}

func checkEpisodeID(episodeID string) error {
	if strings.TrimSpace(episodeID) == "" {
		return storage.ErrInvalidEpisodeID
	}
	return nil
}

// put writes one record with a context check before the transaction.
func (s *GraphStore) put(ctx context.Context, episodeID string, key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkEpisodeID(episodeID); err != nil {
		return err
	}
	return s.backend.Update(func(tx *badger.Txn) error {
		return tx.Set(key, value)
	})
}

// CreateEpisode stores the episode root record.
func (s *GraphStore) CreateEpisode(ctx context.Context, episode *core.Episode) error {
	return s.put(ctx, episode.ID, makeEpisodeKey(episode.ID), storage.MarshalEpisode(episode))
}

// CreateUnit stores one unit keyed by its index.
func (s *GraphStore) CreateUnit(ctx context.Context, episodeID string, unit *core.MeaningfulUnit) error {
	return s.put(ctx, episodeID, makeUnitKey(episodeID, unit.Index), storage.MarshalUnit(unit))
}

// CreateEntity stores one entity keyed by its canonical ID.
func (s *GraphStore) CreateEntity(ctx context.Context, episodeID string, entity *core.Entity) error {
	return s.put(ctx, episodeID, makeEntityKey(episodeID, entity.ID), storage.MarshalEntity(entity))
}

// CreateRelationship stores one edge keyed by source, normalized type and target.
func (s *GraphStore) CreateRelationship(ctx context.Context, episodeID string, rel *core.Relationship) error {
	return s.put(ctx, episodeID, makeRelationshipKey(episodeID, rel), storage.MarshalRelationship(rel))
}

// CreateQuote stores one quote.
func (s *GraphStore) CreateQuote(ctx context.Context, episodeID string, quote *core.Quote) error {
	return s.put(ctx, episodeID, makeQuoteKey(episodeID, quote.ID), storage.MarshalQuote(quote))
}

// CreateInsight stores one insight.
func (s *GraphStore) CreateInsight(ctx context.Context, episodeID string, insight *core.Insight) error {
	return s.put(ctx, episodeID, makeInsightKey(episodeID, insight.ID), storage.MarshalInsight(insight))
}

// MarkEpisodeCommitted flips the root record to committed in one transaction.
func (s *GraphStore) MarkEpisodeCommitted(ctx context.Context, episodeID string, committedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := makeEpisodeKey(episodeID)
	return s.backend.Update(func(tx *badger.Txn) error {
		ep, err := readEpisode(tx, key)
		if err != nil {
			return err
		}
		ep.Status = core.EpisodeStatusCommitted
		ep.CommittedAt = committedAt.UTC()
		return tx.Set(key, storage.MarshalEpisode(ep))
	})
}

// DeleteEpisodeSubgraph removes the root record first, hiding the episode
// from readers, then the rest of its records.
func (s *GraphStore) DeleteEpisodeSubgraph(ctx context.Context, episodeID string) (int, error) {
	if err := checkEpisodeID(episodeID); err != nil {
		return 0, err
	}
	keys, err := s.backend.Keys(makeEpisodePrefix(episodeID))
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	rootKey := makeEpisodeKey(episodeID)
	rest := make([][]byte, 0, len(keys))
	hasRoot := false
	for _, k := range keys {
		if string(k) == string(rootKey) {
			hasRoot = true
			continue
		}
		rest = append(rest, k)
	}

	if hasRoot {
		if err := s.backend.Update(func(tx *badger.Txn) error {
			return tx.Delete(rootKey)
		}); err != nil {
			return 0, err
		}
	}
	if err := s.backend.DeleteKeys(rest); err != nil {
		return 0, err
	}

	s.backend.logger.Debug("deleted episode subgraph", "episode_id", episodeID, "records", len(keys))
	return len(keys), nil
}

// GetEpisode returns the committed episode record.
func (s *GraphStore) GetEpisode(ctx context.Context, episodeID string) (*core.Episode, error) {
	var ep *core.Episode
	err := s.backend.View(func(tx *badger.Txn) error {
		var err error
		ep, err = readEpisode(tx, makeEpisodeKey(episodeID))
		return err
	})
	if err != nil {
		return nil, err
	}
	if ep.Status != core.EpisodeStatusCommitted {
		return nil, storage.ErrNotFound
	}
	return ep, nil
}

// GetEpisodeStatus returns the raw status of the root record.
func (s *GraphStore) GetEpisodeStatus(ctx context.Context, episodeID string) (core.EpisodeStatus, error) {
	var ep *core.Episode
	err := s.backend.View(func(tx *badger.Txn) error {
		var err error
		ep, err = readEpisode(tx, makeEpisodeKey(episodeID))
		return err
	})
	if err != nil {
		return 0, err
	}
	return ep.Status, nil
}

// CountEpisodeNodes counts every record under the episode prefix.
func (s *GraphStore) CountEpisodeNodes(ctx context.Context, episodeID string) (int, error) {
	if err := checkEpisodeID(episodeID); err != nil {
		return 0, err
	}
	keys, err := s.backend.Keys(makeEpisodePrefix(episodeID))
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// ListUnits returns the units in index order; the key layout already sorts them.
func (s *GraphStore) ListUnits(ctx context.Context, episodeID string) ([]*core.MeaningfulUnit, error) {
	return listKind(s, ctx, episodeID, unitKind, storage.UnmarshalUnit)
}

// ListEntities returns entities ordered by normalized type then value.
func (s *GraphStore) ListEntities(ctx context.Context, episodeID string) ([]*core.Entity, error) {
	entities, err := listKind(s, ctx, episodeID, entityKind, storage.UnmarshalEntity)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(entities, func(a, b *core.Entity) int {
		return strings.Compare(a.Key(), b.Key())
	})
	return entities, nil
}

// ListRelationships returns edges ordered by source, type and target.
func (s *GraphStore) ListRelationships(ctx context.Context, episodeID string) ([]*core.Relationship, error) {
	rels, err := listKind(s, ctx, episodeID, relationshipKind, storage.UnmarshalRelationship)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(rels, func(a, b *core.Relationship) int {
		return strings.Compare(a.Key(), b.Key())
	})
	return rels, nil
}

// ListQuotes returns quotes ordered by unit then text.
func (s *GraphStore) ListQuotes(ctx context.Context, episodeID string) ([]*core.Quote, error) {
	quotes, err := listKind(s, ctx, episodeID, quoteKind, storage.UnmarshalQuote)
	if err != nil {
		return nil, err
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
func (s *GraphStore) ListInsights(ctx context.Context, episodeID string) ([]*core.Insight, error) {
	insights, err := listKind(s, ctx, episodeID, insightKind, storage.UnmarshalInsight)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(insights, func(a, b *core.Insight) int {
		if c := strings.Compare(a.UnitID, b.UnitID); c != 0 {
			return c
		}
		return strings.Compare(a.Text, b.Text)
	})
	return insights, nil
}

// listKind reads every record of one kind in a single transaction, after
// checking the episode is committed within that same transaction.
func listKind[T any](s *GraphStore, ctx context.Context, episodeID, kind string, decode func([]byte) (*T, error)) ([]*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*T
	err := s.backend.View(func(tx *badger.Txn) error {
		ep, err := readEpisode(tx, makeEpisodeKey(episodeID))
		if err != nil {
			return err
		}
		if ep.Status != core.EpisodeStatusCommitted {
			return storage.ErrNotFound
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeKindPrefix(episodeID, kind)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var rec *T
			err := iter.Item().Value(func(val []byte) error {
				var err error
				rec, err = decode(val)
				return err
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", iter.Item().Key(), err)
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// readEpisode loads the root record, mapping a missing key to ErrNotFound.
func readEpisode(tx *badger.Txn, key []byte) (*core.Episode, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var ep *core.Episode
	err = item.Value(func(val []byte) error {
		var err error
		ep, err = storage.UnmarshalEpisode(val)
		return err
	})
	return ep, err
}
