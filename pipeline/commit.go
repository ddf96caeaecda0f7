package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/unitgraph/core"
	"github.com/poiesic/unitgraph/resolution"
	"github.com/poiesic/unitgraph/retry"
	"github.com/poiesic/unitgraph/storage"
)

// commit writes the episode subgraph in a fixed order and finishes with the
// commit marker. The episode record is written first with status pending so
// readers ignore the partial subgraph.
func (p *Pipeline) commit(ctx context.Context, r *run, segmentCount int, cs *core.ConversationStructure,
	units []*core.MeaningfulUnit, merged *resolution.Result) error {
	eid := r.ec.EpisodeID

	var previous *snapshot
	if r.existing {
		var err error
		if previous, err = p.takeSnapshot(ctx, eid); err != nil {
			return err
		}
	}
	r.committing = true

	if previous != nil {
		n, err := p.deleteSubgraph(ctx, eid)
		r.previous = previous
		if err != nil {
			return err
		}
		r.logger.Info("replaced previous episode subgraph", "records", n)
	}

	episode := &core.Episode{
		ID:           eid,
		Title:        r.ec.Metadata.Title,
		Description:  r.ec.Metadata.Description,
		Source:       r.ec.Metadata.Source,
		Status:       core.EpisodeStatusPending,
		SegmentCount: segmentCount,
		UnitCount:    len(units),
		Coverage:     r.result.Stats.Coverage,
		Themes:       cs.ThemeNames(),
		CreatedAt:    r.ec.StartedAt,
	}
	if err := p.write(ctx, r, "create_episode", eid, func(ctx context.Context) error {
		return p.store.CreateEpisode(ctx, episode)
	}); err != nil {
		return err
	}

	for _, u := range units {
		if err := p.write(ctx, r, "create_unit", u.ID, func(ctx context.Context) error {
			return p.store.CreateUnit(ctx, eid, u)
		}); err != nil {
			return err
		}
	}
	for i := range merged.Entities {
		ent := &merged.Entities[i]
		if err := p.write(ctx, r, "create_entity", ent.ID.String(), func(ctx context.Context) error {
			return p.store.CreateEntity(ctx, eid, ent)
		}); err != nil {
			return err
		}
	}
	for i := range merged.Relationships {
		rel := &merged.Relationships[i]
		if err := p.write(ctx, r, "create_relationship", rel.Type, func(ctx context.Context) error {
			return p.store.CreateRelationship(ctx, eid, rel)
		}); err != nil {
			return err
		}
	}
	for i := range merged.Quotes {
		q := &merged.Quotes[i]
		if err := p.write(ctx, r, "create_quote", q.ID.String(), func(ctx context.Context) error {
			return p.store.CreateQuote(ctx, eid, q)
		}); err != nil {
			return err
		}
	}
	for i := range merged.Insights {
		in := &merged.Insights[i]
		if err := p.write(ctx, r, "create_insight", in.ID.String(), func(ctx context.Context) error {
			return p.store.CreateInsight(ctx, eid, in)
		}); err != nil {
			return err
		}
	}

	committedAt := time.Now().UTC()
	return p.write(ctx, r, "mark_episode_committed", eid, func(ctx context.Context) error {
		return p.store.MarkEpisodeCommitted(ctx, eid, committedAt)
	})
}

// write runs one store write under its own timeout, retrying transient
// failures.
func (p *Pipeline) write(ctx context.Context, r *run, op, key string, fn func(ctx context.Context) error) error {
	if err := p.put(ctx, op, key, fn); err != nil {
		return err
	}
	r.result.Stats.RecordsWritten++
	return nil
}

func (p *Pipeline) put(ctx context.Context, op, key string, fn func(ctx context.Context) error) error {
	err := retry.Do(ctx, p.cfg.maxAttempts, p.cfg.retryDelay, storage.IsTransient, func(ctx context.Context) error {
		writeCtx, cancel := context.WithTimeout(ctx, p.cfg.writeTimeout)
		defer cancel()
		return fn(writeCtx)
	})
	if err != nil {
		return &core.StorageError{Op: op, Key: key, Err: err}
	}
	return nil
}

// snapshot is an in-memory copy of a committed episode subgraph.
type snapshot struct {
	episode       *core.Episode
	units         []*core.MeaningfulUnit
	entities      []*core.Entity
	relationships []*core.Relationship
	quotes        []*core.Quote
	insights      []*core.Insight
}

// takeSnapshot reads the committed graph an overwrite is about to delete.
func (p *Pipeline) takeSnapshot(ctx context.Context, eid string) (*snapshot, error) {
	s := &snapshot{}
	err := retry.Do(ctx, p.cfg.maxAttempts, p.cfg.retryDelay, storage.IsTransient, func(ctx context.Context) error {
		readCtx, cancel := context.WithTimeout(ctx, p.cfg.writeTimeout)
		defer cancel()
		var err error
		if s.episode, err = p.store.GetEpisode(readCtx, eid); err != nil {
			return err
		}
		if s.units, err = p.store.ListUnits(readCtx, eid); err != nil {
			return err
		}
		if s.entities, err = p.store.ListEntities(readCtx, eid); err != nil {
			return err
		}
		if s.relationships, err = p.store.ListRelationships(readCtx, eid); err != nil {
			return err
		}
		if s.quotes, err = p.store.ListQuotes(readCtx, eid); err != nil {
			return err
		}
		s.insights, err = p.store.ListInsights(readCtx, eid)
		return err
	})
	if err != nil {
		return nil, &core.StorageError{Op: "snapshot_episode", Key: eid, Err: err}
	}
	return s, nil
}

// restore writes the replaced graph back after the new run's partial commit
// was rolled back, and returns how many records it wrote. Like rollback it
// ignores cancellation of ctx.
func (p *Pipeline) restore(ctx context.Context, r *run) (int, error) {
	ctx = context.WithoutCancel(ctx)
	eid := r.ec.EpisodeID
	prev := r.previous
	n := 0

	put := func(op, key string, fn func(ctx context.Context) error) error {
		if err := p.put(ctx, op, key, fn); err != nil {
			return err
		}
		n++
		return nil
	}
	err := func() error {
		episode := *prev.episode
		episode.Status = core.EpisodeStatusPending
		if err := put("create_episode", eid, func(ctx context.Context) error {
			return p.store.CreateEpisode(ctx, &episode)
		}); err != nil {
			return err
		}
		for _, u := range prev.units {
			if err := put("create_unit", u.ID, func(ctx context.Context) error {
				return p.store.CreateUnit(ctx, eid, u)
			}); err != nil {
				return err
			}
		}
		for _, ent := range prev.entities {
			if err := put("create_entity", ent.ID.String(), func(ctx context.Context) error {
				return p.store.CreateEntity(ctx, eid, ent)
			}); err != nil {
				return err
			}
		}
		for _, rel := range prev.relationships {
			if err := put("create_relationship", rel.Type, func(ctx context.Context) error {
				return p.store.CreateRelationship(ctx, eid, rel)
			}); err != nil {
				return err
			}
		}
		for _, q := range prev.quotes {
			if err := put("create_quote", q.ID.String(), func(ctx context.Context) error {
				return p.store.CreateQuote(ctx, eid, q)
			}); err != nil {
				return err
			}
		}
		for _, in := range prev.insights {
			if err := put("create_insight", in.ID.String(), func(ctx context.Context) error {
				return p.store.CreateInsight(ctx, eid, in)
			}); err != nil {
				return err
			}
		}
		return p.put(ctx, "mark_episode_committed", eid, func(ctx context.Context) error {
			return p.store.MarkEpisodeCommitted(ctx, eid, prev.episode.CommittedAt)
		})
	}()
	if err != nil {
		r.logger.Error("restoring previous episode subgraph failed", "phase", string(PhaseRollback), "err", err)
		return n, fmt.Errorf("restore previous graph: %w", err)
	}
	r.logger.Info("restored previous episode subgraph", "records", n)
	return n, nil
}

func (p *Pipeline) deleteSubgraph(ctx context.Context, episodeID string) (int, error) {
	var n int
	err := retry.Do(ctx, p.cfg.maxAttempts, p.cfg.retryDelay, storage.IsTransient, func(ctx context.Context) error {
		deleteCtx, cancel := context.WithTimeout(ctx, p.cfg.writeTimeout)
		defer cancel()
		var err error
		n, err = p.store.DeleteEpisodeSubgraph(deleteCtx, episodeID)
		return err
	})
	if err != nil {
		return 0, &core.StorageError{Op: "delete_episode_subgraph", Key: episodeID, Err: err}
	}
	return n, nil
}

// rollback deletes the episode subgraph. It ignores cancellation of ctx so a
// canceled run still cleans up, and retries any failure once more than a
// normal write would.
func (p *Pipeline) rollback(ctx context.Context, r *run) (int, error) {
	ctx = context.WithoutCancel(ctx)
	eid := r.ec.EpisodeID

	var n int
	err := retry.Do(ctx, p.cfg.maxAttempts+1, p.cfg.retryDelay, func(error) bool { return true }, func(ctx context.Context) error {
		deleteCtx, cancel := context.WithTimeout(ctx, p.cfg.writeTimeout)
		defer cancel()
		var err error
		n, err = p.store.DeleteEpisodeSubgraph(deleteCtx, eid)
		return err
	})
	if err != nil {
		r.logger.Error("rollback failed", "phase", string(PhaseRollback), "err", err)
		return 0, &core.StorageError{Op: "delete_episode_subgraph", Key: eid, Err: fmt.Errorf("rollback: %w", err)}
	}
	if n > 0 {
		r.logger.Info("rolled back episode subgraph", "records", n)
	}
	return n, nil
}
