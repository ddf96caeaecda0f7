package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/poiesic/unitgraph/ai"
	"github.com/poiesic/unitgraph/core"
)

// DefaultMinSimilarity is the cosine similarity a unit needs to count as a
// semantic match.
const DefaultMinSimilarity = 0.60

// Reader is the part of a graph reader the searcher needs.
type Reader interface {
	ListUnits(ctx context.Context, episodeID string) ([]*core.MeaningfulUnit, error)
	ListEntities(ctx context.Context, episodeID string) ([]*core.Entity, error)
}

// Hit is one ranked unit.
type Hit struct {
	Unit *core.MeaningfulUnit
	// Score combines the semantic, entity and verbatim signals.
	Score float32
	// Similarity is the cosine similarity to the query, zero without vectors.
	Similarity float32
	// Entities lists the query-named entities the unit supports.
	Entities []string
}

// Searcher ranks the units of committed episodes against queries.
type Searcher struct {
	reader        Reader
	embedder      ai.Embedder
	minSimilarity float32
	logger        *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMinSimilarity sets the semantic match cutoff.
func WithMinSimilarity(cutoff float32) Option {
	return func(s *Searcher) error {
		if cutoff < 0 || cutoff > 1 {
			return fmt.Errorf("min similarity %v outside [0,1]", cutoff)
		}
		s.minSimilarity = cutoff
		return nil
	}
}

// NewSearcher creates a searcher over reader. A nil embedder disables the
// semantic signal and ranks by entity and verbatim matches only.
func NewSearcher(reader Reader, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if reader == nil {
		return nil, ErrReaderRequired
	}

	s := &Searcher{
		reader:        reader,
		embedder:      embedder,
		minSimilarity: DefaultMinSimilarity,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "searcher")
	return s, nil
}

// FindUnits returns up to maxHits units of the episode ranked by relevance to
// query. The episode must be committed.
func (s *Searcher) FindUnits(ctx context.Context, episodeID, query string, maxHits int) ([]*Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if maxHits <= 0 {
		return nil, ErrInvalidMaxHits
	}
	logger := s.logger.With("episode_id", episodeID)

	units, err := s.reader.ListUnits(ctx, episodeID)
	if err != nil {
		return nil, err
	}

	// 1. Semantic matches against stored unit vectors
	similarity := make(map[string]float32)
	if s.embedder != nil && hasVectors(units) {
		embedding, err := s.embedder.EmbedText(ctx, query)
		if err != nil {
			logger.Error("error generating embedding for query", "query", query, "err", err)
			return nil, err
		}
		for _, u := range units {
			if sim := core.CosineSimilarity(embedding, u.Vector); sim >= s.minSimilarity {
				similarity[u.ID] = sim
			}
		}
	}

	// 2. Entities named in the query and the units supporting them
	entities, err := s.reader.ListEntities(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	qp := phrase(query)
	named := make(map[string][]string)
	for _, e := range entities {
		if !mentions(qp, e.Value) {
			continue
		}
		for _, unitID := range e.SupportingUnitIDs {
			named[unitID] = append(named[unitID], e.Value)
		}
	}
	logger.Debug("query signals", "semantic", len(similarity), "entity_units", len(named))

	// 3. Score
	hits := make([]*Hit, 0, len(units))
	for _, u := range units {
		sim, inSemantic := similarity[u.ID]
		ents, inEntities := named[u.ID]

		var score float32
		switch {
		case inSemantic && inEntities:
			score = 1.5 * sim
		case inEntities:
			score = 1.2
		case inSemantic:
			score = sim
		}
		if containsAllQueryWords(u.Text, query) {
			score += 0.3
		}
		if score == 0 {
			continue
		}
		hits = append(hits, &Hit{Unit: u, Score: score, Similarity: sim, Entities: ents})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Unit.Index < hits[j].Unit.Index
	})
	if len(hits) > maxHits {
		hits = hits[:maxHits]
	}
	return hits, nil
}

func hasVectors(units []*core.MeaningfulUnit) bool {
	for _, u := range units {
		if len(u.Vector) > 0 {
			return true
		}
	}
	return false
}
