// Package regroup merges timed segments into meaningful units following an
// accepted conversation structure.
package regroup

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/unitgraph/core"
)

// DefaultLookback is subtracted from a unit's start to give listeners
// context when navigating to it.
const DefaultLookback = 2.0

// ErrNoStructure is returned when Regroup is called without a structure.
var ErrNoStructure = errors.New("conversation structure is required")

// Regrouper builds MeaningfulUnits. It holds no per-episode state and is safe
// for concurrent use.
type Regrouper struct {
	lookback float64
	logger   *slog.Logger
}

// Option configures a Regrouper.
type Option func(*Regrouper)

// WithLookback sets the navigation lookback in seconds.
func WithLookback(seconds float64) Option {
	return func(r *Regrouper) { r.lookback = max(seconds, 0) }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Regrouper) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Regrouper.
func New(opts ...Option) *Regrouper {
	r := &Regrouper{lookback: DefaultLookback, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "regrouper")
	return r
}

// Result is the output of Regroup.
type Result struct {
	Units []*core.MeaningfulUnit
	// Skipped counts unit specs that covered no segments.
	Skipped int
}

// UnitID returns the id of the unit at index within an episode.
func UnitID(episodeID string, index int) string {
	return fmt.Sprintf("unit_%s_%04d", episodeID, index)
}

// Regroup turns each unit spec into a MeaningfulUnit, ordered by start
// index. Empty or out-of-range specs are skipped with a warning.
func (r *Regrouper) Regroup(ec core.EpisodeContext, cs *core.ConversationStructure, segments []core.Segment) (*Result, error) {
	if cs == nil {
		return nil, ErrNoStructure
	}
	logger := r.logger.With("episode_id", ec.EpisodeID)

	specs := slices.Clone(cs.Units)
	slices.SortStableFunc(specs, func(a, b core.UnitSpec) int {
		return cmp.Or(cmp.Compare(a.StartIndex, b.StartIndex), cmp.Compare(a.EndIndex, b.EndIndex))
	})

	res := &Result{Units: make([]*core.MeaningfulUnit, 0, len(specs))}
	for _, spec := range specs {
		if spec.Len() == 0 || spec.StartIndex < 0 || spec.EndIndex >= len(segments) {
			logger.Warn("skipping empty unit spec", "start_index", spec.StartIndex, "end_index", spec.EndIndex)
			res.Skipped++
			continue
		}
		unit := r.build(ec.EpisodeID, len(res.Units), spec, segments[spec.StartIndex:spec.EndIndex+1])
		res.Units = append(res.Units, unit)
	}

	logger.Debug("regrouped segments", "units", len(res.Units), "skipped", res.Skipped)
	return res, nil
}

func (r *Regrouper) build(episodeID string, index int, spec core.UnitSpec, covered []core.Segment) *core.MeaningfulUnit {
	first, last := covered[0], covered[len(covered)-1]

	indices := make([]int, len(covered))
	for i := range covered {
		indices[i] = spec.StartIndex + i
	}

	dist, speakers := SpeakerDistribution(covered)
	return &core.MeaningfulUnit{
		ID:                  UnitID(episodeID, index),
		EpisodeID:           episodeID,
		Index:               index,
		Text:                MergeText(covered),
		StartTime:           max(first.Start-r.lookback, 0),
		OriginalStart:       first.Start,
		EndTime:             last.End,
		Summary:             spec.Summary,
		UnitType:            spec.UnitType,
		Themes:              slices.Clone(spec.Themes),
		SpeakerDistribution: dist,
		Speakers:            speakers,
		SegmentIndices:      indices,
	}
}

// MergeText joins segment texts, starting a new "Speaker: " line at every
// speaker change. Segments without a speaker are appended to the current line.
func MergeText(segments []core.Segment) string {
	var b strings.Builder
	current := ""
	for i, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		switch {
		case i == 0 && seg.Speaker != "":
			b.WriteString(seg.Speaker)
			b.WriteString(": ")
			current = seg.Speaker
		case seg.Speaker != "" && seg.Speaker != current:
			b.WriteString("\n")
			b.WriteString(seg.Speaker)
			b.WriteString(": ")
			current = seg.Speaker
		case i > 0:
			b.WriteString(" ")
		}
		b.WriteString(text)
	}
	return b.String()
}

// SpeakerDistribution returns each speaker's fraction of covered speaking
// time and the speakers ordered by share, ties broken by earliest turn.
// Turn counts are used when the segments have no duration.
func SpeakerDistribution(segments []core.Segment) (map[string]float64, []string) {
	weight := make(map[string]float64)
	firstTurn := make(map[string]int)
	var total float64
	for i, seg := range segments {
		if seg.Speaker == "" {
			continue
		}
		if _, ok := firstTurn[seg.Speaker]; !ok {
			firstTurn[seg.Speaker] = i
		}
		d := max(seg.Duration(), 0)
		weight[seg.Speaker] += d
		total += d
	}
	if total <= 0 {
		total = 0
		for sp := range weight {
			weight[sp] = 0
		}
		for _, seg := range segments {
			if seg.Speaker != "" {
				weight[seg.Speaker]++
				total++
			}
		}
	}

	dist := make(map[string]float64, len(weight))
	speakers := make([]string, 0, len(weight))
	for sp, w := range weight {
		if total > 0 {
			dist[sp] = w / total
		}
		speakers = append(speakers, sp)
	}
	slices.SortFunc(speakers, func(a, b string) int {
		return cmp.Or(cmp.Compare(dist[b], dist[a]), cmp.Compare(firstTurn[a], firstTurn[b]))
	})
	return dist, speakers
}
