package structure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/unitgraph/ai"
	"github.com/poiesic/unitgraph/core"
	"github.com/poiesic/unitgraph/retry"
)

const (
	// DefaultMinCoverage is the smallest accepted fraction of covered segments.
	DefaultMinCoverage = 0.9
	// DefaultMaxAttempts allows one retry.
	DefaultMaxAttempts = 2
	// DefaultRetryDelay is the backoff before the retry.
	DefaultRetryDelay = 500 * time.Millisecond
	// DefaultStructureTimeout bounds one structure call.
	DefaultStructureTimeout = 5 * time.Minute
)

var (
	// ErrAnalyzerRequired is returned when no ai.StructureAnalyzer is supplied.
	ErrAnalyzerRequired = errors.New("structure analyzer is required")
	// ErrIdentifierRequired is returned when no ai.SpeakerIdentifier is supplied.
	ErrIdentifierRequired = errors.New("speaker identifier is required")
)

// Analyzer runs the structure phase.
type Analyzer struct {
	analyzer    ai.StructureAnalyzer
	minCoverage float64
	maxAttempts int
	retryDelay  time.Duration
	callTimeout time.Duration
	logger      *slog.Logger
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithMinCoverage sets the coverage threshold.
func WithMinCoverage(c float64) AnalyzerOption {
	return func(a *Analyzer) { a.minCoverage = c }
}

// WithAnalyzerAttempts sets the total number of structure calls allowed.
func WithAnalyzerAttempts(n int) AnalyzerOption {
	return func(a *Analyzer) { a.maxAttempts = n }
}

// WithAnalyzerRetryDelay sets the base backoff between attempts.
func WithAnalyzerRetryDelay(d time.Duration) AnalyzerOption {
	return func(a *Analyzer) { a.retryDelay = d }
}

// WithStructureTimeout bounds each structure call.
func WithStructureTimeout(d time.Duration) AnalyzerOption {
	return func(a *Analyzer) { a.callTimeout = d }
}

// WithAnalyzerLogger sets the logger.
func WithAnalyzerLogger(l *slog.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAnalyzer creates an Analyzer around a structure collaborator.
func NewAnalyzer(analyzer ai.StructureAnalyzer, opts ...AnalyzerOption) (*Analyzer, error) {
	if analyzer == nil {
		return nil, ErrAnalyzerRequired
	}
	a := &Analyzer{
		analyzer:    analyzer,
		minCoverage: DefaultMinCoverage,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		callTimeout: DefaultStructureTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.minCoverage < 0 || a.minCoverage > 1 {
		return nil, fmt.Errorf("min coverage %v outside [0,1]", a.minCoverage)
	}
	if a.maxAttempts < 1 {
		return nil, retry.ErrInvalidMaxAttempts
	}
	a.logger = a.logger.With("component", "structure_analyzer")
	return a, nil
}

// Analyze returns the accepted structure for the segments. Every error it
// returns is fatal for the episode; collaborator failures and coverage
// shortfalls are reported as *core.ConversationAnalysisError.
func (a *Analyzer) Analyze(ctx context.Context, ec core.EpisodeContext, segments []core.Segment) (*core.ConversationStructure, error) {
	if len(segments) == 0 {
		return nil, core.ErrNoSegments
	}
	logger := a.logger.With("episode_id", ec.EpisodeID)
	req := ai.StructureRequest{
		Title:       ec.Metadata.Title,
		Description: ec.Metadata.Description,
		Segments:    segments,
	}

	out := retry.Run(ctx, a.maxAttempts, a.retryDelay, func(ctx context.Context, attempt int) retry.Outcome[*core.ConversationStructure] {
		return a.attempt(ctx, logger, req, attempt)
	})
	cs, err := out.Unwrap()
	if err == nil {
		return cs, nil
	}

	var cae *core.ConversationAnalysisError
	if errors.As(err, &cae) || errors.Is(err, context.Canceled) {
		return nil, err
	}
	return nil, &core.ConversationAnalysisError{Reason: "structure call failed", Err: err}
}

func (a *Analyzer) attempt(ctx context.Context, logger *slog.Logger, req ai.StructureRequest, attempt int) retry.Outcome[*core.ConversationStructure] {
	callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()

	start := time.Now()
	resp, err := a.analyzer.AnalyzeStructure(callCtx, req)
	if err != nil {
		logger.Warn("structure call failed", "attempt", attempt, "err", err)
		if ai.IsTransient(err) {
			return retry.Retryable[*core.ConversationStructure](err)
		}
		return retry.Fatal[*core.ConversationStructure](err)
	}
	if resp == nil || len(resp.Units) == 0 {
		logger.Warn("structure call returned no units", "attempt", attempt)
		return retry.Retryable[*core.ConversationStructure](fmt.Errorf("no units: %w", ai.ErrEmptyResponse))
	}

	total := len(req.Segments)
	cs := resp.ToStructure()
	cs.Units = ClampUnits(cs.Units, total, logger)
	coverage := cs.Coverage(total)
	logger.Debug("structure analyzed",
		"attempt", attempt, "units", len(cs.Units), "coverage", coverage, "duration", time.Since(start))

	if coverage < a.minCoverage {
		// Shortfalls are treated like malformed output and retried once.
		return retry.Retryable[*core.ConversationStructure](&core.ConversationAnalysisError{
			Coverage:    coverage,
			MinCoverage: a.minCoverage,
			Reason:      "insufficient coverage",
		})
	}
	return retry.Ok(cs)
}

// ClampUnits moves unit ranges into [0, total). Ranges lying entirely outside
// are dropped; ranges that end before they start are kept so the regrouper
// can skip them.
func ClampUnits(units []core.UnitSpec, total int, logger *slog.Logger) []core.UnitSpec {
	if logger == nil {
		logger = slog.Default()
	}
	out := make([]core.UnitSpec, 0, len(units))
	for i, u := range units {
		if u.EndIndex >= u.StartIndex && (u.EndIndex < 0 || u.StartIndex >= total) {
			logger.Warn("dropping unit outside transcript",
				"unit", i, "start_index", u.StartIndex, "end_index", u.EndIndex, "segments", total)
			continue
		}
		if u.StartIndex < 0 || u.EndIndex >= total {
			logger.Debug("clamping unit range",
				"unit", i, "start_index", u.StartIndex, "end_index", u.EndIndex, "segments", total)
			u.StartIndex = max(u.StartIndex, 0)
			u.EndIndex = min(u.EndIndex, total-1)
		}
		out = append(out, u)
	}
	return out
}
