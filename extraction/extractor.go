// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/unitgraph/ai"
	"github.com/poiesic/unitgraph/core"
	"github.com/poiesic/unitgraph/retry"
)

const (
	// DefaultWorkers bounds concurrent extraction calls per extractor.
	DefaultWorkers = 5
	// DefaultFailureThreshold rejects the episode on any unit failure.
	DefaultFailureThreshold = 0.0
	// DefaultMaxAttempts allows one retry per unit.
	DefaultMaxAttempts = 2
	// DefaultRetryDelay is the backoff before a unit's retry.
	DefaultRetryDelay = 500 * time.Millisecond
	// DefaultCallTimeout bounds one extraction call.
	DefaultCallTimeout = 2 * time.Minute
)

// ErrExtractorRequired is returned when no ai.KnowledgeExtractor is supplied.
var ErrExtractorRequired = errors.New("knowledge extractor is required")

// Extractor runs one combined extraction call per unit on a bounded pool.
type Extractor struct {
	extractor   ai.KnowledgeExtractor
	pool        *ants.Pool
	workers     int
	threshold   float64
	maxAttempts int
	retryDelay  time.Duration
	callTimeout time.Duration
	logger      *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor) error

// WithWorkers sets the worker pool size.
func WithWorkers(n int) Option {
	return func(e *Extractor) error {
		if n < 1 {
			return fmt.Errorf("workers must be at least 1, got %d", n)
		}
		e.workers = n
		return nil
	}
}

// WithFailureThreshold sets the tolerated fraction of failed units. The
// episode is rejected when failed/total exceeds it.
func WithFailureThreshold(f float64) Option {
	return func(e *Extractor) error {
		if f < 0 || f > 1 {
			return fmt.Errorf("failure threshold %v outside [0,1]", f)
		}
		e.threshold = f
		return nil
	}
}

// WithMaxAttempts sets the total number of calls per unit.
func WithMaxAttempts(n int) Option {
	return func(e *Extractor) error {
		if n < 1 {
			return retry.ErrInvalidMaxAttempts
		}
		e.maxAttempts = n
		return nil
	}
}

// WithRetryDelay sets the base backoff between a unit's attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(e *Extractor) error {
		e.retryDelay = d
		return nil
	}
}

// WithCallTimeout bounds each extraction call.
func WithCallTimeout(d time.Duration) Option {
	return func(e *Extractor) error {
		e.callTimeout = d
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) error {
		if logger != nil {
			e.logger = logger
		}
		return nil
	}
}

// New creates an Extractor. Call Release when done with it.
func New(extractor ai.KnowledgeExtractor, opts ...Option) (*Extractor, error) {
	if extractor == nil {
		return nil, ErrExtractorRequired
	}
	e := &Extractor{
		extractor:   extractor,
		workers:     DefaultWorkers,
		threshold:   DefaultFailureThreshold,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		callTimeout: DefaultCallTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	pool, err := ants.NewPool(e.workers)
	if err != nil {
		return nil, err
	}
	e.pool = pool
	e.logger = e.logger.With("component", "extractor")
	return e, nil
}

// Release releases the worker pool. The extractor must not be used after.
func (e *Extractor) Release() {
	if e.pool != nil {
		e.pool.Release()
	}
}

// Workers returns the pool size.
func (e *Extractor) Workers() int {
	return e.workers
}

// Result is the aggregated outcome of extracting every unit of an episode.
type Result struct {
	// Knowledge holds successful extractions ordered by unit index.
	Knowledge []core.UnitKnowledge
	// Failures holds the units that failed, ordered by unit id.
	Failures []*core.ExtractionError
	// Calls counts collaborator calls, retries included.
	Calls int
	// InvalidDropped counts items that failed structural validation.
	InvalidDropped int
	// DanglingDropped counts relationships whose endpoints were not
	// entities of the same unit.
	DanglingDropped int
}

type unitResult struct {
	knowledge core.UnitKnowledge
	err       *core.ExtractionError
	calls     int
	invalid   int
	dangling  int
	skipped   bool
}

// Extract runs extraction for every unit and waits for all of them. When the
// failure threshold is breached, units not yet started are skipped and the
// returned error is a *core.ExtractionThresholdError; calls already in
// flight finish but their results are discarded.
func (e *Extractor) Extract(ctx context.Context, ec core.EpisodeContext, units []*core.MeaningfulUnit) (*Result, error) {
	logger := e.logger.With("episode_id", ec.EpisodeID)
	res := &Result{}
	if len(units) == 0 {
		return res, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Submission runs beside aggregation so a breach can stop units that
	// have not started yet.
	results := make(chan unitResult, len(units))
	go func() {
		for _, unit := range units {
			if runCtx.Err() != nil {
				results <- unitResult{skipped: true}
				continue
			}
			err := e.pool.Submit(func() {
				if runCtx.Err() != nil {
					results <- unitResult{skipped: true}
					return
				}
				results <- e.extractUnit(runCtx, ec, unit, logger)
			})
			if err != nil {
				results <- unitResult{err: &core.ExtractionError{UnitID: unit.ID, Err: err}}
			}
		}
	}()

	total := len(units)
	breached := false
	for range total {
		r := <-results
		res.Calls += r.calls
		if r.skipped {
			continue
		}
		if r.err != nil {
			if breached || ctx.Err() != nil {
				continue
			}
			res.Failures = append(res.Failures, r.err)
			logger.Warn("unit extraction failed", "unit_id", r.err.UnitID, "attempts", r.err.Attempts, "err", r.err.Err)
			if float64(len(res.Failures))/float64(total) > e.threshold {
				breached = true
				cancel()
			}
			continue
		}
		if breached {
			continue
		}
		res.Knowledge = append(res.Knowledge, r.knowledge)
		res.InvalidDropped += r.invalid
		res.DanglingDropped += r.dangling
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slices.SortFunc(res.Knowledge, func(a, b core.UnitKnowledge) int { return a.UnitIndex - b.UnitIndex })
	slices.SortFunc(res.Failures, func(a, b *core.ExtractionError) int { return strings.Compare(a.UnitID, b.UnitID) })

	if breached {
		return res, &core.ExtractionThresholdError{
			Failed:    len(res.Failures),
			Total:     total,
			Threshold: e.threshold,
			Failures:  res.Failures,
		}
	}

	logger.Debug("extraction complete",
		"units", total, "succeeded", len(res.Knowledge), "failed", len(res.Failures), "calls", res.Calls)
	return res, nil
}

func (e *Extractor) extractUnit(ctx context.Context, ec core.EpisodeContext, unit *core.MeaningfulUnit, logger *slog.Logger) unitResult {
	req := ai.ExtractionRequest{
		EpisodeTitle: ec.Metadata.Title,
		UnitID:       unit.ID,
		UnitType:     unit.UnitType,
		Summary:      unit.Summary,
		Themes:       unit.Themes,
		Speakers:     unit.Speakers,
		Text:         unit.Text,
	}

	calls := 0
	out := retry.Run(ctx, e.maxAttempts, e.retryDelay, func(ctx context.Context, attempt int) retry.Outcome[*ai.ExtractionResponse] {
		calls++
		callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
		defer cancel()

		resp, err := e.extractor.ExtractKnowledge(callCtx, req)
		if err != nil {
			logger.Debug("extraction call failed", "unit_id", unit.ID, "attempt", attempt, "err", err)
			if ai.IsTransient(err) && ctx.Err() == nil {
				return retry.Retryable[*ai.ExtractionResponse](err)
			}
			return retry.Fatal[*ai.ExtractionResponse](err)
		}
		if resp == nil {
			return retry.Retryable[*ai.ExtractionResponse](ai.ErrEmptyResponse)
		}
		return retry.Ok(resp)
	})

	resp, err := out.Unwrap()
	if err != nil {
		return unitResult{calls: calls, err: &core.ExtractionError{UnitID: unit.ID, Attempts: calls, Err: err}}
	}

	k, stats := ToKnowledge(ec.EpisodeID, unit, resp)
	return unitResult{knowledge: k, calls: calls, invalid: stats.Invalid, dangling: stats.Dangling}
}
