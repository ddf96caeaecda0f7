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


// Package batch processes many episodes concurrently. Each episode runs its
// own independent pipeline pass; a rejected episode never stops the others.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/poiesic/unitgraph/core"
	"github.com/poiesic/unitgraph/pipeline"
	"github.com/poiesic/unitgraph/transcript"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of episodes processed at once.
const DefaultConcurrency = 2

// ErrProcessorRequired is returned when no processor is supplied.
var ErrProcessorRequired = errors.New("episode processor is required")

// episodeNamespace scopes ids derived from transcript paths.
var episodeNamespace = uuid.MustParse("6f1c1d2e-8a4b-5c3d-9e7f-2a1b3c4d5e6f")

// Processor processes one episode. *pipeline.Pipeline implements it.
type Processor interface {
	ProcessEpisode(ctx context.Context, meta core.EpisodeMetadata, segments []core.Segment) (*pipeline.EpisodeResult, error)
}

// Job is one episode to process. When Segments is nil they are parsed from
// Path.
type Job struct {
	Metadata core.EpisodeMetadata
	Path     string
	Segments []core.Segment
}

// JobResult is the outcome of one job.
type JobResult struct {
	Job    Job
	Result *pipeline.EpisodeResult
	Issues []string
	Err    error
}

// Summary is the outcome of a batch, with results in job order.
type Summary struct {
	Results   []JobResult
	Committed int
	Rejected  int
}

// Runner processes jobs with bounded concurrency.
type Runner struct {
	processor   Processor
	concurrency int
	tracker     *ProgressTracker
	logger      *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithConcurrency sets how many episodes run at once.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithProgress reports progress through tracker.
func WithProgress(tracker *ProgressTracker) Option {
	return func(r *Runner) { r.tracker = tracker }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a Runner.
func NewRunner(processor Processor, opts ...Option) (*Runner, error) {
	if processor == nil {
		return nil, ErrProcessorRequired
	}
	r := &Runner{
		processor:   processor,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "batch")
	return r, nil
}

// EpisodeIDForPath derives a stable episode id from a transcript path, so
// reprocessing the same file targets the same episode.
func EpisodeIDForPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return uuid.NewSHA1(episodeNamespace, []byte(path)).String()
}

// JobsFromFiles builds one job per transcript file. Titles default to the
// file name without extension.
func JobsFromFiles(paths []string) []Job {
	jobs := make([]Job, len(paths))
	for i, p := range paths {
		title := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		jobs[i] = Job{
			Path:     p,
			Metadata: core.EpisodeMetadata{ID: EpisodeIDForPath(p), Title: title, Source: filepath.Base(filepath.Dir(p))},
		}
	}
	return jobs
}

// Run processes every job. Rejections and unreadable transcripts are
// recorded in the summary; only cancellation of ctx makes Run return an
// error.
func (r *Runner) Run(ctx context.Context, jobs []Job) (*Summary, error) {
	summary := &Summary{Results: make([]JobResult, len(jobs))}
	if r.tracker != nil {
		r.tracker.Start()
		defer r.tracker.Finish()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			jr := r.runJob(gctx, job)
			summary.Results[i] = jr
			if r.tracker != nil {
				r.tracker.Done(jr.Err == nil)
			}
			if errors.Is(jr.Err, context.Canceled) && ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	for _, jr := range summary.Results {
		if jr.Err == nil {
			summary.Committed++
		} else {
			summary.Rejected++
		}
	}
	r.logger.Info("batch complete", "episodes", len(jobs), "committed", summary.Committed, "rejected", summary.Rejected)
	return summary, nil
}

func (r *Runner) runJob(ctx context.Context, job Job) JobResult {
	jr := JobResult{Job: job}
	segments := job.Segments
	if segments == nil {
		if job.Path == "" {
			jr.Err = fmt.Errorf("job %s: no segments and no path", job.Metadata.ID)
			return jr
		}
		tr, err := transcript.ParseFile(job.Path)
		if err != nil {
			jr.Err = fmt.Errorf("parse %s: %w", job.Path, err)
			r.logger.Warn("transcript unreadable", "path", job.Path, "err", err)
			return jr
		}
		segments = tr.Segments
		jr.Issues = tr.Issues
	}

	jr.Result, jr.Err = r.processor.ProcessEpisode(ctx, job.Metadata, segments)
	return jr
}
