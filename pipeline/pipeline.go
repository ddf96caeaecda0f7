package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/unitgraph/ai"
	"github.com/poiesic/unitgraph/core"
	"github.com/poiesic/unitgraph/extraction"
	"github.com/poiesic/unitgraph/regroup"
	"github.com/poiesic/unitgraph/resolution"
	"github.com/poiesic/unitgraph/retry"
	"github.com/poiesic/unitgraph/storage"
	"github.com/poiesic/unitgraph/structure"
)

// Store is the storage surface the pipeline needs. The reader side detects an
// existing episode and copies it before an overwrite replaces it.
type Store interface {
	storage.GraphWriter
	storage.GraphReader
}

// Pipeline processes episodes. It is safe for concurrent use; runs for
// different episodes share the extraction worker pool.
type Pipeline struct {
	store     Store
	speakers  *structure.SpeakerResolver
	analyzer  *structure.Analyzer
	regrouper *regroup.Regrouper
	extractor *extraction.Extractor
	resolver  *resolution.Resolver
	embedder  ai.Embedder
	cfg       settings
	logger    *slog.Logger
}

// New creates a pipeline writing to store and calling the collaborators of
// provider. Call Release when done.
func New(store Store, provider ai.AIProvider, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	cfg := defaultSettings()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	logger := cfg.logger.With("component", "pipeline")

	speakers, err := structure.NewSpeakerResolver(provider.SpeakerIdentifier(),
		structure.WithGenericPattern(cfg.genericSpeakers),
		structure.WithSpeakerAttempts(cfg.maxAttempts),
		structure.WithSpeakerRetryDelay(cfg.retryDelay),
		structure.WithSpeakerTimeout(cfg.extractionTimeout),
		structure.WithSpeakerLogger(cfg.logger),
	)
	if err != nil {
		return nil, err
	}

	analyzer, err := structure.NewAnalyzer(provider.StructureAnalyzer(),
		structure.WithMinCoverage(cfg.minCoverage),
		structure.WithAnalyzerAttempts(cfg.maxAttempts),
		structure.WithAnalyzerRetryDelay(cfg.retryDelay),
		structure.WithStructureTimeout(cfg.structureTimeout),
		structure.WithAnalyzerLogger(cfg.logger),
	)
	if err != nil {
		return nil, err
	}

	extractor, err := extraction.New(provider.KnowledgeExtractor(),
		extraction.WithWorkers(cfg.workers),
		extraction.WithFailureThreshold(cfg.failureThreshold),
		extraction.WithMaxAttempts(cfg.maxAttempts),
		extraction.WithRetryDelay(cfg.retryDelay),
		extraction.WithCallTimeout(cfg.extractionTimeout),
		extraction.WithLogger(cfg.logger),
	)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		store:     store,
		speakers:  speakers,
		analyzer:  analyzer,
		regrouper: regroup.New(regroup.WithLookback(cfg.lookback), regroup.WithLogger(cfg.logger)),
		extractor: extractor,
		resolver:  resolution.New(cfg.logger),
		cfg:       cfg,
		logger:    logger,
	}
	if cfg.embeddings {
		p.embedder = provider.Embedder()
	}
	return p, nil
}

// Release stops the extraction worker pool.
func (p *Pipeline) Release() {
	if p.extractor != nil {
		p.extractor.Release()
	}
}

// run carries the mutable bookkeeping of one ProcessEpisode call. The episode
// context itself is immutable and passed to every phase.
type run struct {
	ec     core.EpisodeContext
	result *EpisodeResult
	logger *slog.Logger
	// existing is true when a committed graph for the episode predates the
	// run; it must survive every failure before the commit phase starts.
	existing   bool
	committing bool
	// previous holds the replaced graph once an overwrite commit deleted it.
	previous *snapshot
}

func (r *run) advance(next State) {
	if !r.result.Status.CanTransition(next) {
		panic(fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.result.Status, next))
	}
	r.result.Status = next
	r.result.History = append(r.result.History, next)
	r.logger.Debug("state changed", "state", next.String())
}

func (r *run) timed(phase Phase, fn func() error) error {
	start := time.Now()
	err := fn()
	r.result.Timings[phase] += time.Since(start)
	return err
}

// ProcessEpisode runs every phase for one episode. The returned result is
// never nil. On rejection the error is a *PipelineError and nothing written
// for the episode remains in the store.
func (p *Pipeline) ProcessEpisode(ctx context.Context, meta core.EpisodeMetadata, segments []core.Segment) (*EpisodeResult, error) {
	start := time.Now()
	ec := core.NewEpisodeContext(meta)
	r := &run{
		ec: ec,
		result: &EpisodeResult{
			EpisodeID: ec.EpisodeID,
			Status:    StateParsed,
			History:   []State{StateParsed},
			Timings:   make(map[Phase]time.Duration),
		},
		logger: p.logger.With("episode_id", ec.EpisodeID),
	}
	r.result.Stats.SegmentsIn = len(segments)

	err := p.process(ctx, r, segments)
	r.result.Duration = time.Since(start)
	if err != nil {
		return r.result, err
	}
	r.logger.Info("episode committed",
		"units", r.result.Stats.MeaningfulUnitsCreated,
		"entities", r.result.Stats.EntitiesResolved,
		"relationships", r.result.Stats.Relationships,
		"duration", r.result.Duration)
	return r.result, nil
}

func (p *Pipeline) process(ctx context.Context, r *run, segments []core.Segment) error {
	res := r.result

	err := r.timed(PhaseValidate, func() error {
		if r.ec.EpisodeID == "" {
			return core.ErrEmptyEpisodeID
		}
		if err := p.checkExisting(ctx, r); err != nil {
			return err
		}
		return core.ValidateSegments(segments)
	})
	if err != nil {
		return p.reject(ctx, r, PhaseValidate, err)
	}

	var resolved *structure.SpeakerResolution
	err = r.timed(PhaseSpeakers, func() error {
		var err error
		resolved, err = p.speakers.Resolve(ctx, r.ec, segments)
		if resolved != nil {
			res.Stats.CollaboratorCalls += resolved.Calls
			res.Stats.SpeakersResolved = len(resolved.Mapping)
		}
		return err
	})
	if err != nil {
		return p.reject(ctx, r, PhaseSpeakers, err)
	}
	segments = resolved.Segments

	var cs *core.ConversationStructure
	err = r.timed(PhaseStructure, func() error {
		var err error
		cs, err = p.analyzer.Analyze(ctx, r.ec, segments)
		return err
	})
	if err != nil {
		return p.reject(ctx, r, PhaseStructure, err)
	}
	res.Stats.Coverage = cs.Coverage(len(segments))
	r.advance(StateStructured)

	var grouped *regroup.Result
	err = r.timed(PhaseRegroup, func() error {
		var err error
		grouped, err = p.regrouper.Regroup(r.ec, cs, segments)
		if err == nil && len(grouped.Units) == 0 {
			err = ErrNoUnits
		}
		return err
	})
	if err != nil {
		return p.reject(ctx, r, PhaseRegroup, err)
	}
	res.Stats.MeaningfulUnitsCreated = len(grouped.Units)
	res.Stats.UnitsSkipped = grouped.Skipped
	r.advance(StateRegrouped)

	var extracted *extraction.Result
	err = r.timed(PhaseExtract, func() error {
		var err error
		extracted, err = p.extractor.Extract(ctx, r.ec, grouped.Units)
		if extracted != nil {
			res.Stats.CollaboratorCalls += extracted.Calls
			res.Stats.UnitsExtracted = len(extracted.Knowledge)
			res.Stats.UnitsFailed = len(extracted.Failures)
			res.Stats.InvalidItemsDropped = extracted.InvalidDropped
			res.Stats.DanglingDropped = extracted.DanglingDropped
			for _, k := range extracted.Knowledge {
				res.Stats.EntitiesExtracted += len(k.Entities)
			}
		}
		return err
	})
	if err != nil {
		return p.reject(ctx, r, PhaseExtract, err)
	}
	for _, f := range extracted.Failures {
		res.Errors = append(res.Errors, f)
	}

	if p.embedder != nil {
		err = r.timed(PhaseEmbed, func() error {
			return p.embedUnits(ctx, r, grouped.Units)
		})
		if err != nil {
			return p.reject(ctx, r, PhaseEmbed, err)
		}
	}
	r.advance(StateExtracted)

	resolveStart := time.Now()
	merged := p.resolver.Resolve(r.ec, extracted.Knowledge)
	res.Timings[PhaseResolve] = time.Since(resolveStart)
	res.Stats.EntitiesResolved = len(merged.Entities)
	res.Stats.EntitiesMerged = merged.Merged
	res.Stats.Relationships = len(merged.Relationships)
	res.Stats.Quotes = len(merged.Quotes)
	res.Stats.Insights = len(merged.Insights)
	r.advance(StateResolved)

	err = r.timed(PhaseCommit, func() error {
		return p.commit(ctx, r, len(segments), cs, grouped.Units, merged)
	})
	if err != nil {
		return p.reject(ctx, r, PhaseCommit, err)
	}
	r.advance(StateCommitted)
	return nil
}

// checkExisting rejects a run for an already committed episode unless
// overwrite is set.
func (p *Pipeline) checkExisting(ctx context.Context, r *run) error {
	status, err := p.store.GetEpisodeStatus(ctx, r.ec.EpisodeID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil
	case err != nil:
		return &core.StorageError{Op: "get_episode_status", Key: r.ec.EpisodeID, Err: err}
	case status == core.EpisodeStatusCommitted:
		r.existing = true
		if !p.cfg.overwrite {
			return storage.ErrEpisodeExists
		}
		r.logger.Info("episode already committed, will be replaced")
	}
	return nil
}

func (p *Pipeline) embedUnits(ctx context.Context, r *run, units []*core.MeaningfulUnit) error {
	texts := make([]string, len(units))
	for i, u := range units {
		texts[i] = u.Text
	}

	calls := 0
	out := retry.Run(ctx, p.cfg.maxAttempts, p.cfg.retryDelay, func(ctx context.Context, attempt int) retry.Outcome[[][]float32] {
		calls++
		callCtx, cancel := context.WithTimeout(ctx, p.cfg.extractionTimeout)
		defer cancel()

		vectors, err := p.embedder.EmbedTexts(callCtx, texts)
		if err == nil && len(vectors) != len(texts) {
			err = fmt.Errorf("%w: got %d vectors for %d units", ai.ErrMalformedResponse, len(vectors), len(texts))
		}
		if err != nil {
			r.logger.Debug("embedding call failed", "attempt", attempt, "err", err)
			if ai.IsTransient(err) && ctx.Err() == nil {
				return retry.Retryable[[][]float32](err)
			}
			return retry.Fatal[[][]float32](err)
		}
		return retry.Ok(vectors)
	})
	r.result.Stats.CollaboratorCalls += calls

	vectors, err := out.Unwrap()
	if err != nil {
		return fmt.Errorf("embed units: %w", err)
	}
	for i, u := range units {
		u.Vector = core.NormalizeVector(vectors[i])
	}
	r.result.Stats.UnitsEmbedded = len(units)
	return nil
}

// reject records err, rolls back what the run may have written and returns
// the PipelineError. Validation writes nothing, so it never rolls back. A
// committed graph that predates the run is left alone until the commit phase
// replaces it, and is restored when that commit fails.
func (p *Pipeline) reject(ctx context.Context, r *run, phase Phase, err error) error {
	res := r.result
	res.FailedPhase = phase
	res.Errors = append([]error{err}, res.Errors...)
	r.advance(StateRejected)
	r.logger.Error("episode rejected", "phase", string(phase), "err", err)

	if phase == PhaseValidate || (r.existing && !r.committing) {
		return &PipelineError{EpisodeID: r.ec.EpisodeID, Phase: phase, Cause: err}
	}

	var cause error = err
	n, rbErr := p.rollback(ctx, r)
	res.Stats.RecordsRolledBack = n
	switch {
	case rbErr != nil:
		res.Errors = append(res.Errors, rbErr)
		cause = errors.Join(err, rbErr)
	case r.previous != nil:
		restored, rsErr := p.restore(ctx, r)
		res.Stats.RecordsRestored = restored
		if rsErr != nil {
			res.Errors = append(res.Errors, rsErr)
			cause = errors.Join(err, rsErr)
		}
	}
	return &PipelineError{EpisodeID: r.ec.EpisodeID, Phase: phase, Cause: cause}
}
