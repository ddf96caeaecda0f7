package pipeline

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/poiesic/unitgraph/extraction"
	"github.com/poiesic/unitgraph/regroup"
	"github.com/poiesic/unitgraph/retry"
	"github.com/poiesic/unitgraph/structure"
)

// DefaultWriteTimeout bounds one graph store write.
const DefaultWriteTimeout = 30 * time.Second

type settings struct {
	workers           int
	failureThreshold  float64
	minCoverage       float64
	lookback          float64
	maxAttempts       int
	retryDelay        time.Duration
	structureTimeout  time.Duration
	extractionTimeout time.Duration
	writeTimeout      time.Duration
	genericSpeakers   *regexp.Regexp
	overwrite         bool
	embeddings        bool
	logger            *slog.Logger
}

func defaultSettings() settings {
	return settings{
		workers:           extraction.DefaultWorkers,
		failureThreshold:  extraction.DefaultFailureThreshold,
		minCoverage:       structure.DefaultMinCoverage,
		lookback:          regroup.DefaultLookback,
		maxAttempts:       structure.DefaultMaxAttempts,
		retryDelay:        structure.DefaultRetryDelay,
		structureTimeout:  structure.DefaultStructureTimeout,
		extractionTimeout: extraction.DefaultCallTimeout,
		writeTimeout:      DefaultWriteTimeout,
		genericSpeakers:   structure.DefaultGenericPattern,
		embeddings:        true,
		logger:            slog.Default(),
	}
}

// Option configures a Pipeline.
type Option func(*settings) error

// WithWorkers sets the number of units extracted concurrently.
func WithWorkers(n int) Option {
	return func(s *settings) error {
		if n < 1 {
			return fmt.Errorf("workers must be at least 1, got %d", n)
		}
		s.workers = n
		return nil
	}
}

// WithFailureThreshold sets the fraction of units allowed to fail extraction.
// The default of zero rejects the episode on any failure.
func WithFailureThreshold(f float64) Option {
	return func(s *settings) error {
		if f < 0 || f > 1 {
			return fmt.Errorf("failure threshold %v outside [0,1]", f)
		}
		s.failureThreshold = f
		return nil
	}
}

// WithMinCoverage sets the fraction of segments a structure must cover.
func WithMinCoverage(c float64) Option {
	return func(s *settings) error {
		if c < 0 || c > 1 {
			return fmt.Errorf("minimum coverage %v outside [0,1]", c)
		}
		s.minCoverage = c
		return nil
	}
}

// WithLookback sets how many seconds each unit's navigation start is moved
// back from its first segment.
func WithLookback(seconds float64) Option {
	return func(s *settings) error {
		if seconds < 0 {
			return fmt.Errorf("lookback must not be negative, got %v", seconds)
		}
		s.lookback = seconds
		return nil
	}
}

// WithMaxAttempts sets the attempts every phase gets, retries included.
func WithMaxAttempts(n int) Option {
	return func(s *settings) error {
		if n < 1 {
			return retry.ErrInvalidMaxAttempts
		}
		s.maxAttempts = n
		return nil
	}
}

// WithRetryDelay sets the base backoff between attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(s *settings) error {
		s.retryDelay = d
		return nil
	}
}

// WithStructureTimeout bounds the structure call.
func WithStructureTimeout(d time.Duration) Option {
	return func(s *settings) error {
		s.structureTimeout = d
		return nil
	}
}

// WithExtractionTimeout bounds each speaker, extraction and embedding call.
func WithExtractionTimeout(d time.Duration) Option {
	return func(s *settings) error {
		s.extractionTimeout = d
		return nil
	}
}

// WithWriteTimeout bounds each graph store write.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *settings) error {
		if d <= 0 {
			return fmt.Errorf("write timeout must be positive, got %v", d)
		}
		s.writeTimeout = d
		return nil
	}
}

// WithGenericSpeakerPattern replaces the pattern for placeholder labels.
func WithGenericSpeakerPattern(re *regexp.Regexp) Option {
	return func(s *settings) error {
		if re == nil {
			return fmt.Errorf("generic speaker pattern must not be nil")
		}
		s.genericSpeakers = re
		return nil
	}
}

// WithOverwrite replaces an already committed episode instead of rejecting
// the run with storage.ErrEpisodeExists.
func WithOverwrite(overwrite bool) Option {
	return func(s *settings) error {
		s.overwrite = overwrite
		return nil
	}
}

// WithEmbeddings toggles unit embeddings. They are only computed when the
// provider has an embedder.
func WithEmbeddings(enabled bool) Option {
	return func(s *settings) error {
		s.embeddings = enabled
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// CheckOptions applies opts to the defaults and reports the first invalid
// value, without building a pipeline.
func CheckOptions(opts ...Option) error {
	cfg := defaultSettings()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return err
		}
	}
	return nil
}
