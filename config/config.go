// Package config loads the YAML configuration file of the unitgraph CLI.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/unitgraph/ai"
	"github.com/poiesic/unitgraph/pipeline"
	"github.com/poiesic/unitgraph/storage/neo4j"
	"github.com/poiesic/unitgraph/storage/surreal"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendBadger  = "badger"
	BackendNeo4j   = "neo4j"
	BackendSurreal = "surreal"
)

// ErrUnknownBackend is returned for a storage backend with no implementation.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Config is the root of the configuration file.
type Config struct {
	AI       AIConfig       `yaml:"ai"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AIConfig mirrors ai.Config.
type AIConfig struct {
	Provider        string        `yaml:"provider"`
	Host            string        `yaml:"host"`
	APIKey          string        `yaml:"api_key"`
	StructureModel  string        `yaml:"structure_model"`
	ExtractionModel string        `yaml:"extraction_model"`
	EmbeddingHost   string        `yaml:"embedding_host"`
	EmbeddingModel  string        `yaml:"embedding_model"`
	Temperature     float64       `yaml:"temperature"`
	RateLimitCalls  int           `yaml:"rate_limit_calls"`
	RateWindow      time.Duration `yaml:"rate_window"`
}

// PipelineConfig holds the pipeline tuning knobs.
type PipelineConfig struct {
	Workers           int           `yaml:"workers"`
	FailureThreshold  float64       `yaml:"failure_threshold"`
	MinCoverage       float64       `yaml:"min_coverage"`
	Lookback          float64       `yaml:"lookback"`
	MaxAttempts       int           `yaml:"max_attempts"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	StructureTimeout  time.Duration `yaml:"structure_timeout"`
	ExtractionTimeout time.Duration `yaml:"extraction_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	Overwrite         bool          `yaml:"overwrite"`
	Embeddings        bool          `yaml:"embeddings"`
	// Concurrency is how many episodes a batch processes at once.
	Concurrency int `yaml:"concurrency"`
}

// StorageConfig selects and configures the graph store.
type StorageConfig struct {
	Backend string         `yaml:"backend"`
	Path    string         `yaml:"path"`
	Neo4j   neo4j.Config   `yaml:"neo4j"`
	Surreal surreal.Config `yaml:"surreal"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	aiCfg := ai.DefaultConfig()
	return &Config{
		AI: AIConfig{
			Provider:        aiCfg.Provider,
			Host:            aiCfg.Host,
			StructureModel:  aiCfg.StructureModel,
			ExtractionModel: aiCfg.ExtractionModel,
			Temperature:     aiCfg.Temperature,
			RateLimitCalls:  aiCfg.RateLimitCalls,
			RateWindow:      aiCfg.RateWindow,
		},
		Pipeline: PipelineConfig{
			Workers:           5,
			FailureThreshold:  0,
			MinCoverage:       0.9,
			Lookback:          2.0,
			MaxAttempts:       2,
			RetryDelay:        500 * time.Millisecond,
			StructureTimeout:  5 * time.Minute,
			ExtractionTimeout: 2 * time.Minute,
			WriteTimeout:      pipeline.DefaultWriteTimeout,
			Embeddings:        true,
			Concurrency:       2,
		},
		Storage: StorageConfig{
			Backend: BackendBadger,
			Path:    "./unitgraph.db",
			Neo4j: neo4j.Config{
				URI:      "neo4j://localhost:7687",
				Username: "neo4j",
			},
			Surreal: surreal.Config{
				URL:       "ws://localhost:8000/rpc",
				Namespace: "unitgraph",
				Database:  "graph",
				Username:  "root",
				AuthLevel: "root",
			},
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads a YAML file over the defaults. Unknown keys are an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse decodes YAML from r over the defaults and validates the result.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	var errs []error
	if err := c.AIConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.PipelineOptions(); err != nil {
		errs = append(errs, err)
	}
	if c.Pipeline.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("pipeline config: concurrency must be at least 1"))
	}
	switch strings.ToLower(c.Storage.Backend) {
	case BackendBadger:
		if c.Storage.Path == "" {
			errs = append(errs, errors.New("storage config: path is required for badger"))
		}
	case BackendNeo4j:
		if c.Storage.Neo4j.URI == "" {
			errs = append(errs, errors.New("storage config: neo4j.uri is required"))
		}
	case BackendSurreal:
		if err := c.Storage.Surreal.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("storage config: %w", err))
		}
	default:
		errs = append(errs, fmt.Errorf("storage config: %w: %q", ErrUnknownBackend, c.Storage.Backend))
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// AIConfig converts the ai section into an ai.Config.
func (c *Config) AIConfig() *ai.Config {
	return &ai.Config{
		Provider:        c.AI.Provider,
		Host:            c.AI.Host,
		APIKey:          c.AI.APIKey,
		StructureModel:  c.AI.StructureModel,
		ExtractionModel: c.AI.ExtractionModel,
		EmbeddingHost:   c.AI.EmbeddingHost,
		EmbeddingModel:  c.AI.EmbeddingModel,
		Temperature:     c.AI.Temperature,
		RateLimitCalls:  c.AI.RateLimitCalls,
		RateWindow:      c.AI.RateWindow,
	}
}

// PipelineOptions converts the pipeline section into options, checking each
// value the way pipeline.New would.
func (c *Config) PipelineOptions() ([]pipeline.Option, error) {
	p := c.Pipeline
	opts := []pipeline.Option{
		pipeline.WithWorkers(p.Workers),
		pipeline.WithFailureThreshold(p.FailureThreshold),
		pipeline.WithMinCoverage(p.MinCoverage),
		pipeline.WithLookback(p.Lookback),
		pipeline.WithMaxAttempts(p.MaxAttempts),
		pipeline.WithRetryDelay(p.RetryDelay),
		pipeline.WithStructureTimeout(p.StructureTimeout),
		pipeline.WithExtractionTimeout(p.ExtractionTimeout),
		pipeline.WithWriteTimeout(p.WriteTimeout),
		pipeline.WithOverwrite(p.Overwrite),
		pipeline.WithEmbeddings(p.Embeddings),
	}
	if err := pipeline.CheckOptions(opts...); err != nil {
		return nil, fmt.Errorf("pipeline config: %w", err)
	}
	return opts, nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("logging config: unknown level %q", s)
}
