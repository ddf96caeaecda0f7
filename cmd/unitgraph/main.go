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


package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/unitgraph"
	"github.com/poiesic/unitgraph/batch"
	"github.com/poiesic/unitgraph/config"
	"github.com/poiesic/unitgraph/reembed"
	"github.com/poiesic/unitgraph/storage"
	"github.com/urfave/cli/v2"
)

const (
	metaConfig = "config"
	metaLogger = "logger"
)

// openDatabase is replaced in tests to inject collaborators.
var openDatabase = func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*unitgraph.Database, error) {
	return unitgraph.Open(ctx, cfg, unitgraph.WithLogger(logger))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	var cleanup func() error
	return &cli.App{
		Name:  "unitgraph",
		Usage: "Turn podcast transcripts into a knowledge graph of meaningful units",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{"UNITGRAPH_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to the Badger graph directory (overrides storage.path)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Also write JSON logs to this file",
			},
		},
		Before: func(c *cli.Context) error {
			var err error
			cleanup, err = setup(c)
			return err
		},
		After: func(c *cli.Context) error {
			if cleanup != nil {
				return cleanup()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "process",
				Usage:     "Process transcript files (SRT, VTT or JSON) into episode graphs",
				ArgsUsage: "FILE...",
				Action:    processCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "id",
						Usage: "Episode id (single file only; defaults to an id derived from the path)",
					},
					&cli.StringFlag{
						Name:  "title",
						Usage: "Episode title (single file only; defaults to the file name)",
					},
					&cli.StringFlag{
						Name:  "source",
						Usage: "Podcast or channel name",
					},
					&cli.StringSliceFlag{
						Name:  "speaker",
						Usage: "Speaker hint LABEL=Name, repeatable",
					},
					&cli.BoolFlag{
						Name:  "overwrite",
						Usage: "Replace an already committed episode",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Episodes processed at once (overrides pipeline.concurrency)",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Extraction workers per episode (overrides pipeline.workers)",
					},
					&cli.BoolFlag{
						Name:  "no-embeddings",
						Usage: "Skip unit embeddings",
					},
					&cli.BoolFlag{
						Name:    "quiet",
						Aliases: []string{"q"},
						Usage:   "Do not print progress",
					},
				},
			},
			{
				Name:   "show",
				Usage:  "Show a committed episode",
				Action: showCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Episode id",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "entities",
						Usage: "List entities",
					},
					&cli.BoolFlag{
						Name:  "units",
						Usage: "List units",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Find the units of an episode that answer a query",
				ArgsUsage: "QUERY...",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Episode id",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of units to return",
						Value: 5,
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Recompute unit embeddings of committed episodes",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:     "id",
						Usage:    "Episode id, repeatable",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of units in each embedding call",
						Value: 32,
					},
					&cli.IntFlag{
						Name:  "max-attempts",
						Usage: "Maximum attempts for each embedding call and write",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:   "delete",
				Usage:  "Delete an episode subgraph, committed or not",
				Action: deleteCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Episode id",
						Required: true,
					},
				},
			},
		},
	}
}

// setup loads the configuration, applies global flag overrides and installs
// the logger.
func setup(c *cli.Context) (func() error, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if db := c.String("db"); db != "" {
		cfg.Storage.Backend = config.BackendBadger
		cfg.Storage.Path = db
	}
	if c.IsSet("log-level") {
		cfg.Logging.Level = c.String("log-level")
	}
	if c.IsSet("log-file") {
		cfg.Logging.File = c.String("log-file")
	}

	level, err := config.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", cfg.Logging.Level)
	}
	logger, cleanup, err := setupLogger(c.App.ErrWriter, cfg.Logging.File, level)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]interface{}{}
	}
	c.App.Metadata[metaConfig] = cfg
	c.App.Metadata[metaLogger] = logger
	return cleanup, nil
}

func appConfig(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata[metaConfig].(*config.Config); ok {
		return cfg
	}
	return config.Default()
}

func appLogger(c *cli.Context) *slog.Logger {
	if logger, ok := c.App.Metadata[metaLogger].(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

func processCommand(c *cli.Context) error {
	files := c.Args().Slice()
	if len(files) == 0 {
		return errors.New("at least one transcript file is required")
	}
	if len(files) > 1 && (c.IsSet("id") || c.IsSet("title")) {
		return errors.New("--id and --title need exactly one file")
	}
	hints, err := parseSpeakerHints(c.StringSlice("speaker"))
	if err != nil {
		return err
	}

	cfg := appConfig(c)
	if c.IsSet("concurrency") {
		cfg.Pipeline.Concurrency = c.Int("concurrency")
	}
	if c.IsSet("workers") {
		cfg.Pipeline.Workers = c.Int("workers")
	}
	if c.Bool("overwrite") {
		cfg.Pipeline.Overwrite = true
	}
	if c.Bool("no-embeddings") {
		cfg.Pipeline.Embeddings = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := appLogger(c)
	db, err := openDatabase(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	p, err := db.NewPipeline()
	if err != nil {
		return err
	}
	defer p.Release()

	jobs := batch.JobsFromFiles(files)
	for i := range jobs {
		if c.IsSet("id") {
			jobs[i].Metadata.ID = c.String("id")
		}
		if c.IsSet("title") {
			jobs[i].Metadata.Title = c.String("title")
		}
		if c.IsSet("source") {
			jobs[i].Metadata.Source = c.String("source")
		}
		jobs[i].Metadata.SpeakerHints = hints
	}

	var opts []batch.Option
	if !c.Bool("quiet") {
		opts = append(opts, batch.WithProgress(batch.NewProgressTracker(c.App.ErrWriter, len(jobs))))
	}
	runner, err := db.NewBatchRunner(p, opts...)
	if err != nil {
		return err
	}

	summary, err := runner.Run(c.Context, jobs)
	if err != nil {
		return err
	}

	out := c.App.Writer
	for _, jr := range summary.Results {
		for _, issue := range jr.Issues {
			logger.Warn("transcript repaired", "path", jr.Job.Path, "issue", issue)
		}
		if jr.Err != nil {
			fmt.Fprintf(out, "REJECTED  %s  %s: %v\n", jr.Job.Metadata.ID, jr.Job.Path, jr.Err)
			continue
		}
		s := jr.Result.Stats
		fmt.Fprintf(out, "COMMITTED %s  %s: %d units, %d entities, %d relationships, %d quotes, %d insights in %s\n",
			jr.Job.Metadata.ID, jr.Job.Path, s.MeaningfulUnitsCreated, s.EntitiesResolved, s.Relationships,
			s.Quotes, s.Insights, jr.Result.Duration.Round(time.Millisecond))
	}
	if summary.Rejected > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d episodes rejected", summary.Rejected, len(jobs)), 1)
	}
	return nil
}

func parseSpeakerHints(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	hints := make(map[string]string, len(values))
	for _, v := range values {
		label, name, ok := strings.Cut(v, "=")
		label, name = strings.TrimSpace(label), strings.TrimSpace(name)
		if !ok || label == "" || name == "" {
			return nil, fmt.Errorf("invalid speaker hint %q: want LABEL=Name", v)
		}
		hints[label] = name
	}
	return hints, nil
}

func showCommand(c *cli.Context) error {
	ctx := c.Context
	id := c.String("id")

	db, err := openDatabase(ctx, appConfig(c), appLogger(c))
	if err != nil {
		return err
	}
	defer db.Close()
	store := db.Store()

	ep, err := store.GetEpisode(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return cli.Exit(fmt.Sprintf("episode %s not found", id), 1)
	}
	if err != nil {
		return err
	}
	units, err := store.ListUnits(ctx, id)
	if err != nil {
		return err
	}
	entities, err := store.ListEntities(ctx, id)
	if err != nil {
		return err
	}
	rels, err := store.ListRelationships(ctx, id)
	if err != nil {
		return err
	}
	quotes, err := store.ListQuotes(ctx, id)
	if err != nil {
		return err
	}
	insights, err := store.ListInsights(ctx, id)
	if err != nil {
		return err
	}

	out := c.App.Writer
	fmt.Fprintf(out, "Episode:   %s\n", ep.ID)
	fmt.Fprintf(out, "Title:     %s\n", ep.Title)
	if ep.Source != "" {
		fmt.Fprintf(out, "Source:    %s\n", ep.Source)
	}
	fmt.Fprintf(out, "Status:    %s (%s)\n", ep.Status, ep.CommittedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "Segments:  %d\n", ep.SegmentCount)
	fmt.Fprintf(out, "Coverage:  %.1f%%\n", ep.Coverage*100)
	if len(ep.Themes) > 0 {
		fmt.Fprintf(out, "Themes:    %s\n", strings.Join(ep.Themes, ", "))
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Units", "Entities", "Relationships", "Quotes", "Insights"},
		[][]string{{
			strconv.Itoa(len(units)), strconv.Itoa(len(entities)), strconv.Itoa(len(rels)),
			strconv.Itoa(len(quotes)), strconv.Itoa(len(insights)),
		}},
		0, 1, 2, 3, 4,
	))

	if c.Bool("units") {
		rows := make([][]string, len(units))
		for i, u := range units {
			rows[i] = []string{
				strconv.Itoa(u.Index),
				formatClock(u.StartTime),
				formatClock(u.EndTime),
				u.UnitType,
				strings.Join(u.Speakers, ", "),
				u.Summary,
			}
		}
		fmt.Fprintln(out, renderTable([]string{"#", "Start", "End", "Type", "Speakers", "Summary"}, rows, 0))
	}
	if c.Bool("entities") {
		rows := make([][]string, len(entities))
		for i, e := range entities {
			rows[i] = []string{e.Type, e.Value, strconv.Itoa(e.Mentions), strconv.FormatFloat(e.Confidence, 'f', 2, 64)}
		}
		fmt.Fprintln(out, renderTable([]string{"Type", "Value", "Mentions", "Confidence"}, rows, 2, 3))
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return errors.New("a query is required")
	}

	db, err := openDatabase(c.Context, appConfig(c), appLogger(c))
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := db.NewSearcher()
	if err != nil {
		return err
	}
	id := c.String("id")
	hits, err := searcher.FindUnits(c.Context, id, query, c.Int("limit"))
	if errors.Is(err, storage.ErrNotFound) {
		return cli.Exit(fmt.Sprintf("episode %s not found", id), 1)
	}
	if err != nil {
		return err
	}

	rows := make([][]string, len(hits))
	for i, h := range hits {
		rows[i] = []string{
			strconv.FormatFloat(float64(h.Score), 'f', 3, 32),
			formatClock(h.Unit.StartTime),
			strconv.Itoa(h.Unit.Index),
			strings.Join(h.Entities, ", "),
			h.Unit.Summary,
		}
	}
	fmt.Fprintln(c.App.Writer, renderTable([]string{"Score", "Start", "Unit", "Entities", "Summary"}, rows, 0, 2))
	return nil
}

func reembedCommand(c *cli.Context) error {
	cfg := &reembed.Config{
		BatchSize:   c.Int("batch-size"),
		MaxAttempts: c.Int("max-attempts"),
		RetryDelay:  c.Duration("retry-delay"),
	}
	if cfg.MaxAttempts <= 0 {
		return fmt.Errorf("max-attempts must be greater than 0")
	}

	db, err := openDatabase(c.Context, appConfig(c), appLogger(c))
	if err != nil {
		return err
	}
	defer db.Close()

	r, err := db.NewReembedder(cfg, c.App.Writer)
	if err != nil {
		return err
	}
	_, err = r.Run(c.Context, c.StringSlice("id")...)
	return err
}

func deleteCommand(c *cli.Context) error {
	db, err := openDatabase(c.Context, appConfig(c), appLogger(c))
	if err != nil {
		return err
	}
	defer db.Close()

	id := c.String("id")
	n, err := db.DeleteEpisode(c.Context, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Deleted %d records of episode %s\n", n, id)
	return nil
}

// formatClock renders seconds as H:MM:SS.
func formatClock(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	h := int(d / time.Hour)
	m := int(d%time.Hour) / int(time.Minute)
	s := int(d%time.Minute) / int(time.Second)
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}
