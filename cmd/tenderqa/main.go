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
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/tenderqa"
	"github.com/poiesic/tenderqa/config"
	"github.com/poiesic/tenderqa/records"
	"github.com/poiesic/tenderqa/source"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "tenderqa",
		Usage: "Answer questions about a tender dataset",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML configuration file",
				EnvVars: []string{"TENDERQA_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "source",
				Aliases: []string{"s"},
				Usage:   "Dataset location: a CSV, XLSX or SQLite file, or a CSV URL",
			},
			&cli.StringFlag{
				Name:  "kind",
				Usage: "Dataset format (csv, xlsx, sqlite); detected from the location when unset",
			},
			&cli.StringFlag{
				Name:  "sheet",
				Usage: "XLSX worksheet to read",
			},
			&cli.StringFlag{
				Name:  "table",
				Usage: "SQLite table to read",
			},
			&cli.StringFlag{
				Name:  "header",
				Usage: "Header row handling (auto, present, absent)",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "OpenAI-compatible service host URL for embeddings and generation",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name",
			},
			&cli.StringFlag{
				Name:  "generator-model",
				Usage: "Generative model name",
			},
			&cli.StringFlag{
				Name:    "api-token",
				Usage:   "Bearer token for the AI service",
				EnvVars: []string{"TENDERQA_API_TOKEN"},
			},
			&cli.IntFlag{
				Name:  "top-k",
				Usage: "Number of records retrieved by semantic search",
			},
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "How long a built index is served before the dataset is fetched again",
			},
			&cli.BoolFlag{
				Name:  "keyword-assist",
				Usage: "Let the generative model suggest filter values",
			},
			&cli.StringFlag{
				Name:  "cache-dir",
				Usage: "Directory for the embedding cache; in memory when unset",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ask",
				Usage:     "Answer a single question",
				ArgsUsage: "QUESTION...",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "explain",
						Usage: "Print how the question was routed",
					},
				},
			},
			{
				Name:   "chat",
				Usage:  "Ask questions interactively",
				Action: chatCommand,
			},
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address",
					},
					&cli.DurationFlag{
						Name:  "session-idle",
						Usage: "Drop sessions idle for longer than this",
					},
				},
			},
			{
				Name:   "index",
				Usage:  "Build the index once and print its status",
				Action: indexCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records sent to the embedder per call",
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Number of embedding calls run concurrently",
					},
				},
			},
			{
				Name:   "config",
				Usage:  "Print the effective configuration as TOML",
				Action: configCommand,
			},
		},
	}
}

// loadConfig reads --config over the defaults and applies flags that were
// set explicitly.
func loadConfig(c *cli.Context) (*config.File, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	setString := func(name string, dst *string) {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	setString("source", &cfg.Source.Location)
	setString("kind", &cfg.Source.Kind)
	setString("sheet", &cfg.Source.Sheet)
	setString("table", &cfg.Source.Table)
	setString("header", &cfg.Source.Header)
	setString("host", &cfg.AI.Host)
	setString("embedding-model", &cfg.AI.EmbeddingModel)
	setString("generator-model", &cfg.AI.GeneratorModel)
	setString("api-token", &cfg.AI.APIToken)
	setString("cache-dir", &cfg.Cache.Dir)
	setString("addr", &cfg.Server.Addr)

	if c.IsSet("host") {
		// --host replaces both endpoints, including ones set in the file.
		cfg.AI.EmbeddingHost, cfg.AI.GeneratorHost = "", ""
	}
	if c.IsSet("top-k") {
		cfg.Engine.TopK = c.Int("top-k")
	}
	if c.IsSet("ttl") {
		cfg.Engine.TTL = config.Duration(c.Duration("ttl"))
	}
	if c.IsSet("keyword-assist") {
		cfg.Engine.KeywordAssist = c.Bool("keyword-assist")
	}
	if c.IsSet("batch-size") {
		cfg.Engine.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("pool-size") {
		cfg.Engine.PoolSize = c.Int("pool-size")
	}
	if c.IsSet("session-idle") {
		cfg.Server.SessionIdle = config.Duration(c.Duration("session-idle"))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// engineOptions translates cfg into engine options.
func engineOptions(cfg *config.File) ([]tenderqa.EngineOption, error) {
	header, err := cfg.HeaderMode()
	if err != nil {
		return nil, err
	}

	opts := []tenderqa.EngineOption{
		tenderqa.WithAIConfig(cfg.AIConfig()),
		tenderqa.WithTopK(cfg.Engine.TopK),
		tenderqa.WithTTL(time.Duration(cfg.Engine.TTL)),
		tenderqa.WithKeywordAssist(cfg.Engine.KeywordAssist),
		tenderqa.WithBatchSize(cfg.Engine.BatchSize),
		tenderqa.WithPoolSize(cfg.Engine.PoolSize),
		tenderqa.WithEmbeddingCacheTTL(time.Duration(cfg.Cache.EntryTTL)),
		tenderqa.WithLoadOptions(records.WithHeader(header)),
	}
	if cfg.Cache.Dir != "" {
		opts = append(opts, tenderqa.WithEmbeddingCacheDir(cfg.Cache.Dir))
	}
	return opts, nil
}

// openEngine creates an engine over the configured data source.
func openEngine(cfg *config.File, extra ...tenderqa.EngineOption) (*tenderqa.Engine, error) {
	if cfg.Source.Location == "" {
		return nil, fmt.Errorf("a dataset location is required (--source or [source] location)")
	}
	src, err := source.Open(cfg.SourceConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}

	opts, err := engineOptions(cfg)
	if err != nil {
		return nil, err
	}
	engine, err := tenderqa.NewEngine(src, append(opts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	return engine, nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
