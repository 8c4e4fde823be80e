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

	"github.com/poiesic/recollect/config"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "recollect",
		Usage: "Temporal knowledge graph memory served over MCP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"RECOLLECT_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML configuration file",
				EnvVars: []string{"RECOLLECT_CONFIG"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the MCP server",
				Action: serveCommand,
				Flags: append(engineFlags(),
					&cli.StringFlag{
						Name:  "transport",
						Usage: "MCP transport (stdio, http)",
					},
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address for the http transport",
					},
				),
			},
			{
				Name:      "ingest",
				Usage:     "Queue episodes from a JSON Lines file and wait for them to be processed",
				ArgsUsage: "FILE (- for stdin)",
				Action:    ingestCommand,
				Flags:     engineFlags(),
			},
			{
				Name:      "search",
				Usage:     "Search the graph for nodes or facts",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: append(engineFlags(),
					&cli.BoolFlag{
						Name:  "facts",
						Usage: "Search facts instead of nodes",
					},
					&cli.StringSliceFlag{
						Name:  "group",
						Usage: "Group to search (repeatable, default global)",
					},
					&cli.IntFlag{
						Name:  "max",
						Usage: "Maximum number of results",
						Value: 10,
					},
					&cli.StringFlag{
						Name:  "center",
						Usage: "UUID of an entity whose neighbours are ranked higher",
					},
					&cli.StringFlag{
						Name:  "entity",
						Usage: "Only return nodes with this entity type",
					},
					&cli.BoolFlag{
						Name:    "verbose",
						Aliases: []string{"v"},
						Usage:   "Log each search stage at debug level",
					},
				),
			},
			{
				Name:   "reembed",
				Usage:  "Recompute the embeddings of every entity and fact",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "embedding-api-key",
						Usage:   "Embedding service API key",
						EnvVars: []string{"EMBEDDER_API_KEY"},
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N records",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Initial delay between retries",
						Value: defaultRetryDelay,
					},
					&cli.BoolFlag{
						Name:  "skip-entities",
						Usage: "Do not reembed entities",
					},
					&cli.BoolFlag{
						Name:  "skip-facts",
						Usage: "Do not reembed facts",
					},
				},
			},
		},
	}
}

// engineFlags are shared by every command that opens a full engine.
func engineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to BadgerDB database directory",
			EnvVars: []string{"RECOLLECT_DB"},
		},
		&cli.StringFlag{
			Name:    "group-id",
			Usage:   "Namespace for the graph (random when unset)",
			EnvVars: []string{"RECOLLECT_NAMESPACE"},
		},
		&cli.StringFlag{
			Name:    "privileged-group-id",
			Usage:   "Group allowed to clear the whole graph",
			EnvVars: []string{"MCP_ROOT_GROUP_ID"},
		},
		&cli.BoolFlag{
			Name:  "destroy-graph",
			Usage: "Delete all graph data on startup",
		},
		&cli.StringFlag{
			Name:  "entities-dir",
			Usage: "Directory containing entity type definitions",
		},
		&cli.StringSliceFlag{
			Name:  "entities",
			Usage: "Comma-separated subdirectories of --entities-dir to load (default all)",
		},
		&cli.BoolFlag{
			Name:  "include-builtin-entities",
			Usage: "Load the built-in entity types",
			Value: true,
		},
		&cli.BoolFlag{
			Name:    "use-custom-entities",
			Usage:   "Extract using the registered entity types",
			Value:   true,
			EnvVars: []string{"MCP_ROOT_USE_CUSTOM_ENTITIES"},
		},
		&cli.BoolFlag{
			Name:  "watch-entities",
			Usage: "Reload entity types when --entities-dir changes",
		},
		&cli.IntFlag{
			Name:  "embed-workers",
			Usage: "Size of the embedding worker pool",
		},
		&cli.StringFlag{
			Name:    "model",
			Usage:   "Extraction model name",
			EnvVars: []string{"MODEL_NAME"},
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Extraction service host URL",
			EnvVars: []string{"OPENAI_BASE_URL"},
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "Extraction service API key",
			EnvVars: []string{"OPENAI_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "embedder-base-url",
			Usage:   "Embedding service host URL (defaults to --base-url)",
			EnvVars: []string{"EMBEDDER_BASE_URL"},
		},
		&cli.StringFlag{
			Name:    "embedder-model",
			Usage:   "Embedding model name",
			EnvVars: []string{"EMBEDDER_MODEL"},
		},
		&cli.StringFlag{
			Name:    "embedder-api-key",
			Usage:   "Embedding service API key (defaults to --api-key)",
			EnvVars: []string{"EMBEDDER_API_KEY"},
		},
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))
	level, err := config.ParseLogLevel(levelStr)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", levelStr, err)
	}
	configureLogger(level)
	return nil
}

func configureLogger(level slog.Level) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

// loadConfig reads the --config file, if any, and overlays every flag the
// user set explicitly. Flags left at their defaults do not override the file.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	applyFlags(c, cfg)

	// A log level from the file applies unless the flag was given.
	if !c.IsSet("log-level") && cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		configureLogger(level)
	}
	return cfg, nil
}

func applyFlags(c *cli.Context, cfg *config.Config) {
	str := func(name string, dst *string) {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if c.IsSet(name) {
			*dst = c.Bool(name)
		}
	}

	str("db", &cfg.DBPath)
	str("group-id", &cfg.Namespace)
	str("privileged-group-id", &cfg.PrivilegedNamespace)
	str("log-level", &cfg.LogLevel)
	boolean("destroy-graph", &cfg.DestroyGraph)
	str("transport", &cfg.Server.Transport)
	str("addr", &cfg.Server.Addr)

	str("entities-dir", &cfg.Entities.Dir)
	if c.IsSet("entities") {
		cfg.Entities.Include = splitList(c.StringSlice("entities"))
	}
	boolean("include-builtin-entities", &cfg.Entities.IncludeBuiltin)
	boolean("use-custom-entities", &cfg.Entities.UseCustom)
	boolean("watch-entities", &cfg.Entities.Watch)

	if c.IsSet("embed-workers") {
		cfg.Ingestion.EmbedWorkers = c.Int("embed-workers")
	}

	str("model", &cfg.AI.ExtractorModel)
	str("base-url", &cfg.AI.ExtractorHost)
	str("api-key", &cfg.AI.APIKey)
	str("embedder-base-url", &cfg.AI.EmbeddingHost)
	str("embedder-model", &cfg.AI.EmbeddingModel)
	str("embedder-api-key", &cfg.AI.EmbeddingAPIKey)

	// The embedder shares the extraction host unless given its own.
	if c.IsSet("base-url") && !c.IsSet("embedder-base-url") {
		cfg.AI.EmbeddingHost = cfg.AI.ExtractorHost
	}
}

// splitList flattens repeated and comma-separated values, dropping blanks.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
