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


package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
	"github.com/poiesic/recollect/ai"
	"github.com/poiesic/recollect/guard"
)

// Transport names accepted by the server.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config is the complete server configuration.
type Config struct {
	// DBPath is the BadgerDB directory.
	DBPath string `toml:"db_path"`

	// Namespace identifies this server. Only the privileged namespace may
	// clear the graph. Empty means a random graph_xxxxxxxx name.
	Namespace string `toml:"namespace"`

	// PrivilegedNamespace is the namespace allowed to clear the graph.
	PrivilegedNamespace string `toml:"privileged_namespace"`

	// DestroyGraph wipes every namespace before serving.
	DestroyGraph bool `toml:"destroy_graph"`

	LogLevel string `toml:"log_level"`

	Server    ServerConfig    `toml:"server"`
	Entities  EntitiesConfig  `toml:"entities"`
	Ingestion IngestionConfig `toml:"ingestion"`
	AI        AIConfig        `toml:"ai"`
}

// ServerConfig selects how MCP clients connect.
type ServerConfig struct {
	Transport string `toml:"transport"`
	// Addr is the listen address for the http transport.
	Addr string `toml:"addr"`
}

// EntitiesConfig controls which entity schemas are loaded.
type EntitiesConfig struct {
	// Dir is a directory of YAML/JSON schema files. Optional.
	Dir string `toml:"dir"`
	// Include restricts loading to these subdirectories of Dir.
	Include []string `toml:"include"`
	// IncludeBuiltin registers the built-in types (Requirement, Preference, Procedure).
	IncludeBuiltin bool `toml:"include_builtin"`
	// UseCustom offers the registered types to the extractor. When false
	// the schemas are still served but extraction is untyped.
	UseCustom bool `toml:"use_custom"`
	// Watch reloads Dir when its files change.
	Watch bool `toml:"watch"`
}

// IngestionConfig tunes the episode workers.
type IngestionConfig struct {
	// EmbedWorkers sizes the pool that embeds an episode's graph. Zero
	// means half the CPUs.
	EmbedWorkers int `toml:"embed_workers"`
	// ShutdownTimeout bounds how long in-flight episodes may take to
	// finish on shutdown, as a Go duration string.
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

// AIConfig mirrors ai.Config in file form.
type AIConfig struct {
	ExtractorHost      string `toml:"extractor_host"`
	ExtractorModel     string `toml:"extractor_model"`
	APIKey             string `toml:"api_key"`
	EmbeddingHost      string `toml:"embedding_host"`
	EmbeddingModel     string `toml:"embedding_model"`
	EmbeddingAPIKey    string `toml:"embedding_api_key"`
	ExtractionAttempts int    `toml:"extraction_attempts"`
}

// Default returns the built-in configuration.
func Default() *Config {
	aiDefaults := ai.DefaultConfig()
	return &Config{
		DBPath:              "recollect.db",
		PrivilegedNamespace: guard.DefaultPrivilegedNamespace,
		LogLevel:            "info",
		Server: ServerConfig{
			Transport: TransportStdio,
			Addr:      ":8000",
		},
		Entities: EntitiesConfig{
			IncludeBuiltin: true,
			UseCustom:      true,
		},
		Ingestion: IngestionConfig{
			ShutdownTimeout: "30s",
		},
		AI: AIConfig{
			ExtractorHost:      aiDefaults.ExtractorHost,
			ExtractorModel:     aiDefaults.ExtractorModel,
			EmbeddingHost:      aiDefaults.EmbeddingHost,
			EmbeddingModel:     aiDefaults.EmbeddingModel,
			ExtractionAttempts: aiDefaults.ExtractionAttempts,
		},
	}
}

// Load returns Default overlaid with the TOML file at path. An empty path
// returns the defaults. Unknown keys in the file are an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("config %s: %s", path, strict.String())
		}
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve fills in values decided at startup.
func (c *Config) Resolve() {
	c.Namespace = strings.TrimSpace(c.Namespace)
	if c.Namespace == "" {
		c.Namespace = RandomNamespace()
	}
	if c.PrivilegedNamespace == "" {
		c.PrivilegedNamespace = guard.DefaultPrivilegedNamespace
	}
	c.Server.Transport = strings.ToLower(strings.TrimSpace(c.Server.Transport))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
}

// Validate checks the configuration, including the AI settings.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return ErrDBPathRequired
	}
	switch c.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidTransport, c.Server.Transport)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Ingestion.EmbedWorkers < 0 {
		return errors.New("ingestion.embed_workers must not be negative")
	}
	if _, err := c.ShutdownTimeout(); err != nil {
		return err
	}
	if err := c.AIConfig().Validate(); err != nil {
		return err
	}
	return nil
}

// ShutdownTimeout parses Ingestion.ShutdownTimeout. Empty means 30s.
func (c *Config) ShutdownTimeout() (time.Duration, error) {
	if c.Ingestion.ShutdownTimeout == "" {
		return 30 * time.Second, nil
	}
	d, err := time.ParseDuration(c.Ingestion.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("ingestion.shutdown_timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("ingestion.shutdown_timeout must be positive, got %s", d)
	}
	return d, nil
}

// AIConfig builds the ai.Config for the provider.
func (c *Config) AIConfig() *ai.Config {
	var opts []ai.ConfigOption
	set := func(v string, opt func(string) ai.ConfigOption) {
		if v != "" {
			opts = append(opts, opt(v))
		}
	}
	set(c.AI.ExtractorHost, ai.WithExtractorHost)
	set(c.AI.ExtractorModel, ai.WithExtractorModel)
	set(c.AI.APIKey, ai.WithAPIKey)
	set(c.AI.EmbeddingHost, ai.WithEmbeddingHost)
	set(c.AI.EmbeddingModel, ai.WithEmbeddingModel)
	set(c.AI.EmbeddingAPIKey, ai.WithEmbeddingAPIKey)
	if c.AI.ExtractionAttempts != 0 {
		opts = append(opts, ai.WithExtractionAttempts(c.AI.ExtractionAttempts))
	}
	return ai.NewConfig(opts...)
}

// RandomNamespace returns a fresh graph_xxxxxxxx namespace name.
func RandomNamespace() string {
	id := uuid.New()
	return fmt.Sprintf("graph_%x", id[:4])
}

// ParseLogLevel maps debug, info, warn or error onto a slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: got %q", ErrInvalidLogLevel, s)
	}
}
