// Package config loads and validates devrag configuration.
//
// Configuration is resolved in three layers, later layers winning:
// built-in defaults, the project config file (.devrag.yaml at the repo
// root), and DEVRAG_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	derrors "github.com/devinsight/devrag/internal/errors"
)

// ConfigFileName is the per-project configuration file.
const ConfigFileName = ".devrag.yaml"

// Duration is a time.Duration that unmarshals from YAML strings like
// "60s" or "2m".
type Duration time.Duration

// Std returns the standard library duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Defaults.
const (
	DefaultHistoryDepth = 25
	DefaultMaxFileSize  = 512 * 1024 // 512 KB
	DefaultMinFileSize  = 20         // tiny files add no search value
	DefaultMaxChunkSize = 2048       // bytes
	DefaultChunkOverlap = 256        // bytes
	DefaultIndexDirName = ".devrag/index"
	DefaultBatchSize    = 32
	DefaultTimeout      = 60 * time.Second
)

// Config represents the complete devrag configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Paths      PathsConfig      `yaml:"paths" json:"paths"`
	Walker     WalkerConfig     `yaml:"walker" json:"walker"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Index      IndexConfig      `yaml:"index" json:"index"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" json:"telemetry"`
	LogLevel   string           `yaml:"log_level" json:"log_level"`
}

// PathsConfig configures which paths to include and exclude.
type PathsConfig struct {
	Include []string `yaml:"include" json:"include"`
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// WalkerConfig configures repository content enumeration.
type WalkerConfig struct {
	// HistoryDepth is the number of recent commits to inspect.
	HistoryDepth int `yaml:"history_depth" json:"history_depth"`
	// MaxFileSize is the byte threshold above which files are skipped.
	MaxFileSize int64 `yaml:"max_file_size" json:"max_file_size"`
	// MinFileSize skips near-empty files.
	MinFileSize int64 `yaml:"min_file_size" json:"min_file_size"`
}

// ChunkingConfig configures text segmentation bounds.
type ChunkingConfig struct {
	// MaxChunkSize is the maximum chunk length in bytes.
	MaxChunkSize int `yaml:"max_chunk_size" json:"max_chunk_size"`
	// Overlap is the number of trailing bytes repeated at the start of
	// the next chunk.
	Overlap int `yaml:"overlap" json:"overlap"`
}

// EmbeddingsConfig configures the embedding provider.
// Backend selection is always explicit; there is no auto-detection from
// index data.
type EmbeddingsConfig struct {
	// Backend selects the provider: "hash" (default), "ollama", "openai".
	Backend string `yaml:"backend" json:"backend"`
	// Model is the encoder model name (semantic backends only).
	Model string `yaml:"model" json:"model"`
	// Dimensions for the hash embedder accumulator.
	Dimensions int `yaml:"dimensions" json:"dimensions"`
	// Bigrams enables token-bigram hashing in the hash embedder.
	Bigrams *bool `yaml:"bigrams" json:"bigrams"`
	// BatchSize for batch embedding requests.
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// Timeout per encoder request.
	Timeout Duration `yaml:"timeout" json:"timeout"`
	// OllamaHost is the Ollama API endpoint (default: http://localhost:11434).
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
}

// IndexConfig configures index persistence.
type IndexConfig struct {
	// Dir is the index directory, relative to the project root unless absolute.
	Dir string `yaml:"dir" json:"dir"`
}

// TelemetryConfig configures query metrics persistence.
type TelemetryConfig struct {
	// Enabled turns on the SQLite metrics sink.
	Enabled bool `yaml:"enabled" json:"enabled"`
	// DBPath is the metrics database path. Defaults to <index dir>/metrics.db.
	DBPath string `yaml:"db_path" json:"db_path"`
}

// BigramsEnabled reports the effective bigram flag (default true).
func (e EmbeddingsConfig) BigramsEnabled() bool {
	if e.Bigrams == nil {
		return true
	}
	return *e.Bigrams
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Walker: WalkerConfig{
			HistoryDepth: DefaultHistoryDepth,
			MaxFileSize:  DefaultMaxFileSize,
			MinFileSize:  DefaultMinFileSize,
		},
		Chunking: ChunkingConfig{
			MaxChunkSize: DefaultMaxChunkSize,
			Overlap:      DefaultChunkOverlap,
		},
		Embeddings: EmbeddingsConfig{
			Backend:   "hash",
			BatchSize: DefaultBatchSize,
			Timeout:   Duration(DefaultTimeout),
		},
		Index: IndexConfig{
			Dir: DefaultIndexDirName,
		},
		LogLevel: "info",
	}
}

// Load resolves configuration for the project rooted at root.
// A missing config file is not an error; defaults apply.
func Load(root string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(root, ConfigFileName)
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// defaults only
	case err != nil:
		return nil, derrors.New(derrors.ErrCodeConfigNotFound,
			fmt.Sprintf("read %s: %v", path, err), err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, derrors.ConfigError(
				fmt.Sprintf("parse %s: %v", path, err), err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies DEVRAG_* environment variables, the highest
// priority configuration layer.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DEVRAG_EMBEDDER"); v != "" {
		c.Embeddings.Backend = v
	}
	if v := os.Getenv("DEVRAG_EMBED_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("DEVRAG_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("DEVRAG_INDEX_DIR"); v != "" {
		c.Index.Dir = v
	}
	if v := os.Getenv("DEVRAG_HISTORY_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Walker.HistoryDepth = n
		}
	}
	if v := os.Getenv("DEVRAG_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate checks configuration invariants. Violations are fatal config
// errors; a build must abort before writing anything.
func (c *Config) Validate() error {
	switch c.Embeddings.Backend {
	case "hash", "ollama", "openai":
	default:
		return derrors.New(derrors.ErrCodeUnknownBackend,
			fmt.Sprintf("unknown embedding backend %q", c.Embeddings.Backend), nil).
			WithSuggestion(`set embeddings.backend to one of "hash", "ollama", "openai"`)
	}

	if c.Walker.HistoryDepth < 0 {
		return derrors.ConfigError("walker.history_depth must be >= 0", nil)
	}
	if c.Walker.MaxFileSize <= 0 {
		return derrors.ConfigError("walker.max_file_size must be positive", nil)
	}
	if c.Chunking.MaxChunkSize <= 0 {
		return derrors.ConfigError("chunking.max_chunk_size must be positive", nil)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.MaxChunkSize {
		return derrors.ConfigError("chunking.overlap must be in [0, max_chunk_size)", nil)
	}
	if c.Embeddings.Dimensions < 0 {
		return derrors.ConfigError("embeddings.dimensions must be >= 0", nil)
	}
	return nil
}

// IndexDir resolves the index directory against the project root.
func (c *Config) IndexDir(root string) string {
	if filepath.IsAbs(c.Index.Dir) {
		return c.Index.Dir
	}
	return filepath.Join(root, c.Index.Dir)
}

// MetricsDBPath resolves the telemetry database path.
func (c *Config) MetricsDBPath(root string) string {
	if c.Telemetry.DBPath != "" {
		if filepath.IsAbs(c.Telemetry.DBPath) {
			return c.Telemetry.DBPath
		}
		return filepath.Join(root, c.Telemetry.DBPath)
	}
	return filepath.Join(c.IndexDir(root), "metrics.db")
}

// Save writes the configuration to the project config file.
func (c *Config) Save(root string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(filepath.Join(root, ConfigFileName), data, 0o644)
}
