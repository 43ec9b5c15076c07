// Package file loads and persists the recall configuration as TOML at
// ~/.recall/config.toml.
package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// DefaultFileName is the config file name inside the config directory.
const DefaultFileName = "config.toml"

// Config is the full application configuration.
type Config struct {
	// Store locates the personal knowledge store.
	Store StoreConfig `toml:"store"`

	// Search tunes the retrieval engine.
	Search SearchConfig `toml:"search"`

	// Cache tunes the semantic-aware query cache.
	Cache CacheConfig `toml:"cache"`

	// Embedding selects and configures the embedding backend.
	Embedding EmbeddingConfig `toml:"embedding"`

	// Telemetry configures the write-only search trace store.
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// StoreConfig locates the knowledge store on disk.
type StoreConfig struct {
	TurnsDir        string   `toml:"turns_dir"`
	KnowledgeRoots  []string `toml:"knowledge_roots"`
	PreferencesPath string   `toml:"preferences_path"`
}

// SearchConfig tunes the retrieval engine.
type SearchConfig struct {
	TurnLookback        int `toml:"turn_lookback"`
	TopK                int `toml:"top_k"`
	EmbedTimeoutSeconds int `toml:"embed_timeout_seconds"`
}

// CacheConfig tunes the query cache.
type CacheConfig struct {
	Dir                 string  `toml:"dir"`
	TTLHours            uint32  `toml:"ttl_hours"`
	SimilarityThreshold float64 `toml:"similarity_threshold"`
}

// EmbeddingConfig selects the embedding backend. Provider "" disables
// semantic scoring entirely; "ollama" and "openai" are supported.
type EmbeddingConfig struct {
	Provider string  `toml:"provider"`
	BaseURL  string  `toml:"base_url"`
	Model    string  `toml:"model"`
	APIKey   string  `toml:"api_key"`
	RPS      float64 `toml:"requests_per_second"`
}

// TelemetryConfig configures search trace recording.
type TelemetryConfig struct {
	Enabled bool   `toml:"enabled"`
	DataDir string `toml:"data_dir"`
}

// DefaultConfigDir returns ~/.recall.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".recall"), nil
}

// Default returns the built-in configuration, rooted under configDir.
func Default(configDir string) Config {
	return Config{
		Store: StoreConfig{
			TurnsDir:       filepath.Join(configDir, "turns"),
			KnowledgeRoots: []string{filepath.Join(configDir, "knowledge")},
		},
		Search: SearchConfig{
			TurnLookback:        50,
			TopK:                15,
			EmbedTimeoutSeconds: 10,
		},
		Cache: CacheConfig{
			Dir:                 filepath.Join(configDir, "cache"),
			TTLHours:            24,
			SimilarityThreshold: 0.65,
		},
		Telemetry: TelemetryConfig{
			Enabled: true,
			DataDir: filepath.Join(configDir, "data"),
		},
	}
}

// Load reads the config from configDir, filling defaults for anything
// unset. A missing file yields pure defaults; a malformed file is an
// error (a silently ignored config is worse than a loud one).
func Load(configDir string) (Config, error) {
	if configDir == "" {
		dir, err := DefaultConfigDir()
		if err != nil {
			return Config{}, err
		}
		configDir = dir
	}

	cfg := Default(configDir)

	data, err := os.ReadFile(filepath.Join(configDir, DefaultFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg, configDir)
	return cfg, nil
}

// Save writes the config to configDir, creating it if needed.
func Save(configDir string, cfg Config) error {
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	path := filepath.Join(configDir, DefaultFileName)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func applyDefaults(cfg *Config, configDir string) {
	def := Default(configDir)

	if cfg.Store.TurnsDir == "" {
		cfg.Store.TurnsDir = def.Store.TurnsDir
	}
	if len(cfg.Store.KnowledgeRoots) == 0 {
		cfg.Store.KnowledgeRoots = def.Store.KnowledgeRoots
	}
	if cfg.Search.TurnLookback <= 0 {
		cfg.Search.TurnLookback = def.Search.TurnLookback
	}
	if cfg.Search.TopK <= 0 {
		cfg.Search.TopK = def.Search.TopK
	}
	if cfg.Search.EmbedTimeoutSeconds <= 0 {
		cfg.Search.EmbedTimeoutSeconds = def.Search.EmbedTimeoutSeconds
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = def.Cache.Dir
	}
	if cfg.Cache.TTLHours == 0 {
		cfg.Cache.TTLHours = def.Cache.TTLHours
	}
	if cfg.Cache.SimilarityThreshold <= 0 {
		cfg.Cache.SimilarityThreshold = def.Cache.SimilarityThreshold
	}
	if cfg.Telemetry.DataDir == "" {
		cfg.Telemetry.DataDir = def.Telemetry.DataDir
	}
}
