// Package cli provides the cobra command surface for recall.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/recall-cli/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/recall-cli/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/recall-cli/internal/adapters/driven/memoryfs"
	storefile "github.com/custodia-labs/recall-cli/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/recall-cli/internal/adapters/driven/telemetry/sqlite"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/core/services"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

var (
	flagVerbose   bool
	flagConfigDir string
	flagSession   string

	cfg           file.Config
	searchEngine  *services.Engine
	cacheRegistry *services.SessionCacheRegistry
	telemetry     driven.SearchTelemetry
)

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Memory retrieval and query caching for conversational assistants",
	Long: `Recall ranks and returns the most relevant documents from a personal
knowledge store (conversation turns, knowledge notes, preferences, research
caches) and remembers query results so that semantically similar follow-up
queries are served without recomputation.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: teardown,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose logging to stderr")
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "config directory (default ~/.recall)")
	rootCmd.PersistentFlags().StringVar(&flagSession, "session", "default", "session namespace for cache and telemetry")
}

// setup loads configuration and wires the services.
func setup(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(flagVerbose)

	var err error
	cfg, err = file.Load(flagConfigDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fs := memoryfs.New(memoryfs.Config{
		TurnsDir:        cfg.Store.TurnsDir,
		KnowledgeRoots:  cfg.Store.KnowledgeRoots,
		PreferencesPath: cfg.Store.PreferencesPath,
	})

	embedder := buildEmbedder()

	var engineOpts []services.EngineOption
	if cfg.Telemetry.Enabled {
		store, err := sqlite.NewStore(cfg.Telemetry.DataDir)
		if err != nil {
			logger.Warn("Telemetry store unavailable: %v", err)
		} else {
			telemetry = store
			engineOpts = append(engineOpts, services.WithTelemetry(store))
		}
	}
	engineOpts = append(engineOpts, services.WithSessionID(flagSession))

	searchEngine = services.NewEngine(
		fs,
		embedder,
		cfg.Search.TurnLookback,
		time.Duration(cfg.Search.EmbedTimeoutSeconds)*time.Second,
		engineOpts...,
	)

	cacheRepo, err := storefile.NewCacheStoreRepo(cfg.Cache.Dir)
	if err != nil {
		return fmt.Errorf("cache store: %w", err)
	}
	cacheRegistry = services.NewSessionCacheRegistry(
		cacheRepo,
		embedder,
		services.WithTTLHours(cfg.Cache.TTLHours),
		services.WithSimilarityThreshold(cfg.Cache.SimilarityThreshold),
	)

	return nil
}

func teardown(_ *cobra.Command, _ []string) {
	if telemetry != nil {
		if err := telemetry.Close(); err != nil {
			logger.Warn("Closing telemetry store: %v", err)
		}
	}
	if cacheRegistry != nil {
		cacheRegistry.Close()
	}
}

// buildEmbedder constructs the configured embedding backend, or nil when
// none is configured or it fails to construct. A nil embedder means
// lexical-only retrieval and exact-hash-only cache lookups.
func buildEmbedder() driven.EmbeddingService {
	switch cfg.Embedding.Provider {
	case "":
		logger.Debug("No embedding provider configured")
		return nil
	case "ollama":
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:           cfg.Embedding.BaseURL,
			Model:             cfg.Embedding.Model,
			RequestsPerSecond: cfg.Embedding.RPS,
		})
	case "openai":
		svc, err := openai.NewEmbeddingService(openai.Config{
			APIKey:            cfg.Embedding.APIKey,
			BaseURL:           cfg.Embedding.BaseURL,
			Model:             cfg.Embedding.Model,
			RequestsPerSecond: cfg.Embedding.RPS,
		})
		if err != nil {
			logger.Warn("OpenAI embedding unavailable: %v", err)
			return nil
		}
		return svc
	default:
		logger.Warn("Unknown embedding provider %q, semantic scoring disabled", cfg.Embedding.Provider)
		return nil
	}
}
