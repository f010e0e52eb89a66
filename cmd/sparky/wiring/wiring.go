// Package wiring builds the sparky components from configuration. It is
// shared by the sparky subcommands.
package wiring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/sparky/pkg/config"
	"github.com/papercomputeco/sparky/pkg/knowledge"
	"github.com/papercomputeco/sparky/pkg/llm"
	"github.com/papercomputeco/sparky/pkg/llm/gemini"
	"github.com/papercomputeco/sparky/pkg/orchestrator"
	"github.com/papercomputeco/sparky/pkg/store"
	"github.com/papercomputeco/sparky/pkg/store/demo"
	"github.com/papercomputeco/sparky/pkg/store/inmemory"
	"github.com/papercomputeco/sparky/pkg/store/sqlstore"
	"github.com/papercomputeco/sparky/pkg/tools"
)

// DefaultConfigPath is read when --config is not given. A missing file
// means built-in defaults.
const DefaultConfigPath = "sparky.toml"

// Flags are the configuration flags common to every subcommand.
type Flags struct {
	ConfigPath string
	DBDriver   string
	DSN        string
	Debug      bool
}

// Register adds the common flags to cmd.
func (f *Flags) Register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.ConfigPath, "config", "c", DefaultConfigPath, "Path to TOML configuration file")
	cmd.Flags().StringVar(&f.DBDriver, "db-driver", "", "Store driver: memory, sqlite or postgres")
	cmd.Flags().StringVar(&f.DSN, "db", "", "SQLite database path or Postgres connection URL")
	cmd.Flags().BoolVarP(&f.Debug, "debug", "d", false, "Enable debug logging")
}

// Load reads the configuration file and applies flag overrides on top of it.
func (f *Flags) Load() (*config.Config, error) {
	cfg, err := config.Load(f.ConfigPath)
	if err != nil {
		return nil, err
	}

	if f.DBDriver != "" {
		cfg.Store.Driver = f.DBDriver
	}
	if f.DSN != "" {
		cfg.Store.DSN = f.DSN
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OpenStore opens the configured data collaborators. The memory driver is
// preloaded with the demo data set. The returned close function must be
// called when done.
func OpenStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (store.Collaborators, func() error, error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		driver := inmemory.NewDriver()
		data := demo.New(time.Now())
		driver.AddUsers(data.Users...)
		driver.AddFiles(data.Files...)
		driver.AddMessages(data.Messages...)
		logger.Info("using in-memory store with demo data")
		return driver.Collaborators(), func() error { return nil }, nil

	case config.DriverSQLite, config.DriverPostgres:
		driver, err := sqlstore.Open(ctx, cfg.Driver, cfg.DSN)
		if err != nil {
			return store.Collaborators{}, nil, fmt.Errorf("could not open %s store: %w", cfg.Driver, err)
		}
		logger.Info("using sql store", zap.String("driver", cfg.Driver))
		return driver.Collaborators(), driver.Close, nil

	default:
		return store.Collaborators{}, nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}

// NewKnowledge creates the knowledge cache described by cfg.
func NewKnowledge(cfg config.KnowledgeConfig, logger *zap.Logger) *knowledge.Cache {
	return knowledge.New(knowledge.Config{
		Dirs:     cfg.Dirs,
		TTL:      cfg.TTL.Duration,
		MaxChars: cfg.MaxChars,
	}, logger)
}

// NewBackend creates the Gemini client described by cfg.
func NewBackend(ctx context.Context, cfg config.GeminiConfig, logger *zap.Logger) (*gemini.Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New(config.EnvGeminiAPIKey + " is not set")
	}

	return gemini.New(ctx, gemini.Config{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout.Duration,
		Options: llm.Options{
			Temperature:     cfg.Temperature,
			TopP:            cfg.TopP,
			MaxOutputTokens: cfg.MaxOutputTokens,
		},
	}, logger)
}

// Assistant bundles a ready orchestrator with the components it runs on.
type Assistant struct {
	Orchestrator *orchestrator.Orchestrator
	Backend      *gemini.Client
	Tools        *tools.Registry
	Knowledge    *knowledge.Cache

	closeStore func() error
}

// NewAssistant wires store, tools, knowledge cache, backend and orchestrator.
func NewAssistant(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...orchestrator.Option) (*Assistant, error) {
	backend, err := NewBackend(ctx, cfg.Gemini, logger)
	if err != nil {
		return nil, fmt.Errorf("could not create model backend: %w", err)
	}

	collab, closeStore, err := OpenStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, err
	}

	registry := tools.NewRegistry(collab, logger)
	cache := NewKnowledge(cfg.Knowledge, logger)

	orch := orchestrator.New(backend, registry, cache, orchestrator.Config{
		MaxIterations: cfg.Orchestrator.MaxIterations,
	}, logger, opts...)

	return &Assistant{
		Orchestrator: orch,
		Backend:      backend,
		Tools:        registry,
		Knowledge:    cache,
		closeStore:   closeStore,
	}, nil
}

// Close releases the store.
func (a *Assistant) Close() error {
	return a.closeStore()
}
