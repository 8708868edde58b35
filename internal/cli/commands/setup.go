package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/datascribe-labs/datascribe/internal/cli/config"
	sharedcfg "github.com/datascribe-labs/datascribe/internal/config"
	"github.com/datascribe-labs/datascribe/internal/contextbuild"
	"github.com/datascribe-labs/datascribe/internal/enrich"
	"github.com/datascribe-labs/datascribe/internal/metadata"
	"github.com/datascribe-labs/datascribe/internal/warehouse"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg          *config.Config
	Logger       *slog.Logger
	Warehouse    warehouse.Client
	Orchestrator *contextbuild.Orchestrator
}

// NewCommandContext creates a CommandContext with a connected warehouse
// client. Returns the context and a cleanup function that must be called
// (typically via defer).
func NewCommandContext(cmd *cobra.Command, noLLM bool) (*CommandContext, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	whCfg := warehouse.Config{
		Type:     cfg.Warehouse.Type,
		Path:     cfg.Warehouse.Path,
		Host:     cfg.Warehouse.Host,
		Port:     cfg.Warehouse.Port,
		Database: cfg.Warehouse.Database,
		Username: cfg.Warehouse.User,
		Password: cfg.Warehouse.Password,
		Schema:   cfg.Warehouse.Schema,
		Options:  cfg.Warehouse.Options,
	}

	client, err := warehouse.New(whCfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := client.Connect(cmd.Context(), whCfg); err != nil {
		return nil, nil, err
	}

	var generator enrich.Generator
	if !noLLM && !cfg.Generator.Disabled && cfg.Generator.APIKey != "" {
		g, genErr := enrich.NewGeminiGenerator(cmd.Context(), cfg.Generator.APIKey, cfg.Generator.Model)
		if genErr != nil {
			logger.Warn("generator unavailable, documents will use fallback templates",
				slog.String("error", genErr.Error()))
		} else {
			generator = g
		}
	}
	if generator == nil {
		logger.Debug("enrichment disabled, using fallback templates")
	}

	pipeline := enrich.NewPipeline(generator, logger)
	meta := metadata.New(cfg.ProjectRoot, logger)
	orch := contextbuild.New(client, pipeline, meta, logger)

	cleanup := func() {
		_ = client.Close()
	}

	return &CommandContext{
		Cfg:          cfg,
		Logger:       logger,
		Warehouse:    client,
		Orchestrator: orch,
	}, cleanup, nil
}

// NewCommandContextWithoutWarehouse creates a CommandContext for commands
// that only read project files.
func NewCommandContextWithoutWarehouse(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	meta := metadata.New(cfg.ProjectRoot, logger)
	orch := contextbuild.New(nil, enrich.NewPipeline(nil, logger), meta, logger)

	return &CommandContext{
		Cfg:          cfg,
		Logger:       logger,
		Orchestrator: orch,
	}
}

// Options converts the loaded configuration into orchestrator options.
func (c *CommandContext) Options() contextbuild.Options {
	return contextbuild.Options{
		ProjectDir: c.Cfg.ProjectRoot,
		ModelsDir:  c.Cfg.ModelsDir,
		ContextDir: c.Cfg.ContextDir,
		Schema:     c.Cfg.Warehouse.Schema,
	}
}

// getConfig returns the current configuration, falling back to environment
// variables with defaults when no config was loaded.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	cwd, _ := os.Getwd()
	return &config.Config{
		ProjectRoot: cwd,
		ModelsDir:   getEnvOrDefault("DATASCRIBE_MODELS_DIR", sharedcfg.DefaultModelsDir),
		ContextDir:  getEnvOrDefault("DATASCRIBE_CONTEXT_DIR", sharedcfg.DefaultContextDir),
		Verbose:     os.Getenv("DATASCRIBE_VERBOSE") == "true",
		Warehouse: config.WarehouseConfig{
			Type:   getEnvOrDefault("DATASCRIBE_WAREHOUSE__TYPE", sharedcfg.DefaultWarehouseType),
			Schema: sharedcfg.DefaultSchemaForType(sharedcfg.DefaultWarehouseType),
		},
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
