// Package commands implements the crossfilter CLI subcommands.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/crossfilter/internal/cli/config"
	"github.com/leapstack-labs/crossfilter/internal/cli/output"
	intconfig "github.com/leapstack-labs/crossfilter/internal/config"
	"github.com/leapstack-labs/crossfilter/internal/engine"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with engine and renderer.
// The returned cleanup function closes the engine.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	return newCommandContext(cmd, nil)
}

func newCommandContext(cmd *cobra.Command, reg prometheus.Registerer) (*CommandContext, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	eng, err := createEngine(cfg, logger, reg)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if err := eng.Close(); err != nil {
			logger.Warn("failed to close engine", "error", err)
		}
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Engine:   eng,
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}, cleanup, nil
}

// Dataset returns the dataset the command works on.
func (c *CommandContext) Dataset() (string, error) {
	if c.Cfg.Dataset == "" {
		return "", fmt.Errorf("dataset is required\nHint: pass --dataset or set dataset in %s", config.ConfigFileName)
	}
	return c.Cfg.Dataset, nil
}

// getConfig returns the loaded configuration, or one built from defaults.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	cfg, err := config.LoadConfig("", nil)
	if err != nil {
		return &config.Config{StatePath: config.DefaultStateFile, Target: &config.TargetConfig{Type: intconfig.DefaultTargetType}}
	}
	return cfg
}

func createEngine(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (*engine.Engine, error) {
	dirs := []string{filepath.Dir(cfg.StatePath)}
	if intconfig.IsFileBacked(cfg.Target) && cfg.Target.Database != "" && cfg.Target.Database != ":memory:" {
		dirs = append(dirs, filepath.Dir(cfg.Target.Database))
	}
	for _, dir := range dirs {
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	engineCfg := engine.Config{
		StatePath:             cfg.StatePath,
		Aggregation:           cfg.Aggregation.Options(),
		TransitivePropagation: cfg.Aggregation.Transitive,
		CacheSize:             cfg.Aggregation.CacheSize,
		Registerer:            reg,
		Logger:                logger,
	}
	if cfg.Target != nil {
		adapterConfig := cfg.Target.AdapterConfig()
		engineCfg.AdapterConfig = &adapterConfig
	}

	return engine.New(engineCfg)
}
