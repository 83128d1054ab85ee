// Package config provides configuration management for the crossfilter CLI.
//
// Settings are layered with koanf: built-in defaults, then crossfilter.yaml,
// then CROSSFILTER_ environment variables, then explicitly set flags.
package config

import (
	"github.com/leapstack-labs/crossfilter/internal/aggregate"
	"github.com/leapstack-labs/crossfilter/internal/server"
	"github.com/leapstack-labs/crossfilter/pkg/core"
)

// TargetConfig is an alias for the shared target configuration.
type TargetConfig = core.TargetConfig

// Config holds all CLI configuration options.
type Config struct {
	StatePath    string               `koanf:"state_path"`
	Dataset      string               `koanf:"dataset"`
	Environment  string               `koanf:"environment"`
	Verbose      bool                 `koanf:"verbose"`
	OutputFormat string               `koanf:"output"`
	Target       *TargetConfig        `koanf:"target"`
	Server       server.Options       `koanf:"server"`
	Aggregation  AggregationConfig    `koanf:"aggregation"`
	Environments map[string]EnvConfig `koanf:"environments"`

	// ProjectRoot anchors relative paths: the directory of the config file,
	// or the working directory when there is none.
	ProjectRoot string `koanf:"-"`
}

// AggregationConfig holds engine-wide aggregation settings.
type AggregationConfig struct {
	CategoryLimit int `koanf:"category_limit"`
	Bins          int `koanf:"bins"`
	Workers       int `koanf:"workers"`
	// Transitive propagates filters along whole relationship chains
	// instead of one hop.
	Transitive bool `koanf:"transitive"`
	CacheSize  int  `koanf:"cache_size"`
}

// Options converts the settings into aggregator options.
func (a AggregationConfig) Options() aggregate.Options {
	return aggregate.Options{
		CategoryLimit: a.CategoryLimit,
		Bins:          a.Bins,
		Workers:       a.Workers,
	}
}

// EnvConfig holds environment-specific configuration overrides.
type EnvConfig struct {
	StatePath string        `koanf:"state_path"`
	Target    *TargetConfig `koanf:"target"`
}

// Default configuration values.
const (
	ConfigFileName    = "crossfilter.yaml"
	ConfigFileNameAlt = "crossfilter.yml"
	DefaultStateFile  = ".crossfilter/state.db"
	DefaultStoreFile  = ".crossfilter/store.duckdb"
	DefaultEnv        = "dev"
	DefaultOutput     = "auto" // Auto-detect: TTY=text, non-TTY=json
	DefaultCacheSize  = 64
)
