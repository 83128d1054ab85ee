package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// Import adapter packages to ensure adapters are registered via init()
	_ "github.com/leapstack-labs/crossfilter/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/crossfilter/pkg/adapters/postgres"
)

// inTempDir runs the test from an empty directory, optionally holding a
// crossfilter.yaml.
func inTempDir(t *testing.T, yamlContent string) string {
	t.Helper()
	dir := t.TempDir()
	if yamlContent != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(yamlContent), 0o600))
	}
	t.Chdir(dir)
	ResetConfig()
	t.Cleanup(ResetConfig)

	// Compare against the working directory as the OS reports it.
	wd, err := os.Getwd()
	require.NoError(t, err)
	return wd
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("config", "", "")
	flags.StringP("target", "t", "", "")
	flags.String("state", "", "")
	flags.String("database", "", "")
	flags.String("store", "", "")
	flags.StringP("dataset", "d", "", "")
	flags.BoolP("verbose", "v", false, "")
	flags.StringP("output", "o", "", "")
	require.NoError(t, flags.Parse(args))
	return flags
}

func TestLoadConfig_Defaults(t *testing.T) {
	wd := inTempDir(t, "")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(wd, DefaultStateFile), cfg.StatePath)
	assert.Equal(t, wd, cfg.ProjectRoot)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, DefaultEnv, cfg.Environment)
	assert.False(t, cfg.Verbose)
	assert.Empty(t, cfg.Dataset)

	require.NotNil(t, cfg.Target)
	assert.Equal(t, "duckdb", cfg.Target.Type)
	assert.Equal(t, "main", cfg.Target.Schema)
	assert.Equal(t, filepath.Join(wd, DefaultStoreFile), cfg.Target.Database)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, 60, cfg.Server.Rebin.MaxBins)

	assert.Equal(t, 20, cfg.Aggregation.Bins)
	assert.Equal(t, 50, cfg.Aggregation.CategoryLimit)
	assert.Equal(t, 4, cfg.Aggregation.Workers)
	assert.Equal(t, DefaultCacheSize, cfg.Aggregation.CacheSize)
	assert.False(t, cfg.Aggregation.Transitive)

	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_File(t *testing.T) {
	t.Setenv("CF_TEST_HOST", "db.internal")
	t.Setenv("CF_TEST_PASSWORD", "s3cret")
	wd := inTempDir(t, `
state_path: meta/state.db
dataset: clinical
output: text
server:
  addr: ":9090"
  request_timeout: 5s
  session_secret: abc
aggregation:
  bins: 10
  transitive: true
target:
  type: postgres
  host: ${CF_TEST_HOST}
  user: analyst
  password: ${CF_TEST_PASSWORD}
  database: warehouse
`)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(wd, ConfigFileName), GetConfigFileUsed())
	assert.Equal(t, filepath.Join(wd, "meta", "state.db"), cfg.StatePath)
	assert.Equal(t, "clinical", cfg.Dataset)
	assert.Equal(t, "text", cfg.OutputFormat)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "abc", cfg.Server.SessionSecret)
	assert.Equal(t, 10, cfg.Aggregation.Bins)
	assert.Equal(t, 50, cfg.Aggregation.CategoryLimit, "unset keys keep defaults")
	assert.True(t, cfg.Aggregation.Transitive)

	assert.Equal(t, "postgres", cfg.Target.Type)
	assert.Equal(t, "db.internal", cfg.Target.Host)
	assert.Equal(t, "s3cret", cfg.Target.Password)
	assert.Equal(t, 5432, cfg.Target.Port)
	assert.Equal(t, "public", cfg.Target.Schema)
	assert.Equal(t, "warehouse", cfg.Target.Database, "non-file targets are not path-resolved")
}

func TestLoadConfig_FoundUpward(t *testing.T) {
	wd := inTempDir(t, "dataset: clinical\n")
	sub := filepath.Join(wd, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o750))
	t.Chdir(sub)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "clinical", cfg.Dataset)
	assert.Equal(t, wd, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(wd, DefaultStateFile), cfg.StatePath)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	inTempDir(t, "output: text\nserver:\n  addr: \":9090\"\n")
	t.Setenv("CROSSFILTER_OUTPUT", "json")
	t.Setenv("CROSSFILTER_SERVER__ADDR", ":7070")
	t.Setenv("CROSSFILTER_AGGREGATION__BINS", "12")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, 12, cfg.Aggregation.Bins)
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	wd := inTempDir(t, "dataset: from-file\n")
	t.Setenv("CROSSFILTER_DATASET", "from-env")
	t.Setenv("CROSSFILTER_VERBOSE", "false")

	flags := newFlags(t, "--dataset", "from-flag", "-v", "--state", "custom/state.db", "--database", "data.duckdb", "-o", "json")
	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, "from-flag", cfg.Dataset)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, filepath.Join(wd, "custom", "state.db"), cfg.StatePath)
	assert.Equal(t, filepath.Join(wd, "data.duckdb"), cfg.Target.Database)
}

func TestLoadConfig_UnsetFlagsIgnored(t *testing.T) {
	inTempDir(t, "dataset: from-file\noutput: text\n")

	cfg, err := LoadConfig("", newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Dataset)
	assert.Equal(t, "text", cfg.OutputFormat)
}

func TestLoadConfigWithTarget_Environments(t *testing.T) {
	wd := inTempDir(t, `
target:
  type: duckdb
  database: dev.duckdb
environments:
  prod:
    state_path: prod/state.db
    target:
      type: postgres
      database: warehouse
      options:
        sslmode: require
`)

	cfg, err := LoadConfigWithTarget("", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "duckdb", cfg.Target.Type)
	assert.Equal(t, filepath.Join(wd, "dev.duckdb"), cfg.Target.Database)

	cfg, err = LoadConfigWithTarget("", "prod", nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Target.Type)
	assert.Equal(t, "warehouse", cfg.Target.Database)
	assert.Equal(t, "require", cfg.Target.Options["sslmode"])
	assert.Equal(t, filepath.Join(wd, "prod", "state.db"), cfg.StatePath)

	_, err = LoadConfigWithTarget("", "staging", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown environment "staging"`)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("unknown target type", func(t *testing.T) {
		inTempDir(t, "target:\n  type: oracle\n")
		_, err := LoadConfig("", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid target configuration")
		assert.Contains(t, err.Error(), "unknown adapter type")
	})

	t.Run("missing explicit file", func(t *testing.T) {
		inTempDir(t, "")
		_, err := LoadConfig("nope.yaml", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error reading config file nope.yaml")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		inTempDir(t, "server: [unclosed\n")
		_, err := LoadConfig("", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error reading config file")
	})
}

func TestAggregationConfig_Options(t *testing.T) {
	opts := AggregationConfig{CategoryLimit: 5, Bins: 8, Workers: 2, CacheSize: 10}.Options()
	assert.Equal(t, 5, opts.CategoryLimit)
	assert.Equal(t, 8, opts.Bins)
	assert.Equal(t, 2, opts.Workers)
}

func TestGetLogger_Fallback(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("CF_TEST_USER", "alice")

	tests := []struct {
		input    string
		expected string
	}{
		{"${CF_TEST_USER}", "alice"},
		{"user=${CF_TEST_USER}!", "user=alice!"},
		{"${CF_TEST_UNSET_VAR}", "${CF_TEST_UNSET_VAR}"},
		{"plain", "plain"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, expandEnvVars(tt.input))
		})
	}
}

func TestMergeTargetConfig(t *testing.T) {
	base := &TargetConfig{
		Type:     "duckdb",
		Database: "base.duckdb",
		Schema:   "main",
		Options:  map[string]string{"a": "1"},
		Params:   map[string]any{"max_open_conns": 2},
	}
	override := &TargetConfig{
		Database: "override.duckdb",
		Options:  map[string]string{"b": "2"},
		Params:   map[string]any{"max_open_conns": 4},
	}

	merged := MergeTargetConfig(base, override)
	assert.Equal(t, "duckdb", merged.Type)
	assert.Equal(t, "override.duckdb", merged.Database)
	assert.Equal(t, "main", merged.Schema)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, merged.Options)
	assert.Equal(t, 4, merged.Params["max_open_conns"])
	assert.Equal(t, "base.duckdb", base.Database, "base is not modified")

	assert.Same(t, override, MergeTargetConfig(nil, override))
	assert.Same(t, base, MergeTargetConfig(base, nil))
}
