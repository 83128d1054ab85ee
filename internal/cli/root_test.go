package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/crossfilter/internal/cli/commands"
	"github.com/leapstack-labs/crossfilter/internal/cli/config"
	"github.com/leapstack-labs/crossfilter/internal/cli/testutil"
	"github.com/leapstack-labs/crossfilter/internal/engine"
	"github.com/leapstack-labs/crossfilter/internal/filter"
	"github.com/leapstack-labs/crossfilter/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/leapstack-labs/crossfilter/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/crossfilter/pkg/adapters/postgres"
)

const activeWhere = `[{"column":"status","operator":"eq","value":"Active","tableName":"patients"}]`

type workspace struct {
	t *testing.T
	*testutil.Project
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	p := testutil.SetupTestProject(t)
	t.Chdir(p.Dir)
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	return &workspace{t: t, Project: p}
}

// run executes the CLI against the workspace stores and returns stdout.
func (w *workspace) run(args ...string) (string, error) {
	w.t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, w.StoreArgs()...))
	err := cmd.Execute()
	return out.String(), err
}

func (w *workspace) mustRun(args ...string) string {
	w.t.Helper()
	out, err := w.run(args...)
	require.NoError(w.t, err, "crossfilter %v", args)
	return out
}

func decodeOutput[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

// seed loads both CSV files and relates samples to patients.
func (w *workspace) seed() {
	w.t.Helper()
	w.mustRun("load", "-d", "clinical", "--dir", w.DataDir)
	w.mustRun("relate", "-d", "clinical", "samples.patient_id", "patients.patient_id")
}

func TestVersionCommand(t *testing.T) {
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "crossfilter v"+Version)
	assert.Contains(t, out.String(), "duckdb, postgres")
}

func TestVersionCommand_JSON(t *testing.T) {
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version", "--output", "json"})
	require.NoError(t, cmd.Execute())

	info := decodeOutput[commands.BuildInfo](t, out.String())
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, GitCommit, info.GitCommit)
	assert.Contains(t, info.Stores, "duckdb")
	assert.Contains(t, info.Dialects, "postgres")
}

func TestCompletionCommand(t *testing.T) {
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"completion", "bash"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "crossfilter")
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCmd()
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "aggregate", "filters", "explain", "load", "relate", "tables", "columns", "version", "completion"} {
		assert.Contains(t, names, want)
	}
}

func TestCLI_LoadAndList(t *testing.T) {
	w := newWorkspace(t)

	out := w.mustRun("load", "-d", "clinical", "--dir", w.DataDir)
	loaded := decodeOutput[[]map[string]any](t, out)
	require.Len(t, loaded, 2)
	assert.Equal(t, "patients", loaded[0]["table"])
	assert.Equal(t, "samples", loaded[1]["table"])

	out = w.mustRun("relate", "-d", "clinical", "samples.patient_id", "patients.patient_id")
	assert.Contains(t, out, `"status": "added"`)

	tables := decodeOutput[[]core.TableDescriptor](t, w.mustRun("tables", "-d", "clinical"))
	require.Len(t, tables, 2)
	assert.Equal(t, "patients", tables[0].Name)
	assert.Equal(t, int64(5), tables[0].RowCount)
	assert.Equal(t, "samples", tables[1].Name)
	assert.Equal(t, int64(7), tables[1].RowCount)
	require.Len(t, tables[1].Relationships, 1)
	assert.Equal(t, "patients", tables[1].Relationships[0].ReferencedTable)

	datasets := decodeOutput[[]core.Dataset](t, w.mustRun("tables"))
	require.Len(t, datasets, 1)
	assert.Equal(t, "clinical", datasets[0].Name)

	// a single file, named explicitly
	out = w.mustRun("load", "-d", "clinical", "cohort", filepath.Join(w.DataDir, "patients.csv"))
	assert.Contains(t, out, `"rows": 5`)
}

func TestCLI_Aggregate(t *testing.T) {
	w := newWorkspace(t)
	w.seed()

	col := decodeOutput[engine.ColumnResult](t,
		w.mustRun("aggregate", "-d", "clinical", "samples", "sample_type", "--where", activeWhere))
	assert.Equal(t, "samples", col.Table)
	assert.Equal(t, int64(5), col.Aggregation.TotalRows)
	require.NotEmpty(t, col.Aggregation.Categories)
	assert.Equal(t, "Blood", col.Aggregation.Categories[0].Value)
	assert.Equal(t, int64(2), col.Aggregation.Categories[0].Count)

	col = decodeOutput[engine.ColumnResult](t,
		w.mustRun("aggregate", "-d", "clinical", "patients", "age", "--bins", "4"))
	assert.Equal(t, core.DisplayNumeric, col.Aggregation.DisplayType)
	require.NotNil(t, col.Aggregation.NumericStats)
	assert.Equal(t, 29.0, col.Aggregation.NumericStats.Min)
	assert.Equal(t, 67.0, col.Aggregation.NumericStats.Max)

	table := decodeOutput[engine.TableResult](t,
		w.mustRun("aggregate", "-d", "clinical", "patients", "--where", activeWhere))
	assert.Len(t, table.Columns, 4)
	assert.Empty(t, table.Failed)
	for _, c := range table.Columns {
		assert.Equal(t, int64(3), c.TotalRows, c.ColumnName)
	}
}

func TestCLI_AggregateText(t *testing.T) {
	w := newWorkspace(t)
	w.seed()

	out := w.mustRun("aggregate", "-d", "clinical", "samples", "sample_type", "-o", "text")
	assert.Contains(t, out, "Rows:")
	assert.Contains(t, out, "Blood")
	assert.Contains(t, out, "57.1%")
	testutil.AssertNoANSI(t, out)
}

func TestCLI_FiltersFromFile(t *testing.T) {
	w := newWorkspace(t)
	w.seed()

	path := w.WriteFile(t, "filters.yaml", "- {column: status, operator: eq, value: Active}\n")

	eff := decodeOutput[map[string]*filter.Effective](t,
		w.mustRun("filters", "-d", "clinical", "-f", path, "--owner", "patients"))
	require.Len(t, eff, 2)
	assert.Len(t, eff["patients"].Direct, 1)
	assert.Len(t, eff["samples"].Propagated, 1)

	eff = decodeOutput[map[string]*filter.Effective](t,
		w.mustRun("filters", "-d", "clinical", "-f", path))
	assert.Empty(t, eff["patients"].Direct, "untagged filters act nowhere")
}

func TestCLI_Explain(t *testing.T) {
	w := newWorkspace(t)
	w.seed()

	plans := decodeOutput[[]engine.Plan](t, w.mustRun("explain", "-d", "clinical", "--where", activeWhere))
	require.Len(t, plans, 2)
	assert.Equal(t, "patients", plans[0].Table)
	assert.Contains(t, plans[0].SQL, `"status"`)
	assert.Equal(t, "samples", plans[1].Table)
	assert.Contains(t, plans[1].SQL, "IN (SELECT")

	out := w.mustRun("explain", "-d", "clinical", "-o", "text")
	assert.Contains(t, out, "(all rows)")
}

func TestCLI_Columns(t *testing.T) {
	w := newWorkspace(t)
	w.seed()

	cols := decodeOutput[[]core.ColumnInfo](t, w.mustRun("columns", "-d", "clinical", "patients"))
	require.Len(t, cols, 4)
	assert.Equal(t, core.DisplayID, cols[0].DisplayType)
	assert.Equal(t, core.DisplayNumeric, cols[1].DisplayType)

	cols = decodeOutput[[]core.ColumnInfo](t,
		w.mustRun("columns", "-d", "clinical", "patients", "--set", "age=categorical"))
	assert.Equal(t, core.DisplayCategorical, cols[1].DisplayType)

	_, err := w.run("columns", "-d", "clinical", "patients", "--set", "age")
	assert.ErrorContains(t, err, "expected column=type")
}

func TestCLI_Errors(t *testing.T) {
	w := newWorkspace(t)
	w.seed()

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no dataset", []string{"aggregate", "patients"}, "dataset is required"},
		{"unknown dataset", []string{"aggregate", "-d", "nope", "patients"}, "dataset not found: nope"},
		{"unknown table", []string{"aggregate", "-d", "clinical", "visits"}, "table not found: visits"},
		{"invalid value", []string{"aggregate", "-d", "clinical", "patients", "age", "--where", `[{"column":"age","operator":"gt","value":"old","tableName":"patients"}]`}, "invalid value"},
		{"malformed filter", []string{"filters", "-d", "clinical", "--where", `[{"column":"age"}]`}, "failed to parse --where"},
		{"load without input", []string{"load", "-d", "clinical"}, "give either a CSV file or --dir"},
		{"relate malformed", []string{"relate", "-d", "clinical", "samples", "patients.patient_id"}, "expected table.column"},
		{"relate unknown table", []string{"relate", "-d", "clinical", "visits.patient_id", "patients.patient_id"}, "table not found: visits"},
		{"unknown store", []string{"tables", "--store", "oracle"}, "unknown adapter type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := w.run(tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
