package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/crossfilter/internal/compiler"
	"github.com/leapstack-labs/crossfilter/internal/filter"
	"github.com/leapstack-labs/crossfilter/internal/state"
	"github.com/leapstack-labs/crossfilter/internal/testutil"
	"github.com/leapstack-labs/crossfilter/pkg/adapter"
	"github.com/leapstack-labs/crossfilter/pkg/core"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	engine *Engine
	store  *state.SQLiteStore
	reg    *prometheus.Registry
}

// newClinical builds an engine over the clinical DuckDB schema with
// patients and samples registered in a "clinical" dataset.
func newClinical(t *testing.T) *fixture {
	t.Helper()
	return newFixture(t, testutil.ClinicalTables(), testutil.ClinicalSchema, false)
}

// newChain extends the clinical schema with results referencing samples,
// so patients are two hops from results.
func newChain(t *testing.T, transitive bool) *fixture {
	t.Helper()
	tables := append(testutil.ClinicalTables(), core.TableDescriptor{
		Name: "results", RowCount: 5, Relationships: []core.Relationship{
			{ForeignKeyColumn: "sample_id", ReferencedTable: "samples", ReferencedColumn: "sample_id", Kind: "many-to-one"},
		},
	})
	schema := append(append([]string{}, testutil.ClinicalSchema...),
		`CREATE TABLE results (result_id VARCHAR, sample_id VARCHAR, value DOUBLE)`,
		`INSERT INTO results VALUES
			('R1', 'S1', 1.0),
			('R2', 'S3', 2.0),
			('R3', 'S4', 3.0),
			('R4', 'S6', 4.0),
			('R5', 'S7', 5.0)`,
	)
	return newFixture(t, tables, schema, transitive)
}

func newFixture(t *testing.T, tables []core.TableDescriptor, schema []string, transitive bool) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := testutil.NewTestLogger(t)

	store, err := state.OpenAndMigrate(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ds, err := store.CreateDataset(ctx, "clinical")
	require.NoError(t, err)
	for _, td := range tables {
		require.NoError(t, store.RegisterTable(ctx, ds.ID, td.Name, td.RowCount))
	}
	for _, td := range tables {
		for _, rel := range td.Relationships {
			require.NoError(t, store.AddRelationship(ctx, ds.ID, td.Name, rel))
		}
	}

	reg := prometheus.NewRegistry()
	e, err := New(Config{
		Store:                 store,
		Adapter:               testutil.NewDuckDB(t, schema...),
		Registerer:            reg,
		Logger:                logger,
		TransitivePropagation: transitive,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	return &fixture{engine: e, store: store, reg: reg}
}

func activePatients() *filter.Leaf {
	return &filter.Leaf{Table: "patients", Column: "status", Operator: filter.OpEq, Value: "Active"}
}

func TestNew(t *testing.T) {
	t.Run("state path required", func(t *testing.T) {
		_, err := New(Config{})
		assert.ErrorContains(t, err, "state path is required")
	})

	t.Run("invalid state path", func(t *testing.T) {
		_, err := New(Config{StatePath: "/nonexistent/path/state.db"})
		assert.ErrorContains(t, err, "failed to open state store")
	})

	t.Run("owns the state store", func(t *testing.T) {
		e, err := New(Config{StatePath: filepath.Join(t.TempDir(), "state.db")})
		require.NoError(t, err)
		assert.Equal(t, "duckdb", e.dbConfig.Type)
		assert.False(t, e.dbConnected)
		assert.Equal(t, 20, e.AggregationOptions().Bins)
		require.NoError(t, e.Close())
	})

	t.Run("unknown adapter fails on first use", func(t *testing.T) {
		e, err := New(Config{
			StatePath:     filepath.Join(t.TempDir(), "state.db"),
			AdapterConfig: &adapter.Config{Type: "oracle"},
		})
		require.NoError(t, err)
		defer func() { _ = e.Close() }()

		_, err = e.Dialect(context.Background())
		assert.ErrorContains(t, err, "failed to create store adapter")
	})
}

func TestEngine_LazyConnect(t *testing.T) {
	e, err := New(Config{StatePath: filepath.Join(t.TempDir(), "state.db"), Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	d, err := e.Dialect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "duckdb", d.GetName())
	assert.True(t, e.closeDB)
}

func TestEngine_GetEffectiveFilters(t *testing.T) {
	f := newClinical(t)

	untagged := &filter.Leaf{Column: "status", Operator: filter.OpEq, Value: "Active"}
	eff, err := f.engine.GetEffectiveFilters(context.Background(), "clinical", []filter.Node{activePatients(), untagged})
	require.NoError(t, err)

	require.Len(t, eff, 2)
	assert.Len(t, eff["patients"].Direct, 1)
	assert.Empty(t, eff["patients"].Propagated)
	assert.Empty(t, eff["samples"].Direct)
	assert.Len(t, eff["samples"].Propagated, 1)

	_, err = f.engine.GetEffectiveFilters(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, state.ErrNotFound)
}

func TestEngine_Columns(t *testing.T) {
	f := newClinical(t)
	ctx := context.Background()

	types := func(t *testing.T, table string) map[string]core.DisplayType {
		t.Helper()
		cols, err := f.engine.Columns(ctx, "clinical", table)
		require.NoError(t, err)
		out := map[string]core.DisplayType{}
		for _, c := range cols {
			out[c.Name] = c.DisplayType
		}
		return out
	}

	assert.Equal(t, map[string]core.DisplayType{
		"patient_id": core.DisplayID,
		"age":        core.DisplayNumeric,
		"status":     core.DisplayCategorical,
		"site":       core.DisplayCategorical,
	}, types(t, "patients"))
	assert.Equal(t, map[string]core.DisplayType{
		"sample_id":   core.DisplayID,
		"patient_id":  core.DisplayID,
		"sample_type": core.DisplayCategorical,
		"volume":      core.DisplayNumeric,
	}, types(t, "samples"))

	ds, err := f.store.GetDataset(ctx, "clinical")
	require.NoError(t, err)
	require.NoError(t, f.store.SetDisplayType(ctx, ds.ID, "patients", "age", core.DisplayCategorical))
	assert.Equal(t, core.DisplayCategorical, types(t, "patients")["age"], "override applies after the version bump")

	_, err = f.engine.Columns(ctx, "clinical", "visits")
	assert.ErrorIs(t, err, state.ErrNotFound)
}

func TestInferDisplayType(t *testing.T) {
	tests := []struct {
		name   string
		col    core.Column
		unique int64
		rows   int64
		want   core.DisplayType
	}{
		{"id name", core.Column{Name: "id", Type: "INTEGER"}, 3, 10, core.DisplayID},
		{"id suffix", core.Column{Name: "Patient_ID", Type: "VARCHAR"}, 3, 10, core.DisplayID},
		{"integer", core.Column{Name: "age", Type: "INTEGER"}, 10, 10, core.DisplayNumeric},
		{"decimal", core.Column{Name: "dose", Type: "DECIMAL(18,3)"}, 2, 10, core.DisplayNumeric},
		{"postgres double", core.Column{Name: "volume", Type: "double precision"}, 2, 10, core.DisplayNumeric},
		{"interval is not numeric", core.Column{Name: "gap", Type: "INTERVAL"}, 2, 10, core.DisplayCategorical},
		{"all distinct text", core.Column{Name: "barcode", Type: "VARCHAR"}, 10, 10, core.DisplayID},
		{"single row", core.Column{Name: "status", Type: "VARCHAR"}, 1, 1, core.DisplayCategorical},
		{"text", core.Column{Name: "status", Type: "VARCHAR"}, 3, 10, core.DisplayCategorical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferDisplayType(tt.col, tt.unique, tt.rows))
		})
	}
}

func TestEngine_GetColumnAggregation(t *testing.T) {
	f := newClinical(t)
	ctx := context.Background()

	res, err := f.engine.GetColumnAggregation(ctx, "clinical", "samples", "sample_type", []filter.Node{activePatients()})
	require.NoError(t, err)
	assert.Equal(t, "samples", res.Table)
	assert.Empty(t, res.Warnings)

	agg := res.Aggregation
	assert.Equal(t, int64(4), agg.TotalRows)
	require.Len(t, agg.Categories, 3)
	assert.Equal(t, "Urine", agg.Categories[0].Value)
	assert.Equal(t, int64(2), agg.Categories[0].Count)

	// unfiltered numeric column with a bin override
	res, err = f.engine.GetColumnAggregation(ctx, "clinical", "patients", "age", nil, WithBins(4))
	require.NoError(t, err)
	assert.Equal(t, core.DisplayNumeric, res.Aggregation.DisplayType)
	assert.Equal(t, int64(5), res.Aggregation.TotalRows)
	assert.Len(t, res.Aggregation.Histogram, 4)

	res, err = f.engine.GetColumnAggregation(ctx, "clinical", "samples", "sample_type", nil, WithCategoryLimit(1))
	require.NoError(t, err)
	assert.Len(t, res.Aggregation.Categories, 1)
}

func TestEngine_GetColumnAggregation_Errors(t *testing.T) {
	f := newClinical(t)
	ctx := context.Background()

	_, err := f.engine.GetColumnAggregation(ctx, "clinical", "visits", "kind", nil)
	assert.ErrorIs(t, err, state.ErrNotFound)

	_, err = f.engine.GetColumnAggregation(ctx, "clinical", "patients", "ghost", nil)
	assert.ErrorIs(t, err, state.ErrNotFound)
	assert.ErrorContains(t, err, "column not found: patients.ghost")

	bad := &filter.Leaf{Table: "patients", Column: "age", Operator: filter.OpGt, Value: "old"}
	_, err = f.engine.GetColumnAggregation(ctx, "clinical", "samples", "volume", []filter.Node{bad})
	assert.ErrorIs(t, err, filter.ErrInvalidValue)
}

func TestEngine_Warnings(t *testing.T) {
	f := newClinical(t)

	unknown := &filter.Leaf{Table: "patients", Column: "ghost", Operator: filter.OpEq, Value: "x"}
	res, err := f.engine.GetColumnAggregation(context.Background(), "clinical", "patients", "status", []filter.Node{unknown})
	require.NoError(t, err)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, compiler.UnknownColumn, res.Warnings[0].Kind)
	assert.Equal(t, int64(5), res.Aggregation.TotalRows, "dropped filter leaves the table unfiltered")

	families, err := f.reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
	assert.Equal(t, 1.0, promtest.ToFloat64(f.engine.metrics.warnings.WithLabelValues(string(compiler.UnknownColumn))))
}

func TestEngine_TransitivePropagation(t *testing.T) {
	ctx := context.Background()
	filters := []filter.Node{activePatients()}

	t.Run("transitive filters reach results", func(t *testing.T) {
		f := newChain(t, true)

		eff, err := f.engine.GetEffectiveFilters(ctx, "clinical", filters)
		require.NoError(t, err)
		require.Len(t, eff["results"].Propagated, 1)

		// active patients P1, P3, P5 own S1, S2, S4, S6; results R1, R3, R4
		res, err := f.engine.GetColumnAggregation(ctx, "clinical", "results", "result_id", filters)
		require.NoError(t, err)
		assert.Empty(t, res.Warnings)
		assert.Equal(t, int64(3), res.Aggregation.TotalRows)
	})

	t.Run("direct neighbours only by default", func(t *testing.T) {
		f := newChain(t, false)

		eff, err := f.engine.GetEffectiveFilters(ctx, "clinical", filters)
		require.NoError(t, err)
		assert.Empty(t, eff["results"].Propagated)

		res, err := f.engine.GetColumnAggregation(ctx, "clinical", "results", "result_id", filters)
		require.NoError(t, err)
		assert.Empty(t, res.Warnings)
		assert.Equal(t, int64(5), res.Aggregation.TotalRows)
	})
}

func TestEngine_GetTableAggregations(t *testing.T) {
	f := newClinical(t)

	res, err := f.engine.GetTableAggregations(context.Background(), "clinical", "patients", []filter.Node{
		&filter.Leaf{Table: "samples", Column: "volume", Operator: filter.OpGt, Value: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, "patients", res.Table)
	assert.Empty(t, res.Failed)
	require.Len(t, res.Columns, 4)

	// column order follows the table
	names := make([]string, len(res.Columns))
	for i, c := range res.Columns {
		names[i] = c.ColumnName
		assert.Equal(t, int64(2), c.TotalRows, c.ColumnName)
	}
	assert.Equal(t, []string{"patient_id", "age", "status", "site"}, names)

	_, err = f.engine.GetTableAggregations(context.Background(), "clinical", "visits", nil)
	assert.ErrorIs(t, err, state.ErrNotFound)
}

func TestEngine_GraphCachedPerVersion(t *testing.T) {
	f := newClinical(t)
	ctx := context.Background()

	g1, err := f.engine.Graph(ctx, "clinical")
	require.NoError(t, err)
	g2, err := f.engine.Graph(ctx, "clinical")
	require.NoError(t, err)
	assert.Same(t, g1, g2)
	assert.True(t, g1.HasEdge("samples", "patients"))

	ds, err := f.store.GetDataset(ctx, "clinical")
	require.NoError(t, err)
	require.NoError(t, f.store.RemoveRelationship(ctx, ds.ID, "samples", "patient_id", "patients"))

	g3, err := f.engine.Graph(ctx, "clinical")
	require.NoError(t, err)
	assert.NotSame(t, g1, g3)
	assert.False(t, g3.HasEdge("samples", "patients"))

	// without the edge the patients filter no longer reaches samples
	res, err := f.engine.GetColumnAggregation(ctx, "clinical", "samples", "sample_type", []filter.Node{activePatients()})
	require.NoError(t, err)
	assert.Equal(t, int64(7), res.Aggregation.TotalRows)
}

func TestEngine_Explain(t *testing.T) {
	f := newClinical(t)

	plans, err := f.engine.Explain(context.Background(), "clinical", []filter.Node{activePatients()})
	require.NoError(t, err)
	require.Len(t, plans, 2)

	assert.Equal(t, "patients", plans[0].Table)
	assert.Equal(t, `"patients"."status" = ?`, plans[0].SQL)
	assert.Equal(t, []any{"Active"}, plans[0].Args)

	assert.Equal(t, "samples", plans[1].Table)
	assert.Equal(t, `"samples"."patient_id" IN (SELECT "patients"."patient_id" FROM "patients" WHERE "patients"."status" = ?)`, plans[1].SQL)
	assert.Equal(t, `"samples"."patient_id" IN (SELECT "patients"."patient_id" FROM "patients" WHERE "patients"."status" = 'Active')`, plans[1].Debug)
	assert.Len(t, plans[1].Effective.Propagated, 1)
}

func TestEngine_LoadTable(t *testing.T) {
	f := newClinical(t)
	ctx := context.Background()

	dir := t.TempDir()
	csv := "visit_id,patient_id,kind\nV1,P1,screening\nV2,P2,followup\nV3,P2,followup\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "visits.csv"), []byte(csv), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))

	loaded, err := f.engine.LoadDir(ctx, "lab", dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"visits"}, loaded)

	ds, err := f.store.GetDataset(ctx, "lab")
	require.NoError(t, err)
	visits, err := f.store.GetTable(ctx, ds.ID, "visits")
	require.NoError(t, err)
	assert.Equal(t, int64(3), visits.RowCount)

	res, err := f.engine.GetColumnAggregation(ctx, "lab", "visits", "kind", nil)
	require.NoError(t, err)
	assert.Equal(t, []core.Category{
		{Value: "followup", DisplayValue: "followup", Count: 2, Percentage: 200.0 / 3},
		{Value: "screening", DisplayValue: "screening", Count: 1, Percentage: 100.0 / 3},
	}, res.Aggregation.Categories)

	_, err = f.engine.LoadTable(ctx, "lab", "missing", filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestEngine_GetTableAggregations_InvalidValue(t *testing.T) {
	f := newClinical(t)

	bad := &filter.Leaf{Table: "patients", Column: "age", Operator: filter.OpBetween, Value: []any{50, 30}}
	res, err := f.engine.GetTableAggregations(context.Background(), "clinical", "samples", []filter.Node{bad})
	require.NoError(t, err)
	assert.Empty(t, res.Columns)
	require.Len(t, res.Failed, 4)
	assert.Equal(t, "sample_id", res.Failed[0].Column)
	assert.Contains(t, res.Failed[0].Error, "invalid value")
}
