package testutil

import (
	"context"
	"testing"

	"github.com/leapstack-labs/crossfilter/pkg/adapters/duckdb"
	"github.com/leapstack-labs/crossfilter/pkg/core"
	"github.com/stretchr/testify/require"
)

// ClinicalSchema creates two related tables: samples.patient_id references
// patients.patient_id. Row values cover blanks, nulls and an "n/a" marker.
var ClinicalSchema = []string{
	`CREATE TABLE patients (patient_id VARCHAR, age DOUBLE, status VARCHAR, site VARCHAR)`,
	`INSERT INTO patients VALUES
		('P1', 34, 'Active', 'A'),
		('P2', 51, 'Inactive', 'B'),
		('P3', 67, 'Active', ''),
		('P4', 29, ' n/a ', NULL),
		('P5', 45, 'Active', 'A')`,
	`CREATE TABLE samples (sample_id VARCHAR, patient_id VARCHAR, sample_type VARCHAR, volume DOUBLE)`,
	`INSERT INTO samples VALUES
		('S1', 'P1', 'Blood', 1.5),
		('S2', 'P1', 'Urine', 2.0),
		('S3', 'P2', 'Blood', 3.5),
		('S4', 'P3', 'Tissue', NULL),
		('S5', 'P4', 'Blood', 0.5),
		('S6', 'P5', 'Urine', 4.0),
		('S7', NULL, 'Blood', 2.5)`,
}

// ClinicalTables describes ClinicalSchema for graph construction.
func ClinicalTables() []core.TableDescriptor {
	return []core.TableDescriptor{
		{Name: "patients", RowCount: 5},
		{Name: "samples", RowCount: 7, Relationships: []core.Relationship{
			{ForeignKeyColumn: "patient_id", ReferencedTable: "patients", ReferencedColumn: "patient_id", Kind: "many-to-one"},
		}},
	}
}

// NewDuckDB connects an in-memory DuckDB adapter, runs statements, and
// closes the adapter when the test ends.
func NewDuckDB(t testing.TB, statements ...string) *duckdb.Adapter {
	t.Helper()
	ctx := context.Background()

	adp := duckdb.New(NewTestLogger(t))
	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Type: "duckdb", Path: ":memory:"}))
	t.Cleanup(func() { _ = adp.Close() })

	for _, stmt := range statements {
		require.NoError(t, adp.Exec(ctx, stmt))
	}
	return adp
}

// QueryInt64 runs a single-value query and returns the result.
func QueryInt64(t testing.TB, adp core.Adapter, query string, args ...any) int64 {
	t.Helper()
	rows, err := adp.Query(context.Background(), query, args...)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	require.True(t, rows.Next(), "query returned no rows: %s", query)
	var n int64
	require.NoError(t, rows.Scan(&n))
	require.NoError(t, rows.Err())
	return n
}
