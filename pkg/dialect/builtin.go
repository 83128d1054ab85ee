package dialect

import (
	"fmt"

	"github.com/leapstack-labs/crossfilter/pkg/core"
)

// builtinDuckDB is the default DuckDB dialect configuration.
// This is registered automatically when the package is loaded.
var builtinDuckDB = NewDialect("duckdb").
	Identifiers(`"`, `"`, `""`).
	DefaultSchema("main").
	PlaceholderStyle(core.PlaceholderQuestion).
	Types("VARCHAR", "DOUBLE").
	Quantile(func(expr string, q float64) string {
		if q == 0.5 {
			return fmt.Sprintf("MEDIAN(%s)", expr)
		}
		return fmt.Sprintf("QUANTILE_CONT(%s, %s)", expr, formatFloat(q))
	}).
	NumericCast(func(expr string) string {
		return fmt.Sprintf("TRY_CAST(%s AS DOUBLE)", expr)
	}).
	Build()

// builtinPostgres is the PostgreSQL dialect configuration.
var builtinPostgres = NewDialect("postgres").
	Identifiers(`"`, `"`, `""`).
	DefaultSchema("public").
	PlaceholderStyle(core.PlaceholderDollar).
	Types("VARCHAR", "DOUBLE PRECISION").
	NumericCast(func(expr string) string {
		// CSV loads land as TEXT; blanks become NULL rather than failing the cast.
		return fmt.Sprintf("CAST(NULLIF(TRIM(CAST(%s AS VARCHAR)), '') AS DOUBLE PRECISION)", expr)
	}).
	Build()

func init() {
	Register(builtinDuckDB)
	Register(builtinPostgres)
}

// DuckDB returns the built-in DuckDB dialect.
func DuckDB() *Dialect {
	return builtinDuckDB
}

// Postgres returns the built-in PostgreSQL dialect.
func Postgres() *Dialect {
	return builtinPostgres
}
