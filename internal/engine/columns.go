package engine

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/leapstack-labs/crossfilter/internal/state"
	"github.com/leapstack-labs/crossfilter/pkg/core"
)

var numericTypes = map[string]bool{
	"TINYINT": true, "SMALLINT": true, "INTEGER": true, "INT": true, "BIGINT": true, "HUGEINT": true,
	"UTINYINT": true, "USMALLINT": true, "UINTEGER": true, "UBIGINT": true, "UHUGEINT": true,
	"INT2": true, "INT4": true, "INT8": true,
	"FLOAT": true, "FLOAT4": true, "FLOAT8": true, "REAL": true, "DOUBLE": true, "DOUBLE PRECISION": true,
	"DECIMAL": true, "NUMERIC": true,
}

// IsNumericType reports whether a store column type holds numbers.
func IsNumericType(sqlType string) bool {
	t := strings.ToUpper(strings.TrimSpace(sqlType))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return numericTypes[t]
}

// IsIDName reports whether a column name looks like an identifier.
func IsIDName(name string) bool {
	n := strings.ToLower(name)
	return n == "id" || strings.HasSuffix(n, "_id")
}

// InferDisplayType picks a display type from a column's name and type.
// Identifier-like names win over numeric types; text columns whose every
// value is distinct (unique == rows, rows > 1) are identifiers too.
func InferDisplayType(col core.Column, unique, rows int64) core.DisplayType {
	switch {
	case IsIDName(col.Name):
		return core.DisplayID
	case IsNumericType(col.Type):
		return core.DisplayNumeric
	case rows > 1 && unique == rows:
		return core.DisplayID
	}
	return core.DisplayCategorical
}

// Columns returns the live columns of a table with their display types:
// the stored override when present, else the inferred type.
func (e *Engine) Columns(ctx context.Context, datasetRef, table string) ([]core.ColumnInfo, error) {
	snap, err := e.load(ctx, datasetRef)
	if err != nil {
		return nil, err
	}
	td, ok := snap.table(table)
	if !ok {
		return nil, &state.NotFoundError{Kind: "table", Name: table}
	}
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}
	return e.tableColumns(ctx, snap, td)
}

func (e *Engine) tableColumns(ctx context.Context, snap *snapshot, td core.TableDescriptor) ([]core.ColumnInfo, error) {
	key := tableKey{versionKey: snap.key(), table: td.Name}
	if cols, ok := e.columns.Get(key); ok {
		return cols, nil
	}

	meta, err := e.db.GetTableMetadata(ctx, td.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to get columns of %s: %w", td.Name, err)
	}
	overrides, err := e.store.GetDisplayTypes(ctx, snap.dataset.ID, td.Name)
	if err != nil {
		return nil, err
	}
	unique, err := e.textUniqueCounts(ctx, td.Name, meta.Columns, overrides)
	if err != nil {
		return nil, err
	}

	cols := make([]core.ColumnInfo, 0, len(meta.Columns))
	for _, c := range meta.Columns {
		dt, ok := overrides[c.Name]
		if !ok {
			dt = InferDisplayType(c, unique[c.Name], meta.RowCount)
		}
		cols = append(cols, core.ColumnInfo{Name: c.Name, Type: c.Type, Nullable: c.Nullable, DisplayType: dt})
	}

	e.columns.Add(key, cols)
	return cols, nil
}

// textUniqueCounts counts distinct values of the text columns whose display
// type is still undecided, in a single scan.
func (e *Engine) textUniqueCounts(ctx context.Context, table string, cols []core.Column, overrides map[string]core.DisplayType) (map[string]int64, error) {
	var names, exprs []string
	for _, c := range cols {
		if _, ok := overrides[c.Name]; ok || IsIDName(c.Name) || IsNumericType(c.Type) {
			continue
		}
		names = append(names, c.Name)
		exprs = append(exprs, "COUNT(DISTINCT "+e.dialect.QuoteIdentifier(c.Name)+")")
	}
	out := make(map[string]int64, len(names))
	if len(names) == 0 {
		return out, nil
	}

	query, args, err := e.dialect.Render(sq.Select(exprs...).From(e.dialect.QuoteIdentifier(table)))
	if err != nil {
		return nil, err
	}
	rows, err := e.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count distinct values of %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	counts := make([]int64, len(names))
	dest := make([]any, len(names))
	for i := range counts {
		dest[i] = &counts[i]
	}
	if rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to count distinct values of %s: %w", table, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, n := range names {
		out[n] = counts[i]
	}
	return out, nil
}

// liveColumns is the compiler's view of the live column sets of a
// dataset's tables. Tables the store cannot describe are left unvalidated.
type liveColumns struct {
	ctx  context.Context
	e    *Engine
	snap *snapshot
}

func (l liveColumns) Columns(table string) ([]string, bool) {
	td, ok := l.snap.table(table)
	if !ok {
		return nil, false
	}
	cols, err := l.e.tableColumns(l.ctx, l.snap, td)
	if err != nil {
		l.e.logger.Debug("column lookup failed", "table", table, "error", err)
		return nil, false
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names, true
}
