package compiler

import (
	sq "github.com/Masterminds/squirrel"
	"github.com/leapstack-labs/crossfilter/pkg/dialect"
)

// Condition is the compiled filter for one table: the local predicate ANDed
// with one membership subquery per cross-table filter.
type Condition struct {
	Local      sq.Sqlizer
	Subqueries []sq.Sqlizer
	Warnings   []Warning

	dialect *dialect.Dialect
}

// Empty reports whether the condition restricts nothing.
func (c *Condition) Empty() bool {
	return c == nil || (c.Local == nil && len(c.Subqueries) == 0)
}

// Predicate returns the combined predicate, or nil when empty.
func (c *Condition) Predicate() sq.Sqlizer {
	if c.Empty() {
		return nil
	}
	parts := make([]sq.Sqlizer, 0, 1+len(c.Subqueries))
	if c.Local != nil {
		parts = append(parts, c.Local)
	}
	parts = append(parts, c.Subqueries...)
	return conjoin(parts, false)
}

// ToSql renders the predicate with "?" placeholders. An empty condition
// renders as "".
func (c *Condition) ToSql() (string, []any, error) {
	p := c.Predicate()
	if p == nil {
		return "", nil, nil
	}
	return p.ToSql()
}

// Render renders the predicate with the placeholders of the dialect it was
// compiled for.
func (c *Condition) Render() (string, []any, error) {
	p := c.Predicate()
	if p == nil {
		return "", nil, nil
	}
	d := c.dialect
	if d == nil {
		d = dialect.DuckDB()
	}
	return d.Render(p)
}

// Where applies the condition to b. An empty condition leaves b untouched.
func (c *Condition) Where(b sq.SelectBuilder) sq.SelectBuilder {
	if p := c.Predicate(); p != nil {
		return b.Where(p)
	}
	return b
}

// Debug renders the predicate with arguments inlined. For display only.
func (c *Condition) Debug() string {
	p := c.Predicate()
	if p == nil {
		return ""
	}
	return sq.DebugSqlizer(p)
}
