// Package compiler lowers filter trees into parameterized SQL predicates for
// one target table. Filters owned by a related table become
// "join column IN (SELECT ...)" subqueries against the owning table.
package compiler

import (
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/leapstack-labs/crossfilter/internal/filter"
	"github.com/leapstack-labs/crossfilter/internal/graph"
	"github.com/leapstack-labs/crossfilter/pkg/dialect"
)

// Compiler builds conditions for a single dialect.
type Compiler struct {
	dialect *dialect.Dialect
	logger  *slog.Logger
}

// New creates a compiler. A nil dialect defaults to DuckDB; a nil logger
// discards output.
func New(d *dialect.Dialect, logger *slog.Logger) *Compiler {
	if d == nil {
		d = dialect.DuckDB()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Compiler{dialect: d, logger: logger}
}

// Compile builds the condition for table with the default compiler.
func Compile(table string, filters []filter.Node, g *graph.Graph, reg ColumnRegistry) (*Condition, error) {
	return New(nil, nil).Compile(table, filters, g, reg)
}

// Compile lowers filters into a condition on table. Filters with no owning
// table, or owned by table, apply directly; the rest go through the
// relationship between table and their owner. Invalid values abort with an
// error matching filter.ErrInvalidValue; unknown columns and unrelated
// owners only produce warnings.
func (c *Compiler) Compile(table string, filters []filter.Node, g *graph.Graph, reg ColumnRegistry) (*Condition, error) {
	st := &state{
		dialect: c.dialect,
		columns: newColumnSet(reg),
	}
	cond := &Condition{dialect: c.dialect}

	var local []sq.Sqlizer
	for _, f := range filters {
		if f == nil {
			continue
		}
		owner := filter.OwningTable(f)

		if owner == "" || owner == table {
			pred, err := st.lower(f, table)
			if err != nil {
				return nil, err
			}
			if pred != nil {
				local = append(local, pred)
			}
			continue
		}

		sub, err := st.subquery(f, table, owner, g)
		if err != nil {
			return nil, err
		}
		if sub != nil {
			cond.Subqueries = append(cond.Subqueries, sub)
		}
	}

	cond.Local = conjoin(local, false)
	cond.Warnings = st.warnings

	for _, w := range cond.Warnings {
		c.logger.Warn("filter dropped",
			slog.String("kind", string(w.Kind)),
			slog.String("table", w.Table),
			slog.String("column", w.Column),
			slog.String("filter", w.Filter))
	}
	return cond, nil
}

type state struct {
	dialect  *dialect.Dialect
	columns  *columnSet
	warnings []Warning
}

// subquery renders a filter owned by another table as a membership test on
// the join column. Owners more than one hop away are reached through nested
// subqueries along the shortest relationship path.
func (s *state) subquery(f filter.Node, table, owner string, g *graph.Graph) (sq.Sqlizer, error) {
	hops := s.hops(table, owner, g)
	if hops == nil {
		s.warnings = append(s.warnings, Warning{
			Kind:   NoRelationshipPath,
			Table:  table,
			Owner:  owner,
			Filter: f.String(),
		})
		return nil, nil
	}

	for _, e := range hops {
		if !s.columns.has(e.From, e.LocalColumn) {
			s.unknown(e.From, e.LocalColumn, f)
			return nil, nil
		}
		if !s.columns.has(e.To, e.RemoteColumn) {
			s.unknown(e.To, e.RemoteColumn, f)
			return nil, nil
		}
	}

	pred, err := s.lower(f, owner)
	if err != nil {
		return nil, err
	}
	if pred == nil {
		return nil, nil
	}

	for i := len(hops) - 1; i >= 0; i-- {
		e := hops[i]
		inner, args, err := sq.Select(s.dialect.Qualify(e.To, e.RemoteColumn)).
			From(s.dialect.QuoteIdentifier(e.To)).
			Where(pred).
			PlaceholderFormat(sq.Question).
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("failed to build subquery on %s: %w", e.To, err)
		}
		pred = sq.Expr(fmt.Sprintf("%s IN (%s)", s.dialect.Qualify(e.From, e.LocalColumn), inner), args...)
	}
	return pred, nil
}

// hops returns the edges from table to owner, or nil when they are not
// connected.
func (s *state) hops(table, owner string, g *graph.Graph) []graph.Edge {
	if g == nil {
		return nil
	}
	if e, ok := g.Edge(table, owner); ok {
		return []graph.Edge{e}
	}
	path := g.FindPath(table, owner)
	if len(path) < 2 {
		return nil
	}
	edges := make([]graph.Edge, 0, len(path)-1)
	for i := 0; i+1 < len(path); i++ {
		e, ok := g.Edge(path[i], path[i+1])
		if !ok {
			return nil
		}
		edges = append(edges, e)
	}
	return edges
}

// lower turns a filter tree evaluated against table into a predicate. A nil
// predicate means the tree contributes nothing.
func (s *state) lower(n filter.Node, table string) (sq.Sqlizer, error) {
	switch v := n.(type) {
	case *filter.Leaf:
		return s.leaf(v, table)
	case *filter.And:
		parts, err := s.lowerAll(v.Children, table)
		if err != nil {
			return nil, err
		}
		return conjoin(parts, false), nil
	case *filter.Or:
		parts, err := s.lowerAll(v.Children, table)
		if err != nil {
			return nil, err
		}
		return conjoin(parts, true), nil
	case *filter.Not:
		if v.Child == nil {
			return nil, nil
		}
		inner, err := s.lower(v.Child, table)
		if err != nil || inner == nil {
			return nil, err
		}
		query, args, err := inner.ToSql()
		if err != nil {
			return nil, err
		}
		return sq.Expr("NOT ("+query+")", args...), nil
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("unsupported filter node %T", n)
}

func (s *state) lowerAll(nodes []filter.Node, table string) ([]sq.Sqlizer, error) {
	parts := make([]sq.Sqlizer, 0, len(nodes))
	for _, n := range nodes {
		p, err := s.lower(n, table)
		if err != nil {
			return nil, err
		}
		if p != nil {
			parts = append(parts, p)
		}
	}
	return parts, nil
}

func (s *state) leaf(l *filter.Leaf, table string) (sq.Sqlizer, error) {
	if !s.columns.has(table, l.Column) {
		s.unknown(table, l.Column, l)
		return nil, nil
	}
	col := s.dialect.Qualify(table, l.Column)

	switch l.Operator {
	case filter.OpEq:
		v, err := l.Scalar()
		if err != nil {
			return nil, err
		}
		if filter.IsMissing(v) {
			return s.missing(col), nil
		}
		return sq.Eq{col: v}, nil

	case filter.OpIn:
		if err := l.Validate(); err != nil {
			return nil, err
		}
		var present []any
		hasMissing := false
		for _, v := range l.Values() {
			if filter.IsMissing(v) {
				hasMissing = true
				continue
			}
			present = append(present, v)
		}
		switch {
		case len(present) == 0 && !hasMissing:
			return nil, nil
		case len(present) == 0:
			return s.missing(col), nil
		case !hasMissing:
			return sq.Eq{col: present}, nil
		}
		return sq.Or{sq.Eq{col: present}, s.missing(col)}, nil

	case filter.OpGt, filter.OpLt, filter.OpGte, filter.OpLte:
		f, err := l.Number()
		if err != nil {
			return nil, err
		}
		return sq.Expr(fmt.Sprintf("%s %s ?", col, l.Operator.Symbol()), f), nil

	case filter.OpBetween:
		lo, hi, err := l.Range()
		if err != nil {
			return nil, err
		}
		return sq.Expr(col+" BETWEEN ? AND ?", lo, hi), nil
	}

	return nil, &filter.InvalidValueError{Column: l.Column, Operator: l.Operator, Value: l.Value, Reason: "unsupported operator"}
}

// missing matches null and blank values alike.
func (s *state) missing(col string) sq.Sqlizer {
	return sq.Or{
		sq.Eq{col: nil},
		sq.Expr("TRIM(" + s.dialect.CastText(col) + ") = ''"),
	}
}

func (s *state) unknown(table, column string, n filter.Node) {
	s.warnings = append(s.warnings, Warning{
		Kind:   UnknownColumn,
		Table:  table,
		Column: column,
		Filter: n.String(),
	})
}

// conjoin joins parts with AND (or OR), collapsing empty and singleton lists.
func conjoin(parts []sq.Sqlizer, or bool) sq.Sqlizer {
	switch len(parts) {
	case 0:
		return nil
	case 1:
		return parts[0]
	}
	if or {
		return sq.Or(parts)
	}
	return sq.And(parts)
}

// IsInvalidValue reports whether err came from a filter value that does not
// fit its operator.
func IsInvalidValue(err error) bool {
	return errors.Is(err, filter.ErrInvalidValue)
}
