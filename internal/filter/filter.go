// Package filter defines the boolean filter expressions the UI sends with
// every chart request, and classifies them into the filters that act on
// each table of a dataset.
//
// A filter is a tree of exactly four node kinds: a Leaf comparing one column
// against a value, and the And, Or and Not combinators.
package filter

import (
	"fmt"
	"strings"
)

// Operator is a leaf comparison operator.
type Operator string

// Supported operators.
const (
	OpEq      Operator = "eq"
	OpIn      Operator = "in"
	OpGt      Operator = "gt"
	OpLt      Operator = "lt"
	OpGte     Operator = "gte"
	OpLte     Operator = "lte"
	OpBetween Operator = "between"
)

// Operators lists every supported operator.
var Operators = []Operator{OpEq, OpIn, OpGt, OpLt, OpGte, OpLte, OpBetween}

// Valid reports whether o is a supported operator.
func (o Operator) Valid() bool {
	switch o {
	case OpEq, OpIn, OpGt, OpLt, OpGte, OpLte, OpBetween:
		return true
	}
	return false
}

// Ordered reports whether o requires a numeric operand.
func (o Operator) Ordered() bool {
	switch o {
	case OpGt, OpLt, OpGte, OpLte, OpBetween:
		return true
	}
	return false
}

// Symbol returns the SQL comparison symbol for gt/lt/gte/lte.
func (o Operator) Symbol() string {
	switch o {
	case OpGt:
		return ">"
	case OpLt:
		return "<"
	case OpGte:
		return ">="
	case OpLte:
		return "<="
	case OpEq:
		return "="
	}
	return ""
}

// Node is a filter expression. The set of implementations is closed.
type Node interface {
	isNode()
	String() string
}

// Leaf compares one column against a value.
type Leaf struct {
	Column   string
	Operator Operator
	// Value is a scalar, a list (in), or a [low, high] pair (between).
	Value any
	// Table is the owning table; empty when the filter is untagged.
	Table string
}

// And matches when every child matches.
type And struct {
	Children []Node
}

// Or matches when any child matches.
type Or struct {
	Children []Node
}

// Not negates its child.
type Not struct {
	Child Node
}

func (*Leaf) isNode() {}
func (*And) isNode()  {}
func (*Or) isNode()   {}
func (*Not) isNode()  {}

func (l *Leaf) String() string {
	col := l.Column
	if l.Table != "" {
		col = l.Table + "." + l.Column
	}
	return fmt.Sprintf("%s %s %s", col, l.Operator, formatValue(l.Value))
}

func (a *And) String() string { return joinNodes(a.Children, " AND ") }
func (o *Or) String() string  { return joinNodes(o.Children, " OR ") }

func (n *Not) String() string {
	if n.Child == nil {
		return "NOT ()"
	}
	return "NOT (" + n.Child.String() + ")"
}

func joinNodes(nodes []Node, sep string) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n != nil {
			parts = append(parts, n.String())
		}
	}
	return "(" + strings.Join(parts, sep) + ")"
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", val)
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = formatValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Walk visits every node depth-first, children in order. Returning false
// from fn stops the walk.
func Walk(n Node, fn func(Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	switch v := n.(type) {
	case *And:
		for _, c := range v.Children {
			if !Walk(c, fn) {
				return false
			}
		}
	case *Or:
		for _, c := range v.Children {
			if !Walk(c, fn) {
				return false
			}
		}
	case *Not:
		return Walk(v.Child, fn)
	}
	return true
}

// FirstLeaf returns the first leaf in depth-first order, or nil.
func FirstLeaf(n Node) *Leaf {
	var first *Leaf
	Walk(n, func(n Node) bool {
		if l, ok := n.(*Leaf); ok {
			first = l
			return false
		}
		return true
	})
	return first
}

// OwningTable returns the table a filter belongs to: the leaf's own tag, or
// for composites the tag of the first leaf. Empty means untagged.
func OwningTable(n Node) string {
	if l := FirstLeaf(n); l != nil {
		return l.Table
	}
	return ""
}

// Columns returns the distinct leaf columns in first-seen order.
func Columns(n Node) []string {
	seen := map[string]bool{}
	var cols []string
	Walk(n, func(n Node) bool {
		if l, ok := n.(*Leaf); ok && !seen[l.Column] {
			seen[l.Column] = true
			cols = append(cols, l.Column)
		}
		return true
	})
	return cols
}

// WithTable returns a copy of filters where untagged leaves are tagged with
// table. Tagged leaves are left alone.
func WithTable(filters []Node, table string) []Node {
	out := make([]Node, len(filters))
	for i, f := range filters {
		out[i] = retag(f, table)
	}
	return out
}

func retag(n Node, table string) Node {
	switch v := n.(type) {
	case *Leaf:
		cp := *v
		if cp.Table == "" {
			cp.Table = table
		}
		return &cp
	case *And:
		return &And{Children: WithTable(v.Children, table)}
	case *Or:
		return &Or{Children: WithTable(v.Children, table)}
	case *Not:
		return &Not{Child: retag(v.Child, table)}
	}
	return n
}
