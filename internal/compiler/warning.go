package compiler

import "fmt"

// WarningKind classifies a dropped filter.
type WarningKind string

// Warning kinds. Neither is fatal: the filter is dropped and the rest of the
// condition still applies.
const (
	UnknownColumn      WarningKind = "unknown_column"
	NoRelationshipPath WarningKind = "no_relationship_path"
)

// Warning records a filter, or part of one, that was left out of a condition.
type Warning struct {
	Kind WarningKind `json:"kind"`
	// Table is the table the filter was compiled against.
	Table  string `json:"table"`
	Column string `json:"column,omitempty"`
	// Owner is the filter's owning table, for NoRelationshipPath.
	Owner  string `json:"owner,omitempty"`
	Filter string `json:"filter"`
}

func (w Warning) String() string {
	switch w.Kind {
	case UnknownColumn:
		return fmt.Sprintf("column %q does not exist on %s; dropped %s", w.Column, w.Table, w.Filter)
	case NoRelationshipPath:
		return fmt.Sprintf("no relationship between %s and %s; dropped %s", w.Table, w.Owner, w.Filter)
	}
	return fmt.Sprintf("%s: %s", w.Kind, w.Filter)
}
