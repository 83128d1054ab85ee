package compiler

// ColumnRegistry exposes the live column set of each table. Columns returns
// ok=false when the table is unknown, in which case columns on it are not
// validated.
type ColumnRegistry interface {
	Columns(table string) (columns []string, ok bool)
}

// StaticRegistry is a ColumnRegistry backed by a map of table to columns.
type StaticRegistry map[string][]string

// Columns implements ColumnRegistry.
func (r StaticRegistry) Columns(table string) ([]string, bool) {
	cols, ok := r[table]
	return cols, ok
}

type columnSet struct {
	reg   ColumnRegistry
	cache map[string]map[string]bool
}

func newColumnSet(reg ColumnRegistry) *columnSet {
	return &columnSet{reg: reg, cache: map[string]map[string]bool{}}
}

// has reports whether column exists on table. Unknown tables and a nil
// registry accept every column.
func (s *columnSet) has(table, column string) bool {
	if s.reg == nil {
		return true
	}
	set, ok := s.cache[table]
	if !ok {
		cols, known := s.reg.Columns(table)
		if !known {
			s.cache[table] = nil
			return true
		}
		set = make(map[string]bool, len(cols))
		for _, c := range cols {
			set[c] = true
		}
		s.cache[table] = set
	}
	if set == nil {
		return true
	}
	return set[column]
}
