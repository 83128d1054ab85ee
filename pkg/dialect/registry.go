package dialect

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Store dialects by lowercased name. An adapter's DialectName picks its
// entry; the built-in DuckDB and Postgres dialects are present from init.
var (
	storeDialectsMu sync.RWMutex
	storeDialects   = map[string]*Dialect{}
)

// UnknownDialectError reports a store whose dialect was never registered.
type UnknownDialectError struct {
	Name      string
	Available []string
}

func (e *UnknownDialectError) Error() string {
	return fmt.Sprintf("no SQL dialect registered for %q (known: %s)", e.Name, strings.Join(e.Available, ", "))
}

// Register adds or replaces a store dialect.
func Register(d *Dialect) {
	if d == nil || d.Name == "" {
		panic("dialect: Register requires a named dialect")
	}
	storeDialectsMu.Lock()
	defer storeDialectsMu.Unlock()
	storeDialects[strings.ToLower(d.Name)] = d
}

// Get looks a dialect up case-insensitively.
func Get(name string) (*Dialect, bool) {
	storeDialectsMu.RLock()
	defer storeDialectsMu.RUnlock()
	d, ok := storeDialects[strings.ToLower(name)]
	return d, ok
}

// Resolve is Get with an UnknownDialectError for missing names.
func Resolve(name string) (*Dialect, error) {
	if d, ok := Get(name); ok {
		return d, nil
	}
	return nil, &UnknownDialectError{Name: name, Available: List()}
}

// List returns the registered dialect names in order.
func List() []string {
	storeDialectsMu.RLock()
	defer storeDialectsMu.RUnlock()
	names := make([]string, 0, len(storeDialects))
	for name := range storeDialects {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
