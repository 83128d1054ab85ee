// Package graph provides the table relationship graph used to route filters
// between tables of a dataset.
//
// Relationships are declared in one direction (a foreign key column on one
// table referencing a column on another) but are traversed in both. The
// graph is immutable after construction and safe for concurrent readers.
package graph

import (
	"sort"

	"github.com/leapstack-labs/crossfilter/pkg/core"
)

// Edge describes how two adjacent tables join, from the point of view of From.
type Edge struct {
	From string
	To   string
	// LocalColumn is the join column on From.
	LocalColumn string
	// RemoteColumn is the join column on To.
	RemoteColumn string
	// Kind is informational ("many-to-one", "one-to-many", ...).
	Kind string
	// Declared is true when From holds the foreign key.
	Declared bool
}

// Graph is an undirected adjacency view over declared relationships.
type Graph struct {
	tables    map[string]*core.TableDescriptor
	declared  map[string][]core.Relationship // table -> relationships it declares
	adjacency map[string][]string            // table -> sorted neighbours
}

// New builds a graph from table descriptors. Referenced tables that have no
// descriptor of their own still become nodes. Self-referencing relationships
// are kept for Edge lookups but never create adjacency.
func New(tables []core.TableDescriptor) *Graph {
	g := &Graph{
		tables:    make(map[string]*core.TableDescriptor, len(tables)),
		declared:  make(map[string][]core.Relationship, len(tables)),
		adjacency: make(map[string][]string, len(tables)),
	}

	for i := range tables {
		t := tables[i]
		g.tables[t.Name] = &t
		g.addNode(t.Name)
	}

	for name, t := range g.tables {
		for _, rel := range t.Relationships {
			g.declared[name] = append(g.declared[name], rel)
			g.addNode(rel.ReferencedTable)
			if rel.ReferencedTable == name {
				continue
			}
			g.link(name, rel.ReferencedTable)
			g.link(rel.ReferencedTable, name)
		}
	}

	for name := range g.adjacency {
		sort.Strings(g.adjacency[name])
	}
	return g
}

func (g *Graph) addNode(name string) {
	if _, ok := g.adjacency[name]; !ok {
		g.adjacency[name] = []string{}
	}
}

func (g *Graph) link(a, b string) {
	for _, n := range g.adjacency[a] {
		if n == b {
			return
		}
	}
	g.adjacency[a] = append(g.adjacency[a], b)
}

// HasEdge reports whether a declares a relationship referencing b or b
// declares one referencing a.
func (g *Graph) HasEdge(a, b string) bool {
	if a == b {
		return false
	}
	for _, n := range g.adjacency[a] {
		if n == b {
			return true
		}
	}
	return false
}

// Edge returns the join columns between adjacent tables a and b. A foreign
// key held by a is preferred over one held by b.
func (g *Graph) Edge(a, b string) (Edge, bool) {
	for _, rel := range g.declared[a] {
		if rel.ReferencedTable == b {
			return Edge{
				From:         a,
				To:           b,
				LocalColumn:  rel.ForeignKeyColumn,
				RemoteColumn: rel.ReferencedColumn,
				Kind:         rel.Kind,
				Declared:     true,
			}, true
		}
	}
	for _, rel := range g.declared[b] {
		if rel.ReferencedTable == a {
			return Edge{
				From:         a,
				To:           b,
				LocalColumn:  rel.ReferencedColumn,
				RemoteColumn: rel.ForeignKeyColumn,
				Kind:         rel.Kind,
			}, true
		}
	}
	return Edge{}, false
}

// FindPath returns the shortest chain of tables from one table to another,
// inclusive of both ends. It returns nil when from == to or when no path
// exists. Neighbours are visited in name order so equal-length paths are
// chosen deterministically.
func (g *Graph) FindPath(from, to string) []string {
	if from == to {
		return nil
	}
	if _, ok := g.adjacency[from]; !ok {
		return nil
	}
	if _, ok := g.adjacency[to]; !ok {
		return nil
	}

	prev := map[string]string{from: ""}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.adjacency[cur] {
			if _, seen := prev[next]; seen {
				continue
			}
			prev[next] = cur
			if next == to {
				return unwind(prev, from, to)
			}
			queue = append(queue, next)
		}
	}
	return nil
}

func unwind(prev map[string]string, from, to string) []string {
	var path []string
	for cur := to; cur != from; cur = prev[cur] {
		path = append(path, cur)
	}
	path = append(path, from)
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Neighbors returns the tables directly related to name, sorted.
func (g *Graph) Neighbors(name string) []string {
	out := make([]string, len(g.adjacency[name]))
	copy(out, g.adjacency[name])
	return out
}

// Reachable returns every table connected to name by any path, excluding
// name itself, sorted.
func (g *Graph) Reachable(name string) []string {
	if _, ok := g.adjacency[name]; !ok {
		return nil
	}
	seen := map[string]bool{name: true}
	stack := []string{name}
	var out []string
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range g.adjacency[cur] {
			if seen[next] {
				continue
			}
			seen[next] = true
			out = append(out, next)
			stack = append(stack, next)
		}
	}
	sort.Strings(out)
	return out
}

// Table returns the descriptor for name, if one was supplied.
func (g *Graph) Table(name string) (*core.TableDescriptor, bool) {
	t, ok := g.tables[name]
	return t, ok
}

// Tables returns every node name, sorted.
func (g *Graph) Tables() []string {
	names := make([]string, 0, len(g.adjacency))
	for name := range g.adjacency {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NodeCount returns the number of tables in the graph.
func (g *Graph) NodeCount() int {
	return len(g.adjacency)
}

// EdgeCount returns the number of undirected table pairs.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, ns := range g.adjacency {
		count += len(ns)
	}
	return count / 2
}
