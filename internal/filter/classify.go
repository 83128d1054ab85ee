package filter

import (
	"github.com/leapstack-labs/crossfilter/internal/graph"
	"github.com/leapstack-labs/crossfilter/pkg/core"
)

// Effective is the set of filters acting on one table.
type Effective struct {
	// Direct filters are owned by the table itself.
	Direct List `json:"direct"`
	// Propagated filters are owned by a related table.
	Propagated List `json:"propagated"`
}

// All returns direct then propagated filters.
func (e *Effective) All() []Node {
	out := make([]Node, 0, len(e.Direct)+len(e.Propagated))
	out = append(out, e.Direct...)
	return append(out, e.Propagated...)
}

// Empty reports whether no filter acts on the table.
func (e *Effective) Empty() bool {
	return len(e.Direct) == 0 && len(e.Propagated) == 0
}

// ClassifyOptions tunes classification.
type ClassifyOptions struct {
	// Transitive propagates to every table reachable from the owning table
	// instead of only its direct neighbours.
	Transitive bool
}

// Classify places each filter on its owning table (Direct) and on every
// table one relationship away (Propagated). Every table gets an entry, even
// when no filter reaches it. Filters without an owning table are ignored.
func Classify(filters []Node, tables []core.TableDescriptor, g *graph.Graph) map[string]*Effective {
	return ClassifyWith(filters, tables, g, ClassifyOptions{})
}

// ClassifyWith is Classify with explicit options.
func ClassifyWith(filters []Node, tables []core.TableDescriptor, g *graph.Graph, opts ClassifyOptions) map[string]*Effective {
	out := make(map[string]*Effective, len(tables))
	for _, t := range tables {
		out[t.Name] = &Effective{Direct: List{}, Propagated: List{}}
	}

	for _, f := range filters {
		owner := OwningTable(f)
		if owner == "" {
			continue
		}
		if e, ok := out[owner]; ok {
			e.Direct = append(e.Direct, f)
		}

		if opts.Transitive {
			for _, t := range g.Reachable(owner) {
				if e, ok := out[t]; ok {
					e.Propagated = append(e.Propagated, f)
				}
			}
			continue
		}
		for _, t := range tables {
			if t.Name != owner && g.HasEdge(t.Name, owner) {
				out[t.Name].Propagated = append(out[t.Name].Propagated, f)
			}
		}
	}
	return out
}
