package engine

import (
	"context"

	"github.com/leapstack-labs/crossfilter/internal/compiler"
	"github.com/leapstack-labs/crossfilter/internal/filter"
)

// Plan shows how the filters act on one table.
type Plan struct {
	Table     string             `json:"table"`
	Effective *filter.Effective  `json:"effective"`
	SQL       string             `json:"sql,omitempty"`
	Args      []any              `json:"args,omitempty"`
	Debug     string             `json:"debug,omitempty"`
	Warnings  []compiler.Warning `json:"warnings,omitempty"`
}

// Explain classifies and compiles filters for every table of the dataset,
// in table name order. Nothing is executed against the store beyond column
// lookups.
func (e *Engine) Explain(ctx context.Context, datasetRef string, filters []filter.Node) ([]Plan, error) {
	snap, err := e.load(ctx, datasetRef)
	if err != nil {
		return nil, err
	}
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}

	effective := filter.ClassifyWith(filters, snap.tables, snap.graph, e.classify)
	plans := make([]Plan, 0, len(snap.tables))
	for _, t := range snap.tables {
		cond, err := e.condition(ctx, snap, t.Name, filters)
		if err != nil {
			return nil, err
		}
		query, args, err := cond.Render()
		if err != nil {
			return nil, err
		}
		plans = append(plans, Plan{
			Table:     t.Name,
			Effective: effective[t.Name],
			SQL:       query,
			Args:      args,
			Debug:     cond.Debug(),
			Warnings:  cond.Warnings,
		})
	}
	return plans, nil
}
