package engine

import (
	"context"

	"github.com/leapstack-labs/crossfilter/internal/graph"
	"github.com/leapstack-labs/crossfilter/pkg/core"
)

type versionKey struct {
	dataset string
	version int64
}

type tableKey struct {
	versionKey
	table string
}

// snapshot is a dataset's metadata at one version.
type snapshot struct {
	dataset *core.Dataset
	tables  []core.TableDescriptor
	graph   *graph.Graph
}

func (s *snapshot) table(name string) (core.TableDescriptor, bool) {
	for _, t := range s.tables {
		if t.Name == name {
			return t, true
		}
	}
	return core.TableDescriptor{}, false
}

func (s *snapshot) key() versionKey {
	return versionKey{dataset: s.dataset.ID, version: s.dataset.Version}
}

// load resolves the dataset and its tables. The relationship graph is built
// once per dataset version.
func (e *Engine) load(ctx context.Context, datasetRef string) (*snapshot, error) {
	ds, err := e.store.GetDataset(ctx, datasetRef)
	if err != nil {
		return nil, err
	}
	tables, err := e.store.GetTables(ctx, ds.ID)
	if err != nil {
		return nil, err
	}

	snap := &snapshot{dataset: ds, tables: tables}
	if g, ok := e.graphs.Get(snap.key()); ok {
		snap.graph = g
		return snap, nil
	}

	snap.graph = graph.New(tables)
	e.graphs.Add(snap.key(), snap.graph)
	e.logger.Debug("relationship graph built",
		"dataset", ds.Name,
		"version", ds.Version,
		"tables", snap.graph.NodeCount(),
		"edges", snap.graph.EdgeCount())
	return snap, nil
}

// Graph returns the relationship graph of the dataset.
func (e *Engine) Graph(ctx context.Context, datasetRef string) (*graph.Graph, error) {
	snap, err := e.load(ctx, datasetRef)
	if err != nil {
		return nil, err
	}
	return snap.graph, nil
}
