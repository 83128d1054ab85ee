package engine

// load.go - CSV loading into the analytical store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/crossfilter/internal/state"
)

// LoadTable loads a CSV file into the store as table and registers it, with
// its row count, in the dataset. The dataset is created when missing.
func (e *Engine) LoadTable(ctx context.Context, datasetRef, table, csvPath string) (int64, error) {
	if err := e.ensureDBConnected(ctx); err != nil {
		return 0, err
	}

	ds, err := e.store.GetDataset(ctx, datasetRef)
	if state.IsNotFound(err) {
		ds, err = e.store.CreateDataset(ctx, datasetRef)
	}
	if err != nil {
		return 0, err
	}

	e.logger.Debug("loading table", "dataset", ds.Name, "table", table, "path", csvPath)

	if err := e.db.LoadCSV(ctx, table, csvPath); err != nil {
		return 0, fmt.Errorf("failed to load %s: %w", csvPath, err)
	}
	meta, err := e.db.GetTableMetadata(ctx, table)
	if err != nil {
		return 0, err
	}
	if err := e.store.RegisterTable(ctx, ds.ID, table, meta.RowCount); err != nil {
		return 0, err
	}

	e.logger.Info("table loaded", "dataset", ds.Name, "table", table, "rows", meta.RowCount)
	return meta.RowCount, nil
}

// LoadDir loads every CSV file of dir, naming each table after its file.
// It returns the loaded table names in directory order.
func (e *Engine) LoadDir(ctx context.Context, datasetRef, dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var loaded []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		table := strings.TrimSuffix(entry.Name(), ".csv")
		if _, err := e.LoadTable(ctx, datasetRef, table, filepath.Join(dir, entry.Name())); err != nil {
			return loaded, fmt.Errorf("failed to load %s: %w", entry.Name(), err)
		}
		loaded = append(loaded, table)
	}
	return loaded, nil
}
