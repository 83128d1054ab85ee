package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/leapstack-labs/crossfilter/pkg/core"
)

const datasetColumns = `id, name, version, created_at, updated_at`

// CreateDataset creates an empty dataset at version 1.
func (s *SQLiteStore) CreateDataset(ctx context.Context, name string) (*core.Dataset, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if name == "" {
		return nil, fmt.Errorf("dataset name is required")
	}

	ts := now()
	ds := &core.Dataset{ID: generateID(), Name: name, Version: 1, CreatedAt: ts, UpdatedAt: ts}

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM datasets WHERE name = ?`, name).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check dataset: %w", err)
	}
	if exists > 0 {
		return nil, fmt.Errorf("dataset %q already exists", name)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO datasets (id, name, version, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		ds.ID, ds.Name, ds.Version, ds.CreatedAt, ds.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create dataset: %w", err)
	}

	s.logger.Info("dataset created", "id", ds.ID, "name", ds.Name)
	return ds, nil
}

// GetDataset looks a dataset up by id or, failing that, by name.
func (s *SQLiteStore) GetDataset(ctx context.Context, ref string) (*core.Dataset, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	ds := &core.Dataset{}
	err := s.db.QueryRowContext(ctx,
		`SELECT `+datasetColumns+` FROM datasets WHERE id = ? OR name = ? ORDER BY id = ? DESC LIMIT 1`,
		ref, ref, ref,
	).Scan(&ds.ID, &ds.Name, &ds.Version, &ds.CreatedAt, &ds.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Kind: "dataset", Name: ref}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	return ds, nil
}

// ListDatasets returns every dataset ordered by name.
func (s *SQLiteStore) ListDatasets(ctx context.Context) ([]core.Dataset, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+datasetColumns+` FROM datasets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []core.Dataset
	for rows.Next() {
		var ds core.Dataset
		if err := rows.Scan(&ds.ID, &ds.Name, &ds.Version, &ds.CreatedAt, &ds.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		out = append(out, ds)
	}
	return out, rows.Err()
}

// DeleteDataset removes a dataset with its tables, relationships and
// display types.
func (s *SQLiteStore) DeleteDataset(ctx context.Context, ref string) error {
	ds, err := s.GetDataset(ctx, ref)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, ds.ID); err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	s.logger.Info("dataset deleted", "id", ds.ID, "name", ds.Name)
	return nil
}
