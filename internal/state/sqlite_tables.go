package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/leapstack-labs/crossfilter/pkg/core"
)

// RegisterTable records a table of the dataset, replacing the row count of
// an existing registration.
func (s *SQLiteStore) RegisterTable(ctx context.Context, datasetID, name string, rowCount int64) error {
	if name == "" {
		return fmt.Errorf("table name is required")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO dataset_tables (id, dataset_id, name, row_count, created_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT (dataset_id, name) DO UPDATE SET row_count = excluded.row_count`,
			generateID(), datasetID, name, rowCount, now(),
		)
		if err != nil {
			return fmt.Errorf("failed to register table: %w", err)
		}
		return bumpVersion(ctx, tx, datasetID)
	})
}

// RemoveTable deletes a table registration and everything declared on it.
func (s *SQLiteStore) RemoveTable(ctx context.Context, datasetID, name string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM dataset_tables WHERE dataset_id = ? AND name = ?`, datasetID, name)
		if err != nil {
			return fmt.Errorf("failed to remove table: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &NotFoundError{Kind: "table", Name: name}
		}
		return bumpVersion(ctx, tx, datasetID)
	})
}

// GetTables returns the dataset's tables ordered by name, each with its
// declared relationships.
func (s *SQLiteStore) GetTables(ctx context.Context, datasetID string) ([]core.TableDescriptor, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT t.name, t.row_count,
		        r.foreign_key_column, r.referenced_table, r.referenced_column, r.kind
		 FROM dataset_tables t
		 LEFT JOIN relationships r ON r.table_id = t.id
		 WHERE t.dataset_id = ?
		 ORDER BY t.name, r.foreign_key_column, r.referenced_table`,
		datasetID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []core.TableDescriptor
	for rows.Next() {
		var (
			name                 string
			rowCount             int64
			fk, refTable, refCol sql.NullString
			kind                 sql.NullString
		)
		if err := rows.Scan(&name, &rowCount, &fk, &refTable, &refCol, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		if len(out) == 0 || out[len(out)-1].Name != name {
			out = append(out, core.TableDescriptor{Name: name, RowCount: rowCount})
		}
		if fk.Valid {
			t := &out[len(out)-1]
			t.Relationships = append(t.Relationships, core.Relationship{
				ForeignKeyColumn: fk.String,
				ReferencedTable:  refTable.String,
				ReferencedColumn: refCol.String,
				Kind:             kind.String,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get tables: %w", err)
	}
	return out, nil
}

// GetTable returns one table of the dataset.
func (s *SQLiteStore) GetTable(ctx context.Context, datasetID, name string) (*core.TableDescriptor, error) {
	tables, err := s.GetTables(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	i := sort.Search(len(tables), func(i int) bool { return tables[i].Name >= name })
	if i == len(tables) || tables[i].Name != name {
		return nil, &NotFoundError{Kind: "table", Name: name}
	}
	return &tables[i], nil
}

// GetRelationships returns the relationships declared on table.
func (s *SQLiteStore) GetRelationships(ctx context.Context, datasetID, table string) ([]core.Relationship, error) {
	t, err := s.GetTable(ctx, datasetID, table)
	if err != nil {
		return nil, err
	}
	return t.Relationships, nil
}

// AddRelationship declares that table.ForeignKeyColumn references
// ReferencedTable.ReferencedColumn. Both tables must be registered.
// Declaring the same foreign key again replaces the referenced column and kind.
func (s *SQLiteStore) AddRelationship(ctx context.Context, datasetID, table string, rel core.Relationship) error {
	if rel.ForeignKeyColumn == "" || rel.ReferencedTable == "" || rel.ReferencedColumn == "" {
		return fmt.Errorf("relationship requires foreign key, referenced table and referenced column")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		id, err := tableID(ctx, tx, datasetID, table)
		if err != nil {
			return err
		}
		if _, err := tableID(ctx, tx, datasetID, rel.ReferencedTable); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO relationships (id, table_id, foreign_key_column, referenced_table, referenced_column, kind)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (table_id, foreign_key_column, referenced_table)
			 DO UPDATE SET referenced_column = excluded.referenced_column, kind = excluded.kind`,
			generateID(), id, rel.ForeignKeyColumn, rel.ReferencedTable, rel.ReferencedColumn, rel.Kind,
		)
		if err != nil {
			return fmt.Errorf("failed to add relationship: %w", err)
		}
		return bumpVersion(ctx, tx, datasetID)
	})
}

// RemoveRelationship drops the relationship on table.fkColumn referencing refTable.
func (s *SQLiteStore) RemoveRelationship(ctx context.Context, datasetID, table, fkColumn, refTable string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		id, err := tableID(ctx, tx, datasetID, table)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`DELETE FROM relationships WHERE table_id = ? AND foreign_key_column = ? AND referenced_table = ?`,
			id, fkColumn, refTable,
		)
		if err != nil {
			return fmt.Errorf("failed to remove relationship: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &NotFoundError{Kind: "relationship", Name: table + "." + fkColumn + " -> " + refTable}
		}
		return bumpVersion(ctx, tx, datasetID)
	})
}

// SetDisplayType overrides the inferred display type of a column. An empty
// display type clears the override.
func (s *SQLiteStore) SetDisplayType(ctx context.Context, datasetID, table, column string, dt core.DisplayType) error {
	if dt != "" && !dt.Valid() {
		return fmt.Errorf("unsupported display type %q", dt)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		id, err := tableID(ctx, tx, datasetID, table)
		if err != nil {
			return err
		}
		if dt == "" {
			_, err = tx.ExecContext(ctx,
				`DELETE FROM column_display_types WHERE table_id = ? AND column_name = ?`, id, column)
		} else {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO column_display_types (table_id, column_name, display_type) VALUES (?, ?, ?)
				 ON CONFLICT (table_id, column_name) DO UPDATE SET display_type = excluded.display_type`,
				id, column, string(dt),
			)
		}
		if err != nil {
			return fmt.Errorf("failed to set display type: %w", err)
		}
		return bumpVersion(ctx, tx, datasetID)
	})
}

// GetDisplayTypes returns the display type overrides of table, keyed by column.
func (s *SQLiteStore) GetDisplayTypes(ctx context.Context, datasetID, table string) (map[string]core.DisplayType, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT d.column_name, d.display_type
		 FROM column_display_types d
		 JOIN dataset_tables t ON t.id = d.table_id
		 WHERE t.dataset_id = ? AND t.name = ?`,
		datasetID, table,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get display types: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := map[string]core.DisplayType{}
	for rows.Next() {
		var col, dt string
		if err := rows.Scan(&col, &dt); err != nil {
			return nil, fmt.Errorf("failed to scan display type: %w", err)
		}
		out[col] = core.DisplayType(dt)
	}
	return out, rows.Err()
}

func tableID(ctx context.Context, tx *sql.Tx, datasetID, name string) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM dataset_tables WHERE dataset_id = ? AND name = ?`, datasetID, name,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", &NotFoundError{Kind: "table", Name: name}
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up table: %w", err)
	}
	return id, nil
}
