package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables of a dataset, or the datasets",
		Long: `List the tables of the selected dataset with row counts and relationships.
Without a dataset, list the known datasets.`,
		Example: `  crossfilter tables
  crossfilter tables -d clinical`,
		Args: cobra.NoArgs,
		RunE: runTables,
	}
}

func runTables(cmd *cobra.Command, _ []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	store := cmdCtx.Engine.Store()
	r := cmdCtx.Renderer

	if cmdCtx.Cfg.Dataset == "" {
		datasets, err := store.ListDatasets(ctx)
		if err != nil {
			return err
		}
		if r.IsJSON() {
			return r.JSON(datasets)
		}
		rows := make([][]any, len(datasets))
		for i, ds := range datasets {
			rows[i] = []any{ds.Name, ds.Version, ds.UpdatedAt.Format("2006-01-02 15:04")}
		}
		r.Header(1, "datasets")
		r.Table([]string{"Name", "Version", "Updated"}, rows)
		return nil
	}

	ds, err := store.GetDataset(ctx, cmdCtx.Cfg.Dataset)
	if err != nil {
		return err
	}
	tables, err := store.GetTables(ctx, ds.ID)
	if err != nil {
		return err
	}
	if r.IsJSON() {
		return r.JSON(tables)
	}

	rows := make([][]any, len(tables))
	for i, t := range tables {
		rels := make([]string, len(t.Relationships))
		for j, rel := range t.Relationships {
			rels[j] = fmt.Sprintf("%s -> %s.%s", rel.ForeignKeyColumn, rel.ReferencedTable, rel.ReferencedColumn)
		}
		rows[i] = []any{t.Name, t.RowCount, strings.Join(rels, "\n")}
	}
	r.Header(1, "tables of "+ds.Name)
	r.Table([]string{"Table", "Rows", "References"}, rows)
	return nil
}
