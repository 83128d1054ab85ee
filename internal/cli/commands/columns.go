package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/crossfilter/pkg/core"
	"github.com/spf13/cobra"
)

// NewColumnsCommand creates the columns command.
func NewColumnsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "columns <table>",
		Short: "List a table's columns and their display types",
		Long: `List the columns of a table with the display type used to summarize them.
Display types are inferred from the column name, type and distinct values,
and can be overridden with --set (column=type). An empty type clears the
override.`,
		Example: `  crossfilter columns -d clinical patients
  crossfilter columns -d clinical patients --set site=categorical --set age=`,
		Args: cobra.ExactArgs(1),
		RunE: runColumns,
	}
	cmd.Flags().StringArray("set", nil, "override a display type (column=type)")
	return cmd
}

func runColumns(cmd *cobra.Command, args []string) error {
	overrides, _ := cmd.Flags().GetStringArray("set")

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	dataset, err := cmdCtx.Dataset()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	table := args[0]

	if len(overrides) > 0 {
		store := cmdCtx.Engine.Store()
		ds, err := store.GetDataset(ctx, dataset)
		if err != nil {
			return err
		}
		for _, o := range overrides {
			column, dt, ok := strings.Cut(o, "=")
			if !ok || column == "" {
				return fmt.Errorf("expected column=type, got %q", o)
			}
			if err := store.SetDisplayType(ctx, ds.ID, table, column, core.DisplayType(dt)); err != nil {
				return err
			}
		}
	}

	cols, err := cmdCtx.Engine.Columns(ctx, dataset, table)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.IsJSON() {
		return r.JSON(cols)
	}
	rows := make([][]any, len(cols))
	for i, c := range cols {
		rows[i] = []any{c.Name, c.Type, c.DisplayType}
	}
	r.Header(1, "columns of "+table)
	r.Table([]string{"Column", "Type", "Display"}, rows)
	return nil
}
