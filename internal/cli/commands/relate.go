package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/crossfilter/pkg/core"
	"github.com/spf13/cobra"
)

// NewRelateCommand creates the relate command.
func NewRelateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relate <table.column> <referenced_table.column>",
		Short: "Declare or remove a foreign key relationship between two tables",
		Long: `Declare that a column of one table references a column of another.
Filters propagate between related tables in both directions.`,
		Example: `  crossfilter relate -d clinical samples.patient_id patients.patient_id
  crossfilter relate -d clinical samples.patient_id patients.patient_id --remove`,
		Args: cobra.ExactArgs(2),
		RunE: runRelate,
	}
	cmd.Flags().String("kind", "many-to-one", "relationship kind, informational")
	cmd.Flags().Bool("remove", false, "remove the relationship instead")
	return cmd
}

func splitQualified(s string) (table, column string, err error) {
	table, column, ok := strings.Cut(s, ".")
	if !ok || table == "" || column == "" {
		return "", "", fmt.Errorf("expected table.column, got %q", s)
	}
	return table, column, nil
}

func runRelate(cmd *cobra.Command, args []string) error {
	table, fk, err := splitQualified(args[0])
	if err != nil {
		return err
	}
	refTable, refColumn, err := splitQualified(args[1])
	if err != nil {
		return err
	}
	kind, _ := cmd.Flags().GetString("kind")
	remove, _ := cmd.Flags().GetBool("remove")

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
	store := cmdCtx.Engine.Store()
	ds, err := store.GetDataset(ctx, dataset)
	if err != nil {
		return err
	}

	rel := core.Relationship{ForeignKeyColumn: fk, ReferencedTable: refTable, ReferencedColumn: refColumn, Kind: kind}
	verb := "added"
	if remove {
		err = store.RemoveRelationship(ctx, ds.ID, table, fk, refTable)
		verb = "removed"
	} else {
		err = store.AddRelationship(ctx, ds.ID, table, rel)
	}
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.IsJSON() {
		return r.JSON(map[string]any{"table": table, "relationship": rel, "status": verb})
	}
	r.Success(fmt.Sprintf("%s %s.%s -> %s.%s", verb, table, fk, refTable, refColumn))
	return nil
}
