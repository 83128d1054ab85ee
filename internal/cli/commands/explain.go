package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewExplainCommand creates the explain command.
func NewExplainCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Print the row condition compiled for each table",
		Long: `Compile the filters into the WHERE condition each table's aggregations
would use, without running them.`,
		Example: `  crossfilter explain -d clinical \
    --where '[{"column":"status","operator":"eq","value":"Active","tableName":"patients"}]'`,
		Args: cobra.NoArgs,
		RunE: runExplain,
	}
	addFilterFlags(cmd)
	return cmd
}

func runExplain(cmd *cobra.Command, _ []string) error {
	filters, err := readFilters(cmd)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	dataset, err := cmdCtx.Dataset()
	if err != nil {
		return err
	}
	plans, err := cmdCtx.Engine.Explain(cmd.Context(), dataset, filters)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.IsJSON() {
		return r.JSON(plans)
	}
	for i, p := range plans {
		if i > 0 {
			r.Println()
		}
		r.Header(1, p.Table)
		if p.SQL == "" {
			r.Println("  (all rows)")
		} else {
			r.KeyValue("Where", p.SQL)
			r.KeyValue("Args", fmt.Sprint(p.Args))
			r.KeyValue("Inlined", p.Debug)
		}
		renderWarnings(r, p.Warnings)
	}
	return nil
}
