package commands

import (
	"sort"
	"strings"

	"github.com/leapstack-labs/crossfilter/internal/filter"
	"github.com/spf13/cobra"
)

// NewFiltersCommand creates the filters command.
func NewFiltersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filters",
		Short: "Show which filters act on each table",
		Long: `Classify filters per table of the dataset.

A filter is direct on the table it is tagged with and propagated to tables
related to it. Untagged filters act nowhere.`,
		Example: `  crossfilter filters -d clinical -f filters.yaml`,
		Args:    cobra.NoArgs,
		RunE:    runFilters,
	}
	addFilterFlags(cmd)
	return cmd
}

func runFilters(cmd *cobra.Command, _ []string) error {
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
	effective, err := cmdCtx.Engine.GetEffectiveFilters(cmd.Context(), dataset, filters)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.IsJSON() {
		return r.JSON(effective)
	}

	tables := make([]string, 0, len(effective))
	for name := range effective {
		tables = append(tables, name)
	}
	sort.Strings(tables)

	rows := make([][]any, len(tables))
	for i, name := range tables {
		eff := effective[name]
		rows[i] = []any{name, joinFilters(eff.Direct), joinFilters(eff.Propagated)}
	}
	r.Header(1, "effective filters")
	r.Table([]string{"Table", "Direct", "Propagated"}, rows)
	return nil
}

func joinFilters(nodes filter.List) string {
	if len(nodes) == 0 {
		return "-"
	}
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, "\n")
}
