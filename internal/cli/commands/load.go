package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// NewLoadCommand creates the load command.
func NewLoadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load [table] <file.csv>",
		Short: "Load CSV files into the store and register them in the dataset",
		Long: `Load a CSV file as a table of the analytical store and register it,
with its row count, in the dataset. The dataset is created when missing.

With --dir every CSV file of a directory is loaded, one table per file.`,
		Example: `  crossfilter load -d clinical patients data/patients.csv
  crossfilter load -d clinical data/samples.csv
  crossfilter load -d clinical --dir data/`,
		Args: cobra.RangeArgs(0, 2),
		RunE: runLoad,
	}
	cmd.Flags().String("dir", "", "load every CSV file of a directory")
	return cmd
}

func runLoad(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	if (dir == "") == (len(args) == 0) {
		return fmt.Errorf("give either a CSV file or --dir")
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
	r := cmdCtx.Renderer
	ctx := cmd.Context()

	type loaded struct {
		Table string `json:"table"`
		Rows  int64  `json:"rows,omitempty"`
	}
	var results []loaded

	if dir != "" {
		tables, err := cmdCtx.Engine.LoadDir(ctx, dataset, dir)
		if err != nil {
			return err
		}
		for _, t := range tables {
			results = append(results, loaded{Table: t})
		}
	} else {
		path := args[len(args)-1]
		table := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if len(args) == 2 {
			table = args[0]
		}
		rows, err := cmdCtx.Engine.LoadTable(ctx, dataset, table, path)
		if err != nil {
			return err
		}
		results = append(results, loaded{Table: table, Rows: rows})
	}

	if r.IsJSON() {
		return r.JSON(results)
	}
	for _, l := range results {
		if l.Rows > 0 {
			r.Success(fmt.Sprintf("loaded %s (%d rows) into %s", l.Table, l.Rows, dataset))
		} else {
			r.Success(fmt.Sprintf("loaded %s into %s", l.Table, dataset))
		}
	}
	return nil
}
