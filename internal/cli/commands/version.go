package commands

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/leapstack-labs/crossfilter/internal/cli/output"
	"github.com/leapstack-labs/crossfilter/pkg/adapter"
	"github.com/leapstack-labs/crossfilter/pkg/dialect"
	"github.com/spf13/cobra"
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version   string   `json:"version"`
	GitCommit string   `json:"git_commit"`
	BuildDate string   `json:"build_date"`
	GoVersion string   `json:"go_version"`
	Stores    []string `json:"stores"`
	Dialects  []string `json:"dialects"`
}

// NewVersionCommand creates the version command. The output is text unless
// --output json is given, since version runs without loading a config.
func NewVersionCommand(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the crossfilter version, build metadata and the store types compiled in.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info.GoVersion = runtime.Version()
			info.Stores = adapter.ListAdapters()
			info.Dialects = dialect.List()

			mode, _ := cmd.Flags().GetString("output")
			if output.Mode(mode) != output.ModeJSON {
				mode = string(output.ModeText)
			}
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(mode))
			if r.IsJSON() {
				return r.JSON(info)
			}

			r.Println(fmt.Sprintf("crossfilter v%s", info.Version))
			r.KeyValue("Commit", info.GitCommit)
			r.KeyValue("Built", info.BuildDate)
			r.KeyValue("Go", info.GoVersion)
			r.KeyValue("Stores", strings.Join(info.Stores, ", "))
			r.KeyValue("Dialects", strings.Join(info.Dialects, ", "))
			return nil
		},
	}
}
