package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/crossfilter/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the aggregation API over HTTP",
		Long: `Start the HTTP API: effective filters, column and table aggregations,
session-held filter sets, rebinning, Prometheus metrics on /metrics and a
health check on /healthz.

The server stops gracefully on SIGINT or SIGTERM.`,
		Example: `  crossfilter serve
  crossfilter serve --addr 127.0.0.1:9000`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().String("addr", "", "listen address (default from config, :8080)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	cmdCtx, cleanup, err := newCommandContext(cmd, reg)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := cmdCtx.Cfg.Server
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		opts.Addr = addr
	}

	srv, err := server.NewServer(server.Config{
		Engine:   cmdCtx.Engine,
		Registry: reg,
		Logger:   cmdCtx.Logger,
		Options:  opts,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Serve(ctx)
}
