package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/billie-coop/typeahead/internal/logging"
	"github.com/billie-coop/typeahead/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the stand-in prediction service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := flags.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			logger := logging.New(os.Stderr, cfg.Debug)

			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			srv, err := server.New(server.Options{
				RatePerSecond: cfg.Server.RatePerSecond,
				Burst:         cfg.Server.Burst,
				MinLatency:    cfg.Server.MinLatency.Std(),
				MaxLatency:    cfg.Server.MaxLatency.Std(),
				Logger:        logger,
				Registry:      registry,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx, cfg.Server.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
