package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/tOgg1/nostrfeed/internal/stream"
)

func newStreamCmd() *cobra.Command {
	var (
		schedule string
		addr     string
	)
	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Fetch on a schedule and serve metrics",
		Long: `Keep the cache fresh without a terminal.

Fetches once at start, then on the configured cron schedule. An HTTP server
exposes /healthz, /metrics and /feed until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, loader, err := loadConfig()
			if err != nil {
				return err
			}
			if schedule != "" {
				cfg.Stream.Schedule = schedule
			}
			if cmd.Flags().Changed("addr") {
				cfg.Stream.Addr = addr
			}
			initLogging(cfg, false)

			ctx, cancel := signalContext(commandContext(cmd))
			defer cancel()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			sess, err := openSession(ctx, cfg, loader, reg)
			if err != nil {
				return err
			}
			defer sess.Close()

			runner, err := stream.New(sess.service, stream.Config{
				Schedule: cfg.Stream.Schedule,
				Addr:     cfg.Stream.Addr,
				Gatherer: reg,
			})
			if err != nil {
				return err
			}
			if bound, err := runner.Listen(); err != nil {
				return err
			} else if bound != nil {
				printf(cmd, "Serving on http://%s (schedule %s)\n", bound, cfg.Stream.Schedule)
			}
			return runner.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron schedule, e.g. \"@every 5m\" or \"*/10 * * * *\"")
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address, empty to disable")
	return cmd
}
