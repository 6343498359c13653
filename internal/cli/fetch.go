package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/tOgg1/nostrfeed/internal/feed"
)

func newFetchCmd() *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch new posts into the cache",
		Long: `Fetch posts published since the last fetch and add them to the cache.

The first fetch, or one run with --full, reaches back over the configured
lookback window.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, loader, err := loadConfig()
			if err != nil {
				return err
			}
			initLogging(cfg, false)

			ctx, cancel := signalContext(commandContext(cmd))
			defer cancel()

			sess, err := openSession(ctx, cfg, loader, nil)
			if err != nil {
				return err
			}
			defer sess.Close()

			var batch feed.Batch
			if full {
				batch, err = sess.service.Bootstrap(ctx)
			} else {
				batch, err = sess.service.Refresh(ctx)
			}
			if len(batch.Posts) > 0 || batch.Since > 0 {
				printBatch(cmd, batch)
			}
			if err != nil {
				return err
			}
			PrintNextSteps(cmd.OutOrStdout(), HintContext{Action: "fetch", Added: batch.Added})
			return nil
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "fetch the whole lookback window instead of since the last fetch")
	return cmd
}

func printBatch(cmd *cobra.Command, batch feed.Batch) {
	printf(cmd, "Fetched %d posts since %s (%d new) in %s\n",
		len(batch.Posts),
		time.Unix(batch.Since, 0).Local().Format(time.DateTime),
		batch.Added,
		batch.Duration.Round(time.Millisecond))
	if len(batch.Failures) == 0 {
		return
	}

	rows := make([][]string, 0, len(batch.Failures))
	for _, f := range batch.Failures {
		rows = append(rows, []string{f.Contact.DisplayName, f.Kind(), f.Err.Error()})
	}
	printf(cmd, "\n%d contacts failed:\n", len(batch.Failures))
	_ = writeTable(cmd.OutOrStdout(), []string{"CONTACT", "KIND", "ERROR"}, rows)
}
