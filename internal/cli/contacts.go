package cli

import (
	"github.com/spf13/cobra"

	"github.com/tOgg1/nostrfeed/internal/models"
)

func newContactsCmd() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "List followed contacts",
		Long: `List the contacts whose posts make up the feed.

Configured contacts are shown as is. Otherwise the list remembered from the
last discovery is shown; --refresh rebuilds it from your published follow
list.`,
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

			var found []models.Contact
			if refresh && !cfg.HasExplicitContacts() {
				found, err = sess.service.DiscoverContacts(ctx)
			} else {
				found, err = sess.service.LoadContacts(ctx)
			}
			if err != nil {
				return err
			}

			return writeContacts(cmd, found, cfg.HasExplicitContacts())
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "rediscover contacts from your follow list")
	return cmd
}

func writeContacts(cmd *cobra.Command, found []models.Contact, explicit bool) error {
	origin := "discovered"
	if explicit {
		origin = "configured"
	}
	rows := make([][]string, 0, len(found))
	for _, c := range found {
		rows = append(rows, []string{c.DisplayName, c.Identity.String()})
	}
	if err := writeTable(cmd.OutOrStdout(), []string{"NAME", "IDENTITY"}, rows); err != nil {
		return err
	}
	printf(cmd, "\n%d contacts (%s)\n", len(found), origin)
	return nil
}
