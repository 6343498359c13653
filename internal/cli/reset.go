package cli

import (
	"github.com/spf13/cobra"

	"github.com/tOgg1/nostrfeed/internal/config"
)

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget the fetch checkpoint and remembered contacts",
		Long: `Remove the session file. The next fetch reaches back over the full
lookback window and contacts are rediscovered from your follow list.

Cached posts are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, loader, err := loadConfig()
			if err != nil {
				return err
			}
			initLogging(cfg, false)

			dir, err := loader.ConfigDir()
			if err != nil {
				return err
			}
			path, err := resetSession(dir)
			if err != nil {
				return err
			}
			printf(cmd, "session cleared (%s)\n", path)
			return nil
		},
	}
}

// resetSession clears the session stored in dir and returns its path.
func resetSession(dir string) (string, error) {
	sessions, err := config.DefaultSessionStore(dir)
	if err != nil {
		return "", err
	}
	if err := sessions.Clear(); err != nil {
		return "", err
	}
	return sessions.Path(), nil
}
