package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tOgg1/nostrfeed/internal/logging"
	"github.com/tOgg1/nostrfeed/internal/tui"
)

// PreflightError is a failure the user can fix before retrying.
type PreflightError struct {
	Message  string
	Hint     string
	NextStep string
}

func (e *PreflightError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	if e.NextStep != "" {
		msg += "\n  try:  " + e.NextStep
	}
	return msg
}

func hasTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// runBrowse bootstraps the cache when needed and opens the feed view.
func runBrowse(cmd *cobra.Command) error {
	if !hasTTY() {
		return &PreflightError{
			Message:  "browsing requires an interactive terminal",
			Hint:     "use a subcommand when running from scripts",
			NextStep: "nostrfeed fetch",
		}
	}

	cfg, loader, err := loadConfig()
	if err != nil {
		return err
	}
	initLogging(cfg, true)
	logger := logging.Component("browse")

	ctx, cancel := signalContext(commandContext(cmd))
	defer cancel()

	sess, err := openSession(ctx, cfg, loader, nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	bootstrap, err := sess.service.NeedsBootstrap(ctx)
	if err != nil {
		return err
	}
	if bootstrap {
		fmt.Fprintln(cmd.ErrOrStderr(), "Fetching the last week of posts…")
		batch, err := sess.service.Bootstrap(ctx)
		if err != nil {
			// Whatever reached the cache is still worth showing.
			logger.Error().Err(err).Msg("initial fetch failed")
			fmt.Fprintf(cmd.ErrOrStderr(), "initial fetch: %v\n", err)
		} else if len(batch.Failures) > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "%d contacts could not be fetched\n", len(batch.Failures))
		}
	}

	posts, err := sess.service.CachedPosts(ctx)
	if err != nil {
		return err
	}

	return tui.Run(ctx, sess.service, posts, tui.Config{
		PollInterval: cfg.TUI.PollInterval,
		PageSize:     cfg.TUI.PageSize,
		ShowThreads:  cfg.TUI.ShowThreads,
	})
}
