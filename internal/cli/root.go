// Package cli implements the nostrfeed command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tOgg1/nostrfeed/internal/config"
	"github.com/tOgg1/nostrfeed/internal/logging"
)

// Global flags
var (
	cfgFile   string
	logLevel  string
	logFormat string
)

// Execute runs the root command.
func Execute(version string) error {
	return newRootCmd(version).Execute()
}

func newRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nostrfeed",
		Short: "A minimal Nostr feed reader",
		Long: `nostrfeed follows the people you follow on Nostr.

Run without a subcommand to browse the feed. Use fetch to update the cache
from a script, post to publish a note, stream to refresh on a schedule and
contacts to show who is followed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/nostrfeed/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override logging format (json, console)")

	cmd.AddCommand(
		newFetchCmd(),
		newPostCmd(),
		newStreamCmd(),
		newContactsCmd(),
		newResetCmd(),
	)
	return cmd
}

// loadConfig reads configuration and applies flag overrides.
func loadConfig() (*config.Config, *config.Loader, error) {
	loader := config.NewLoader()
	if cfgFile != "" {
		loader.SetConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	return cfg, loader, nil
}

// initLogging configures the global logger. When quiet is set, logs go only
// to the configured file so a full-screen view keeps the terminal.
func initLogging(cfg *config.Config, quiet bool) {
	if quiet && cfg.Logging.File == "" {
		logging.Discard()
		return
	}
	logging.Init(logging.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Output:       os.Stderr,
		File:         cfg.Logging.File,
		MaxSizeMB:    logging.DefaultConfig().MaxSizeMB,
		MaxBackups:   logging.DefaultConfig().MaxBackups,
		EnableCaller: cfg.Logging.EnableCaller,
	})
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
