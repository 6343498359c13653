package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tOgg1/nostrfeed/internal/compose"
)

func newPostCmd() *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Publish a note",
		Long: `Publish a text note.

Without --message the note is written in $VISUAL or $EDITOR. Pass
--message - to read it from stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, loader, err := loadConfig()
			if err != nil {
				return err
			}
			initLogging(cfg, false)

			ctx, cancel := signalContext(commandContext(cmd))
			defer cancel()

			content := message
			switch {
			case message == "-":
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				content = string(raw)
			case !cmd.Flags().Changed("message"):
				if !hasTTY() {
					return &PreflightError{
						Message:  "no terminal to open an editor in",
						NextStep: "nostrfeed post --message \"hello\"",
					}
				}
				content, err = compose.Run(ctx)
				if errors.Is(err, compose.ErrAborted) {
					fmt.Fprintln(cmd.ErrOrStderr(), "editor exited with an error, nothing published")
					return nil
				}
				if err != nil {
					return err
				}
			}
			if strings.TrimSpace(content) == "" {
				fmt.Fprintln(cmd.ErrOrStderr(), "empty note, nothing published")
				return nil
			}

			sess, err := openSession(ctx, cfg, loader, nil)
			if err != nil {
				return err
			}
			defer sess.Close()

			id, err := sess.service.Publish(ctx, content)
			if err != nil {
				return err
			}
			printf(cmd, "Published %s\n", id)
			PrintNextSteps(cmd.OutOrStdout(), HintContext{Action: "post", EventID: id})
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "note content, or - for stdin")
	return cmd
}
