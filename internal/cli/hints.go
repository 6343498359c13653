package cli

import (
	"fmt"
	"io"
)

// HintContext describes the command that just succeeded.
type HintContext struct {
	// Action is the command that ran ("fetch", "post").
	Action string

	// Added is how many posts a fetch added.
	Added int

	// EventID is the published note id.
	EventID string
}

// PrintNextSteps prints follow-up commands after a successful command.
func PrintNextSteps(out io.Writer, ctx HintContext) {
	hints := generateHints(ctx)
	if len(hints) == 0 {
		return
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	for _, hint := range hints {
		fmt.Fprintf(out, "  %s\n", hint)
	}
}

func generateHints(ctx HintContext) []string {
	switch ctx.Action {
	case "fetch":
		if ctx.Added == 0 {
			return []string{
				"nostrfeed contacts --refresh   # Check who is followed",
			}
		}
		return []string{
			"nostrfeed                      # Browse the feed",
		}
	case "post":
		return []string{
			"nostrfeed fetch                # Pull replies into the cache",
		}
	default:
		return nil
	}
}
