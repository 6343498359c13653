package tui

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// sanitize strips markup and terminal control sequences from post content so
// it renders as plain text.
func sanitize(content string) string {
	stripped := html.UnescapeString(strictPolicy.Sanitize(content))
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == '\r':
			return -1
		case unicode.IsControl(r):
			return -1
		default:
			return r
		}
	}, stripped)
}
