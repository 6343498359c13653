// Package styles holds the browse view's palettes and post rendering styles.
package styles

import "github.com/charmbracelet/lipgloss"

// BaseColors defines global UI colors.
type BaseColors struct {
	Foreground string
	Muted      string
	Accent     string
	Border     string
}

// ChromeColors defines non-content UI colors.
type ChromeColors struct {
	Header       string
	Footer       string
	SelectedItem string
	Error        string
}

// Theme defines the browse view style tokens.
type Theme struct {
	Name          string
	AuthorPalette []string // ANSI-256 codes for author identity colors

	Base   BaseColors
	Chrome ChromeColors
}

// DefaultTheme is the baseline dark palette.
var DefaultTheme = Theme{
	Name:          "default",
	AuthorPalette: append([]string(nil), AuthorColorPalette...),
	Base: BaseColors{
		Foreground: "252",
		Muted:      "245",
		Accent:     "75",
		Border:     "240",
	},
	Chrome: ChromeColors{
		Header:       "111",
		Footer:       "110",
		SelectedItem: "75",
		Error:        "203",
	},
}

// HighContrastTheme favors legibility on low-quality terminals.
var HighContrastTheme = Theme{
	Name: "high-contrast",
	Base: BaseColors{
		Foreground: "231",
		Muted:      "250",
		Accent:     "51",
		Border:     "231",
	},
	Chrome: ChromeColors{
		Header:       "117",
		Footer:       "159",
		SelectedItem: "51",
		Error:        "196",
	},
}

// Themes lists available palettes by name.
var Themes = map[string]Theme{
	"default":       DefaultTheme,
	"high-contrast": HighContrastTheme,
}

// Lookup returns the named theme, or the default.
func Lookup(name string) Theme {
	if t, ok := Themes[name]; ok {
		return t
	}
	return DefaultTheme
}

func (t Theme) color(code string) lipgloss.Color {
	return lipgloss.Color(code)
}
