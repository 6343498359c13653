package styles

import (
	"hash/fnv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// AuthorColorPalette is a curated ANSI 256 palette for stable author colors.
// Red slots are left for error text.
var AuthorColorPalette = []string{
	"33", "39", "45", "69", "75", "81", "87", "99",
	"111", "117", "123", "147", "153", "159", "183", "189",
}

// AuthorColorMapper resolves deterministic per-author styles and caches them.
type AuthorColorMapper struct {
	palette []string

	mu    sync.RWMutex
	cache map[string]lipgloss.Style
}

// NewAuthorColorMapper returns a mapper over palette, or the default palette
// when palette is empty.
func NewAuthorColorMapper(palette []string) *AuthorColorMapper {
	if len(palette) == 0 {
		palette = AuthorColorPalette
	}
	return &AuthorColorMapper{
		palette: append([]string(nil), palette...),
		cache:   make(map[string]lipgloss.Style, 64),
	}
}

// Foreground returns a cached bold foreground style for author.
func (m *AuthorColorMapper) Foreground(author string) lipgloss.Style {
	key := normalizeAuthor(author)

	m.mu.RLock()
	if style, ok := m.cache[key]; ok {
		m.mu.RUnlock()
		return style
	}
	m.mu.RUnlock()

	style := lipgloss.NewStyle().Foreground(lipgloss.Color(m.ColorCode(key))).Bold(true)

	m.mu.Lock()
	m.cache[key] = style
	m.mu.Unlock()

	return style
}

// ColorCode returns the ANSI-256 color code selected for author.
func (m *AuthorColorMapper) ColorCode(author string) string {
	return m.palette[hashToPalette(normalizeAuthor(author), len(m.palette))]
}

func normalizeAuthor(author string) string {
	normalized := strings.ToLower(strings.TrimSpace(author))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}

func hashToPalette(key string, paletteLen int) int {
	if paletteLen == 0 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(paletteLen))
}
