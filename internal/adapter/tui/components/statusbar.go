package components

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"reflex/internal/adapter/tui/theme"
)

// KeyHint represents a single keybinding hint shown in the status bar.
type KeyHint struct {
	Key  string // e.g. "Enter"
	Desc string // e.g. "Send"
}

// StatusBarModel renders a bottom status bar with keybinding hints on the
// left and run information on the right.
type StatusBarModel struct {
	Hints []KeyHint
	Model string // active model name
	RunID string
	Extra   string // additional status text (e.g. "finished")
	Dropped uint64 // events hidden by the rate limit
	width   int
}

// NewStatusBar creates an empty status bar.
func NewStatusBar() StatusBarModel {
	return StatusBarModel{}
}

// SetWidth updates the available width.
func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

// View renders the status bar as a single line.
func (m StatusBarModel) View() string {
	var hints []string
	for _, h := range m.Hints {
		hints = append(hints, theme.StatusKey.Render(h.Key)+": "+h.Desc)
	}
	left := strings.Join(hints, "  "+theme.Dim.Render("|")+"  ")

	var parts []string
	if m.Model != "" {
		parts = append(parts, m.Model)
	}
	if m.RunID != "" {
		parts = append(parts, m.RunID)
	}
	if m.Dropped > 0 {
		parts = append(parts, strconv.FormatUint(m.Dropped, 10)+" dropped")
	}
	right := theme.TextMuted.Render(strings.Join(parts, " "+theme.SymbolBullet+" "))

	if m.Extra != "" {
		if len(parts) > 0 {
			right += "  "
		}
		right += theme.TextInfo.Render(m.Extra)
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	bar := left + strings.Repeat(" ", gap) + right
	return theme.StatusBar.Width(m.width).Render(bar)
}
