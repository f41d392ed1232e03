// Package components holds reusable Bubble Tea widgets for the monitor.
package components

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"reflex/internal/adapter/tui/theme"
	"reflex/internal/domain"
)

const maxEventEntries = 500

// EventStreamModel displays a scrollable stream of lifecycle events with
// auto-scroll while the view is at the bottom.
type EventStreamModel struct {
	Viewport viewport.Model
	events   []domain.Event
	filter   domain.EventType // empty = show all
	ready    bool
	atBottom bool
	width    int
	height   int
}

// NewEventStream creates an event stream viewer.
func NewEventStream() EventStreamModel {
	return EventStreamModel{atBottom: true}
}

// SetSize sets the viewport dimensions.
func (m *EventStreamModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	if !m.ready {
		m.Viewport = viewport.New(w, h)
		m.Viewport.MouseWheelEnabled = true
		m.Viewport.MouseWheelDelta = 3
		m.ready = true
	} else {
		m.Viewport.Width = w
		m.Viewport.Height = h
	}
	m.refreshContent()
}

// SetFilter sets the event type prefix filter. Empty shows all events.
func (m *EventStreamModel) SetFilter(t domain.EventType) {
	m.filter = t
	m.refreshContent()
}

// AddEvent appends an event and auto-scrolls if at bottom.
func (m *EventStreamModel) AddEvent(event domain.Event) {
	m.events = append(m.events, event)
	if len(m.events) > maxEventEntries {
		m.events = m.events[len(m.events)-maxEventEntries:]
	}
	m.refreshContent()
	if m.atBottom && m.ready {
		m.Viewport.GotoBottom()
	}
}

// Update handles viewport scrolling.
func (m EventStreamModel) Update(msg tea.Msg) (EventStreamModel, tea.Cmd) {
	if !m.ready {
		return m, nil
	}
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	m.atBottom = m.Viewport.AtBottom()
	return m, cmd
}

// EventCount returns the number of retained events.
func (m EventStreamModel) EventCount() int {
	return len(m.events)
}

// FilteredCount returns the number of events matching the current filter.
func (m EventStreamModel) FilteredCount() int {
	if m.filter == "" {
		return len(m.events)
	}
	count := 0
	for _, evt := range m.events {
		if m.matches(evt) {
			count++
		}
	}
	return count
}

// View renders the event stream.
func (m EventStreamModel) View() string {
	if !m.ready {
		return ""
	}
	return m.Viewport.View()
}

func (m EventStreamModel) matches(evt domain.Event) bool {
	return m.filter == "" || strings.HasPrefix(string(evt.Type), string(m.filter))
}

func (m *EventStreamModel) refreshContent() {
	if !m.ready {
		return
	}

	if len(m.events) == 0 {
		m.Viewport.SetContent(theme.TextMuted.Render("  Waiting for events..."))
		return
	}

	var sb strings.Builder
	for _, evt := range m.events {
		if !m.matches(evt) {
			continue
		}
		sb.WriteString(FormatEvent(evt))
		sb.WriteString("\n")
	}
	m.Viewport.SetContent(sb.String())
}

// FormatEvent renders one event as a single styled line.
func FormatEvent(evt domain.Event) string {
	ts := evt.Timestamp.Format("15:04:05")
	eventType := string(evt.Type)
	paddedType := fmt.Sprintf("%-22s", eventType)

	var typeStyled string
	switch {
	case evt.Type == domain.EventDispatcherFailed:
		typeStyled = theme.TextError.Render(paddedType)
	case strings.HasPrefix(eventType, "dispatcher."), strings.HasPrefix(eventType, "source."):
		typeStyled = theme.TextInfo.Render(paddedType)
	case strings.HasPrefix(eventType, "command."):
		typeStyled = theme.TextWarning.Render(paddedType)
	case strings.HasPrefix(eventType, "event."):
		typeStyled = theme.TextAccent.Render(paddedType)
	default:
		typeStyled = theme.TextMuted.Render(paddedType)
	}

	return fmt.Sprintf("  %s  %s %s",
		theme.Dim.Render(ts),
		typeStyled,
		theme.TextMuted.Render(payloadSummary(evt)),
	)
}

// payloadSummary renders the payload as sorted key=value pairs.
func payloadSummary(evt domain.Event) string {
	p := evt.PayloadMap()
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", k, p[k]))
	}
	return strings.Join(parts, " ")
}
