package monitor

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"reflex/internal/adapter/tui/components"
	"reflex/internal/adapter/tui/theme"
	"reflex/internal/adapter/tui/uxerror"
	"reflex/internal/domain"
)

// Model is the root Bubble Tea model of the monitor.
type Model struct {
	inputs domain.Sink[domain.Input]
	tokens domain.InputTokens

	input  textinput.Model
	events components.EventStreamModel
	status components.StatusBarModel

	active  string // name of the model currently running
	view    string // its latest view
	renders int
	sent    int
	err     error
	done    bool
	width   int
	height  int
}

// NewModel creates the monitor model. Lines typed by the user are parsed with
// tokens and sent to inputs.
func NewModel(inputs domain.Sink[domain.Input], tokens domain.InputTokens) Model {
	if tokens == (domain.InputTokens{}) {
		tokens = domain.DefaultInputTokens()
	}

	ti := textinput.New()
	ti.Prompt = theme.InputPrompt.Render(theme.SymbolArrowR + " ")
	ti.Placeholder = tokens.Increment + " / " + tokens.Decrement + " / " + tokens.Quit + " / any text"
	ti.PlaceholderStyle = theme.InputPlaceholder
	ti.Focus()

	sb := components.NewStatusBar()
	sb.Hints = []components.KeyHint{
		{Key: "Enter", Desc: "Send"},
		{Key: "Ctrl+C", Desc: "Quit model"},
		{Key: "Esc", Desc: "Leave"},
		{Key: "PgUp/PgDn", Desc: "Scroll"},
	}

	return Model{
		inputs: inputs,
		tokens: tokens,
		input:  ti,
		events: components.NewEventStream(),
		status: sb,
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.send(domain.Quit())
			return m, nil
		case tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			line := m.input.Value()
			m.input.Reset()
			m.send(m.tokens.Parse(line))
			return m, nil
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.events, cmd = m.events.Update(msg)
			return m, cmd
		}

	case ViewMsg:
		if msg.Model != "" {
			m.active = msg.Model
			m.status.Model = msg.Model
		}
		m.view = msg.View
		m.renders++
		return m, nil

	case EventMsg:
		m.events.AddEvent(msg.Event)
		m.status.Dropped = msg.Dropped
		if msg.Event.Type == domain.EventDispatcherStarted {
			if name := msg.Event.PayloadMap()["model"]; name != "" {
				m.active = name
				m.view = ""
				m.status.Model = name
			}
			m.status.RunID = msg.Event.RunID
		}
		return m, nil

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		m.status.Extra = "finished"
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) send(in domain.Input) {
	if err := m.inputs.Send(in); err != nil {
		m.status.Extra = "input closed"
		return
	}
	m.sent++
}

func (m *Model) layout() {
	m.status.SetWidth(m.width)
	m.input.Width = theme.Clamp(m.width-4, 10, m.width)
	h := m.height - lipgloss.Height(m.card()) - 2
	m.events.SetSize(m.width, theme.Clamp(h, 1, m.height))
}

func (m Model) card() string {
	if m.err != nil {
		return theme.BorderNormal.Render(theme.TextError.Render(theme.SymbolError + " " + uxerror.Humanize(m.err).Render()))
	}
	if m.done {
		return theme.BorderNormal.Render(theme.TextSuccess.Render(theme.SymbolSuccess + " sequence finished"))
	}
	label := m.active
	if label == "" {
		label = "waiting"
	}
	view := m.view
	if view == "" {
		view = theme.TextMuted.Render("no view yet")
	} else {
		view = theme.ViewValue.Render(view)
	}
	return theme.ViewCard.Render(theme.ViewLabel.Render(label) + "  " + view)
}

// View renders the card, the event stream, the input line and the status bar.
func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(m.card())
	sb.WriteString("\n")
	if ev := m.events.View(); ev != "" {
		sb.WriteString(ev)
		sb.WriteString("\n")
	}
	sb.WriteString(m.input.View())
	sb.WriteString("\n")
	sb.WriteString(m.status.View())
	return sb.String()
}

// Err returns the run error delivered with DoneMsg.
func (m Model) Err() error { return m.err }

// Done reports whether DoneMsg has been received.
func (m Model) Done() bool { return m.done }
