// Package render writes model views to a terminal.
package render

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"reflex/internal/adapter/tui/theme"
	"reflex/internal/domain"
)

// Render modes accepted by New.
const (
	ModePlain  = "plain"
	ModeStyled = "styled"
)

// Plain writes each view on its own line after an optional prefix.
type Plain struct {
	mu     sync.Mutex
	w      io.Writer
	prefix string
}

// NewPlain creates a plain renderer writing to w.
func NewPlain(w io.Writer, prefix string) *Plain {
	return &Plain{w: w, prefix: prefix}
}

// Render implements domain.Renderer.
func (p *Plain) Render(view string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := fmt.Fprintln(p.w, p.prefix+view)
	return err
}

// Styled writes each view as one decorated line: an optional label, an arrow
// and the view in the accent style.
type Styled struct {
	mu     sync.Mutex
	w      io.Writer
	label  string
	render func(string) string
}

// NewStyled creates a styled renderer. Colors follow the lipgloss color
// profile of the process, so NO_COLOR yields undecorated text.
func NewStyled(w io.Writer, label string) *Styled {
	return &Styled{
		w:      w,
		label:  label,
		render: theme.ViewValue.Render,
	}
}

// Render implements domain.Renderer.
func (s *Styled) Render(view string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line := theme.SymbolArrowR + " " + s.render(view)
	if s.label != "" {
		line = lipgloss.JoinHorizontal(lipgloss.Top, theme.ViewLabel.Render(s.label), " ", line)
	}
	_, err := fmt.Fprintln(s.w, line)
	return err
}

// New returns the renderer for mode, writing to w. prefix is written before
// every plain view and used as the label of styled views.
func New(mode string, w io.Writer, prefix string) (domain.Renderer, error) {
	switch mode {
	case "", ModePlain:
		return NewPlain(w, prefix), nil
	case ModeStyled:
		return NewStyled(w, prefix), nil
	default:
		return nil, fmt.Errorf("render: unknown mode %q", mode)
	}
}
