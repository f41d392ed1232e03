// Package cursor is a single-character model. Increment and Decrement move
// through the Unicode code space; any other text jumps to its first rune.
package cursor

import (
	"unicode/utf8"

	"reflex/internal/domain"
)

const (
	surrogateMin = 0xD800
	surrogateMax = 0xDFFF
)

// Message wraps a boundary input; the cursor has no private messages.
type Message struct {
	Input domain.Input
}

// Command is never emitted by the cursor. It converts to no message.
type Command struct{}

// IntoMessage always reports no message.
func (Command) IntoMessage() (Message, bool) { return Message{}, false }

// Model holds the current rune.
type Model struct {
	c rune
}

var _ domain.Model[Message, Command] = (*Model)(nil)

// New creates a cursor at start. Invalid runes are replaced by U+0000.
func New(start rune) *Model {
	if !utf8.ValidRune(start) {
		start = 0
	}
	return &Model{c: start}
}

// NewFromString creates a cursor at the first rune of s, or U+0000 when s is
// empty.
func NewFromString(s string) *Model {
	r, _ := utf8.DecodeRuneInString(s)
	if s == "" {
		r = 0
	}
	return New(r)
}

// FromInput wraps in as a Message.
func (m *Model) FromInput(in domain.Input) Message {
	return Message{Input: in}
}

// Update applies msg. Stepping wraps around the ends of the code space and
// skips the surrogate block, so every reachable state is a valid rune.
func (m *Model) Update(msg Message) domain.StateChange[Command] {
	switch msg.Input.Kind {
	case domain.InputIncrement:
		m.c = next(m.c)
	case domain.InputDecrement:
		m.c = prev(m.c)
	case domain.InputQuit:
		return domain.Dead[Command]()
	case domain.InputOther:
		if msg.Input.Text != "" {
			m.c, _ = utf8.DecodeRuneInString(msg.Input.Text)
		}
	}
	return domain.Alive[Command]()
}

// View renders the current rune.
func (m *Model) View() string {
	return string(m.c)
}

func next(r rune) rune {
	r++
	switch {
	case r > utf8.MaxRune:
		return 0
	case r >= surrogateMin && r <= surrogateMax:
		return surrogateMax + 1
	}
	return r
}

func prev(r rune) rune {
	if r <= 0 {
		return utf8.MaxRune
	}
	r--
	if r >= surrogateMin && r <= surrogateMax {
		return surrogateMin - 1
	}
	return r
}
