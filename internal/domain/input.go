package domain

import (
	"fmt"
	"strings"
)

// InputKind identifies the variant of an Input.
type InputKind int

const (
	InputIncrement InputKind = iota + 1
	InputDecrement
	InputQuit
	InputOther
)

func (k InputKind) String() string {
	switch k {
	case InputIncrement:
		return "increment"
	case InputDecrement:
		return "decrement"
	case InputQuit:
		return "quit"
	case InputOther:
		return "other"
	default:
		return fmt.Sprintf("InputKind(%d)", int(k))
	}
}

// Input is the universal stimulus understood at the dispatcher boundary.
// Text is only meaningful for InputOther.
type Input struct {
	Kind InputKind
	Text string
}

// Increment returns an Increment input.
func Increment() Input { return Input{Kind: InputIncrement} }

// Decrement returns a Decrement input.
func Decrement() Input { return Input{Kind: InputDecrement} }

// Quit returns a Quit input.
func Quit() Input { return Input{Kind: InputQuit} }

// Other returns an Other input carrying text.
func Other(text string) Input { return Input{Kind: InputOther, Text: text} }

func (in Input) String() string {
	if in.Kind == InputOther {
		return fmt.Sprintf("other(%q)", in.Text)
	}
	return in.Kind.String()
}

// InputTokens maps console lines onto inputs. Lines matching none of the
// tokens become Other.
type InputTokens struct {
	Increment string
	Decrement string
	Quit      string
}

// DefaultInputTokens returns the tokens used by the console reader.
func DefaultInputTokens() InputTokens {
	return InputTokens{Increment: "+", Decrement: "-", Quit: "quit"}
}

// Parse converts one line of text into an Input. Surrounding whitespace is
// ignored. Parse is total: every line maps to exactly one Input.
func (t InputTokens) Parse(line string) Input {
	switch s := strings.TrimSpace(line); s {
	case t.Increment:
		return Increment()
	case t.Decrement:
		return Decrement()
	case t.Quit:
		return Quit()
	default:
		return Other(s)
	}
}

// ParseInput parses line using the default tokens.
func ParseInput(line string) Input {
	return DefaultInputTokens().Parse(line)
}
