// Package counter is a numeric model: Increment and Decrement step an integer,
// unrecognized input switches the view to a placeholder, and reaching the
// trigger value asks for a probabilistic extra increment through a command.
package counter

import (
	"math"
	"math/rand/v2"
	"strconv"

	"reflex/internal/domain"
)

// Placeholder is shown instead of the number after an unrecognized input.
const Placeholder = "What was that?"

// DefaultTrigger is the value that makes Update emit MaybeIncrement.
const DefaultTrigger = 5

// Message is the counter's message union: InputMsg or RandomizeMsg.
type Message interface {
	isMessage()
}

// InputMsg carries a boundary input.
type InputMsg struct {
	Input domain.Input
}

// RandomizeMsg replaces the counter value.
type RandomizeMsg struct {
	N int
}

func (InputMsg) isMessage()     {}
func (RandomizeMsg) isMessage() {}

// Command is the counter's command union. MaybeIncrement is its only variant.
type Command interface {
	domain.Command[Message]
	isCommand()
}

// MaybeIncrement resolves to an Increment message when its coin lands true,
// and to nothing otherwise.
type MaybeIncrement struct {
	coin func() bool
}

func (MaybeIncrement) isCommand() {}

// IntoMessage flips the coin.
func (c MaybeIncrement) IntoMessage() (Message, bool) {
	coin := c.coin
	if coin == nil {
		coin = FairCoin
	}
	if !coin() {
		return nil, false
	}
	return InputMsg{Input: domain.Increment()}, true
}

// FairCoin returns true with probability one half.
func FairCoin() bool {
	return rand.IntN(2) == 0
}

// Model holds the counter state. The zero value is not usable; use New.
type Model struct {
	n        int
	sawOther bool
	trigger  int
	coin     func() bool
}

var _ domain.Model[Message, Command] = (*Model)(nil)

// Option configures a Model.
type Option func(*Model)

// WithStart sets the initial value.
func WithStart(n int) Option {
	return func(m *Model) { m.n = n }
}

// WithTrigger sets the value that emits MaybeIncrement.
func WithTrigger(n int) Option {
	return func(m *Model) { m.trigger = n }
}

// WithCoin replaces the coin used by emitted MaybeIncrement commands.
func WithCoin(coin func() bool) Option {
	return func(m *Model) { m.coin = coin }
}

// New creates a counter starting at 0.
func New(opts ...Option) *Model {
	m := &Model{trigger: DefaultTrigger, coin: FairCoin}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FromInput wraps in as an InputMsg.
func (m *Model) FromInput(in domain.Input) Message {
	return InputMsg{Input: in}
}

// Update applies msg. After every surviving transition that leaves the value
// at the trigger, a MaybeIncrement command is emitted. Integer overflow wraps.
func (m *Model) Update(msg Message) domain.StateChange[Command] {
	switch msg := msg.(type) {
	case InputMsg:
		switch msg.Input.Kind {
		case domain.InputIncrement:
			m.sawOther = false
			m.n++
		case domain.InputDecrement:
			m.sawOther = false
			m.n--
		case domain.InputQuit:
			return domain.Dead[Command]()
		case domain.InputOther:
			m.sawOther = true
		}
	case RandomizeMsg:
		m.n = msg.N
	}

	if m.n == m.trigger {
		return domain.AliveWith[Command](MaybeIncrement{coin: m.coin})
	}
	return domain.Alive[Command]()
}

// View renders the value, or Placeholder after unrecognized input.
func (m *Model) View() string {
	if m.sawOther {
		return Placeholder
	}
	return strconv.Itoa(m.n)
}

// DecrementMessage is what the auto-decrement producer sends.
func DecrementMessage() Message {
	return InputMsg{Input: domain.Decrement()}
}

// Randomizer returns a producer function yielding RandomizeMsg values uniform
// in [lo, hi]. uintN returns a value in [0, n) and defaults to math/rand/v2
// Uint64N. Any int range works, including [math.MinInt, math.MaxInt].
func Randomizer(lo, hi int, uintN func(n uint64) uint64) func() Message {
	if uintN == nil {
		uintN = rand.Uint64N
	}
	if hi < lo {
		lo, hi = hi, lo
	}
	// Two's complement difference: exact even when hi-lo overflows int.
	span := uint64(hi) - uint64(lo)
	return func() Message {
		if span == math.MaxUint64 {
			return RandomizeMsg{N: int(rand.Uint64())}
		}
		return RandomizeMsg{N: int(uint64(lo) + uintN(span+1))}
	}
}
