// Package reveal paces streamed assistant text onto a display at a fixed
// rate, independent of how the network delivers it.
package reveal

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"folio/internal/domain"
)

// State is the lifecycle position of one assistant turn.
type State int

const (
	WaitingFirstContent State = iota
	Revealing
	Settled
	ErrorSettled
)

func (s State) String() string {
	switch s {
	case WaitingFirstContent:
		return "waiting"
	case Revealing:
		return "revealing"
	case Settled:
		return "settled"
	case ErrorSettled:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config sets the reveal pace.
type Config struct {
	// Tick is the interval between reveal steps.
	Tick time.Duration
	// CharsPerTick is how many runes one step may reveal.
	CharsPerTick int
	// MinThinking is how long the thinking indicator stays up at least.
	MinThinking time.Duration
	// Owner is named in the error message.
	Owner string
}

// DefaultConfig reveals three runes every 20ms after at least a second of
// thinking.
func DefaultConfig() Config {
	return Config{Tick: 20 * time.Millisecond, CharsPerTick: 3, MinThinking: time.Second}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Tick <= 0 {
		c.Tick = d.Tick
	}
	if c.CharsPerTick <= 0 {
		c.CharsPerTick = d.CharsPerTick
	}
	if c.MinThinking < 0 {
		c.MinThinking = 0
	}
	return c
}

// ErrorText is the single user-facing failure message.
func ErrorText(owner string) string {
	if owner == "" {
		owner = "the owner"
	}
	return "Sorry, the AI assistant is currently unavailable. You can report this issue to let " + owner + " know."
}

// Turn is the reveal state machine for one assistant reply. It is not safe
// for concurrent use; one loop feeds it events and steps it.
type Turn struct {
	cfg     Config
	start   time.Time
	state   State
	buf     Buffer
	ended   bool
	failed  bool
	stopped bool

	reply   *domain.Message
	failure *domain.Message
}

// NewTurn starts a turn at now with the thinking indicator shown.
func NewTurn(cfg Config, now time.Time) *Turn {
	return &Turn{cfg: cfg.withDefaults(), start: now}
}

// Receive appends a fragment to the full content.
func (t *Turn) Receive(fragment string) {
	if t.Done() || t.ended || t.failed {
		return
	}
	t.buf.Append(fragment)
}

// End records the terminal marker.
func (t *Turn) End() {
	if t.Done() || t.failed {
		return
	}
	t.ended = true
}

// Fail records a transport or generation failure.
func (t *Turn) Fail() {
	if t.Done() || t.ended {
		return
	}
	t.failed = true
}

// Stop tears the turn down. Nothing changes afterwards.
func (t *Turn) Stop() { t.stopped = true }

// Step advances the turn to now and reports whether anything visible changed.
func (t *Turn) Step(now time.Time) bool {
	if t.Done() {
		return false
	}
	changed := false
	if t.state == WaitingFirstContent {
		if t.buf.Len() == 0 && !t.ended && !t.failed {
			return false
		}
		if t.thinkingLeft(now) > 0 {
			return false
		}
		changed = true
		switch {
		case t.failed:
			t.settleError()
			return true
		case t.buf.Len() == 0:
			t.state = Settled
			return true
		default:
			t.reply = &domain.Message{ID: uuid.NewString(), Role: domain.RoleAssistant}
			t.state = Revealing
		}
	}

	if t.failed {
		t.settleError()
		return true
	}
	if t.buf.Advance(t.cfg.CharsPerTick) > 0 {
		changed = true
	}
	if t.ended && t.buf.CaughtUp() {
		t.buf.Snap()
		t.state = Settled
		changed = true
	}
	t.reply.Content = t.buf.Displayed()
	return changed
}

func (t *Turn) settleError() {
	t.failure = &domain.Message{
		ID:      uuid.NewString(),
		Role:    domain.RoleAssistant,
		Content: ErrorText(t.cfg.Owner),
		IsError: true,
	}
	t.state = ErrorSettled
}

func (t *Turn) State() State { return t.state }

// Done reports whether the turn has settled or was stopped.
func (t *Turn) Done() bool {
	return t.stopped || t.state == Settled || t.state == ErrorSettled
}

// Thinking reports whether the thinking indicator is visible.
func (t *Turn) Thinking() bool {
	return !t.stopped && t.state == WaitingFirstContent
}

// thinkingLeft is how much of the minimum thinking time remains at now.
func (t *Turn) thinkingLeft(now time.Time) time.Duration {
	return max(t.cfg.MinThinking-now.Sub(t.start), 0)
}

func (t *Turn) Displayed() string { return t.buf.Displayed() }

func (t *Turn) Full() string { return t.buf.Full() }

// Messages returns the messages this turn has materialized so far: the
// assistant reply, the error message, or both when a stream broke midway.
func (t *Turn) Messages() []domain.Message {
	var out []domain.Message
	if t.reply != nil {
		out = append(out, *t.reply)
	}
	if t.failure != nil {
		out = append(out, *t.failure)
	}
	return out
}

// Snapshot is a copy of what a display should show.
type Snapshot struct {
	State     State
	Thinking  bool
	Displayed string
	Messages  []domain.Message
}

func (t *Turn) Snapshot() Snapshot {
	return Snapshot{
		State:     t.state,
		Thinking:  t.Thinking(),
		Displayed: t.buf.Displayed(),
		Messages:  t.Messages(),
	}
}
