// Package notify schedules the transient coaching tips shown on a live panel.
//
// A [Scheduler] is a two-state machine. While Idle no tip is visible. Every
// raise interval it picks a tip uniformly at random from its corpus, becomes
// Raised and arms a hide timer for the dwell time; when that timer fires it
// returns to Idle. A raise that arrives while a tip is still visible replaces
// the tip and re-arms the hide timer, so at most one tip is ever visible.
//
// Both timers run inside one select loop in [Scheduler.Run]; cancelling the
// context stops them together.
package notify

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/MrWong99/podium/internal/clock"
)

var (
	// ErrEmptyCorpus is returned when a scheduler is configured without tips.
	ErrEmptyCorpus = errors.New("notify: corpus is empty")

	// ErrEmptyMessage is returned when a corpus contains a blank tip.
	ErrEmptyMessage = errors.New("notify: corpus contains an empty message")
)

// DefaultCorpus is the stock set of coaching tips.
var DefaultCorpus = []string{
	"Try to vary your tone for emphasis on key points.",
	"Remember to pause briefly between main ideas.",
	"Make eye contact with different areas of your audience.",
	"Use hand gestures to illustrate your points.",
	"Slow down slightly to improve clarity.",
	"Consider using a rhetorical question to engage the audience.",
	"Summarize your main points before moving to the next section.",
}

// Cadence is the pair of timer durations driving a scheduler.
type Cadence struct {
	// Raise is the interval between two raises.
	Raise time.Duration
	// Dwell is how long a raised tip stays visible.
	Dwell time.Duration
}

var (
	// Standard raises a tip every 3s and shows it for 2s.
	Standard = Cadence{Raise: 3 * time.Second, Dwell: 2 * time.Second}

	// Relaxed raises a tip every 9s and shows it for 3s.
	Relaxed = Cadence{Raise: 9 * time.Second, Dwell: 3 * time.Second}
)

// CadenceByName resolves a named preset ("standard" or "relaxed").
func CadenceByName(name string) (Cadence, bool) {
	switch name {
	case "standard":
		return Standard, true
	case "relaxed":
		return Relaxed, true
	}
	return Cadence{}, false
}

// Validate checks that both durations are positive.
func (c Cadence) Validate() error {
	if c.Raise <= 0 {
		return fmt.Errorf("notify: raise interval %s must be positive", c.Raise)
	}
	if c.Dwell <= 0 {
		return fmt.Errorf("notify: dwell %s must be positive", c.Dwell)
	}
	return nil
}

// ValidateCorpus checks that corpus holds at least one non-blank tip.
func ValidateCorpus(corpus []string) error {
	if len(corpus) == 0 {
		return ErrEmptyCorpus
	}
	for i, msg := range corpus {
		if strings.TrimSpace(msg) == "" {
			return fmt.Errorf("%w (index %d)", ErrEmptyMessage, i)
		}
	}
	return nil
}

// State is the notification slice of a live panel. Values are immutable once
// published; every transition produces a new State.
type State struct {
	Message  string `json:"message"`
	Visible  bool   `json:"visible"`
	RaisedAt int64  `json:"raisedAt"` // unix milliseconds, zero before the first raise
}

// Picker chooses a tip index. *rand.Rand satisfies it.
type Picker interface {
	IntN(n int) int
}

// Scheduler raises and hides coaching tips on its own cadence. It is the only
// writer of the notification state it publishes.
type Scheduler struct {
	corpus  []string
	cadence Cadence
	clk     clock.Clock
	pick    Picker
	publish func(State)

	state State
}

// Option configures a [Scheduler].
type Option func(*Scheduler)

// WithCadence overrides the default [Standard] cadence.
func WithCadence(c Cadence) Option {
	return func(s *Scheduler) { s.cadence = c }
}

// WithClock replaces the real clock.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clk = c
		}
	}
}

// WithPicker replaces the random tip picker.
func WithPicker(p Picker) Option {
	return func(s *Scheduler) {
		if p != nil {
			s.pick = p
		}
	}
}

// New creates a Scheduler over corpus. publish receives every new state from
// the goroutine running [Scheduler.Run]; it must not block.
func New(corpus []string, publish func(State), opts ...Option) (*Scheduler, error) {
	if err := ValidateCorpus(corpus); err != nil {
		return nil, err
	}
	s := &Scheduler{
		corpus:  append([]string(nil), corpus...),
		cadence: Standard,
		clk:     clock.Real(),
		pick:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
		publish: publish,
	}
	for _, o := range opts {
		o(s)
	}
	if err := s.cadence.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Run drives the raise and hide timers until ctx is cancelled. No state is
// published once ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	raise := s.clk.NewTicker(s.cadence.Raise)
	defer raise.Stop()

	var (
		hide  clock.Timer
		hideC <-chan time.Time
	)
	defer func() {
		if hide != nil {
			hide.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-raise.C():
			if ctx.Err() != nil {
				return
			}
			st := s.raise(now)
			if hide == nil {
				hide = s.clk.NewTimer(s.cadence.Dwell)
				hideC = hide.C()
			} else {
				hide.Reset(s.cadence.Dwell)
			}
			s.emit(st)
		case <-hideC:
			if ctx.Err() != nil {
				return
			}
			s.emit(s.hide())
		}
	}
}

// raise moves to Raised with a freshly picked tip.
func (s *Scheduler) raise(now time.Time) State {
	s.state = State{
		Message:  s.corpus[s.pick.IntN(len(s.corpus))],
		Visible:  true,
		RaisedAt: now.UnixMilli(),
	}
	return s.state
}

// hide moves to Idle, keeping the last tip for reference.
func (s *Scheduler) hide() State {
	s.state.Visible = false
	return s.state
}

func (s *Scheduler) emit(st State) {
	if s.publish != nil {
		s.publish(st)
	}
}
