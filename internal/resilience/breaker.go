// Package resilience guards calls to the analysis backend with a circuit
// breaker.
//
// A [Breaker] counts consecutive failures. Once Threshold is reached it opens
// and rejects calls with [ErrOpen] until Cooldown has passed. The next call is
// then let through alone as a trial: success closes the breaker, failure
// opens it for another cooldown.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/MrWong99/podium/internal/clock"
)

// ErrOpen is returned by [Breaker.Do] while the breaker rejects calls.
var ErrOpen = errors.New("resilience: circuit open")

// State is the operating mode of a [Breaker].
type State int

const (
	// Closed forwards every call.
	Closed State = iota
	// Open rejects calls until the cooldown has passed.
	Open
	// HalfOpen lets exactly one call through to test the backend.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config tunes a [Breaker].
type Config struct {
	// Name labels log lines.
	Name string

	// Threshold is the number of consecutive failures that opens the
	// breaker. Default: 3.
	Threshold int

	// Cooldown is how long the breaker stays open. Default: 30s.
	Cooldown time.Duration

	// IsFailure decides whether an error counts against the backend.
	// Default: every error except context cancellation.
	IsFailure func(error) bool

	// Clock defaults to [clock.Real].
	Clock clock.Clock
}

// Breaker is safe for concurrent use.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration
	isFailure func(error) bool
	clk       clock.Clock

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
}

// New creates a closed Breaker. Zero config fields take their defaults.
func New(cfg Config) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = countsAsFailure
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	return &Breaker{
		name:      cfg.Name,
		threshold: cfg.Threshold,
		cooldown:  cfg.Cooldown,
		isFailure: cfg.IsFailure,
		clk:       cfg.Clock,
	}
}

func countsAsFailure(err error) bool {
	return !errors.Is(err, context.Canceled)
}

// Do runs fn unless the breaker is open. It returns fn's error unchanged, or
// [ErrOpen] without calling fn.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	b.record(err)
	return err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if b.clk.Now().Sub(b.openedAt) < b.cooldown {
			return ErrOpen
		}
		b.state = HalfOpen
		slog.Info("circuit breaker half-open", "name", b.name)
		return nil
	case HalfOpen:
		// A trial call is already in flight.
		return ErrOpen
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil && !b.isFailure(err) {
		// Inconclusive: the next call is another trial.
		if b.state == HalfOpen {
			b.state = Open
		}
		return
	}
	if err == nil {
		if b.state == HalfOpen {
			slog.Info("circuit breaker closed", "name", b.name)
		}
		b.state = Closed
		b.failures = 0
		return
	}

	b.failures++
	if b.state == HalfOpen || b.failures >= b.threshold {
		if b.state != Open {
			slog.Warn("circuit breaker opened", "name", b.name, "consecutive_failures", b.failures, "err", err)
		}
		b.state = Open
		b.openedAt = b.clk.Now()
	}
}

// State returns the current mode. An open breaker whose cooldown has passed
// still reports [Open] until the next call is let through.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset closes the breaker and clears its failure count.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.failures = 0
}
