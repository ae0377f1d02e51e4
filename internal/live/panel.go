// Package live runs the in-meeting metrics panels.
//
// A [Panel] owns a [Store] for its mounted lifetime and drives it from two
// goroutines: the sampling loop, which takes one reading per tick, appends
// every charted field to its rolling window with the tick's timestamp and
// then publishes the new metrics slice, and the notification scheduler,
// which publishes the notification slice on its own cadence. Teardown stops
// both loops and waits for them, after which the store never changes again.
//
// A [Manager] mounts, looks up and tears down panels by ID.
package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MrWong99/podium/internal/clock"
	"github.com/MrWong99/podium/internal/notify"
	"github.com/MrWong99/podium/internal/observe"
	"github.com/MrWong99/podium/internal/sampler"
	"github.com/MrWong99/podium/internal/window"
	"github.com/MrWong99/podium/pkg/speech"
)

// DefaultTickInterval is the stock sampler cadence.
const DefaultTickInterval = 2 * time.Second

// PanelConfig describes how a panel samples and coaches.
type PanelConfig struct {
	Specs        speech.Specs
	FillerWords  []speech.FillerWord
	TickInterval time.Duration
	WindowSize   int
	Charted      []speech.Field
	Corpus       []string
	Cadence      notify.Cadence
}

// DefaultPanelConfig returns the stock panel settings.
func DefaultPanelConfig() PanelConfig {
	return PanelConfig{
		Specs:        speech.DefaultSpecs(),
		FillerWords:  speech.DefaultFillerWords(),
		TickInterval: DefaultTickInterval,
		WindowSize:   window.DefaultCapacity,
		Charted:      []speech.Field{speech.Speed, speech.Clarity},
		Corpus:       notify.DefaultCorpus,
		Cadence:      notify.Standard,
	}
}

// Validate reports every problem with c.
func (c PanelConfig) Validate() error {
	var errs []error
	if err := c.Specs.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("live: tick interval %s must be positive", c.TickInterval))
	}
	if c.WindowSize <= 0 {
		errs = append(errs, fmt.Errorf("live: window size %d must be positive", c.WindowSize))
	}
	if len(c.Charted) == 0 {
		errs = append(errs, errors.New("live: at least one charted field is required"))
	}
	for _, f := range c.Charted {
		if !f.IsValid() {
			errs = append(errs, fmt.Errorf("live: charted field %q is unknown", f))
		}
	}
	for i, fw := range c.FillerWords {
		if fw.Word == "" {
			errs = append(errs, fmt.Errorf("live: filler word %d is empty", i))
		}
		if fw.Count < 0 {
			errs = append(errs, fmt.Errorf("live: filler word %q has negative count %d", fw.Word, fw.Count))
		}
	}
	if err := notify.ValidateCorpus(c.Corpus); err != nil {
		errs = append(errs, err)
	}
	if err := c.Cadence.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Panel is one mounted live dashboard.
type Panel struct {
	id        string
	cfg       PanelConfig
	store     *Store
	sampler   *sampler.Sampler
	scheduler *notify.Scheduler
	clk       clock.Clock
	metrics   *observe.Metrics
	windows   map[speech.Field]*window.Window[window.Point]
	mountedAt time.Time

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// Option configures a [Panel].
type Option func(*panelOptions)

type panelOptions struct {
	clk     clock.Clock
	source  sampler.Source
	picker  notify.Picker
	metrics *observe.Metrics
}

// WithClock drives the panel timers from c.
func WithClock(c clock.Clock) Option {
	return func(o *panelOptions) { o.clk = c }
}

// WithSource makes the sampler draw from src.
func WithSource(src sampler.Source) Option {
	return func(o *panelOptions) { o.source = src }
}

// WithPicker makes the scheduler pick tips with p.
func WithPicker(p notify.Picker) Option {
	return func(o *panelOptions) { o.picker = p }
}

// WithMetrics records panel activity to m.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *panelOptions) { o.metrics = m }
}

// Mount validates cfg, seeds a store with the initial reading and starts the
// sampling and notification loops. The loops run until [Panel.Teardown].
func Mount(id string, cfg PanelConfig, opts ...Option) (*Panel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := panelOptions{clk: clock.Real()}
	for _, opt := range opts {
		opt(&o)
	}

	p := &Panel{
		id:        id,
		cfg:       cfg,
		clk:       o.clk,
		metrics:   o.metrics,
		sampler:   sampler.New(cfg.Specs, sampler.WithSource(o.source)),
		windows:   make(map[speech.Field]*window.Window[window.Point], len(cfg.Charted)),
		mountedAt: o.clk.Now(),
	}
	for _, f := range cfg.Charted {
		p.windows[f] = window.New[window.Point](cfg.WindowSize)
	}
	p.store = NewStore(&Metrics{
		CapturedAt: p.mountedAt.UnixMilli(),
		Snapshot:   cfg.Specs.Initial(cfg.FillerWords),
		Windows:    p.windowCopies(),
	})

	sched, err := notify.New(cfg.Corpus, p.publishNotification,
		notify.WithCadence(cfg.Cadence),
		notify.WithClock(o.clk),
		notify.WithPicker(o.picker),
	)
	if err != nil {
		return nil, fmt.Errorf("live: mount %s: %w", id, err)
	}
	p.scheduler = sched

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.wg.Add(2)
	go func() {
		defer p.wg.Done()
		p.runSampler(ctx)
	}()
	go func() {
		defer p.wg.Done()
		p.scheduler.Run(ctx)
	}()

	slog.Debug("live: panel mounted", "panel", id, "tick", cfg.TickInterval, "cadence", cfg.Cadence.Raise)
	return p, nil
}

// ID returns the panel identifier.
func (p *Panel) ID() string { return p.id }

// Store returns the panel state for reading.
func (p *Panel) Store() *Store { return p.store }

// Config returns the settings the panel was mounted with.
func (p *Panel) Config() PanelConfig { return p.cfg }

// MountedAt returns when the panel was mounted.
func (p *Panel) MountedAt() time.Time { return p.mountedAt }

// Teardown stops both loops and waits for them to exit. It is safe to call
// more than once.
func (p *Panel) Teardown() {
	p.stopOnce.Do(func() {
		p.cancel()
		p.wg.Wait()
		p.store.close()
		slog.Debug("live: panel torn down", "panel", p.id, "version", p.store.Version())
	})
}

func (p *Panel) runSampler(ctx context.Context) {
	ticker := p.clk.NewTicker(p.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C():
			if ctx.Err() != nil {
				return
			}
			p.tick(ctx, now)
		}
	}
}

// tick takes one reading, appends the charted fields with a single shared
// timestamp and publishes the result.
func (p *Panel) tick(ctx context.Context, now time.Time) {
	prev := p.store.Metrics()
	next := p.sampler.Sample(prev.Snapshot)

	ts := now.UnixMilli()
	for _, f := range p.cfg.Charted {
		p.windows[f].Push(window.Point{Timestamp: ts, Value: next.Get(f)})
	}

	p.store.setMetrics(&Metrics{
		Tick:       prev.Tick + 1,
		CapturedAt: ts,
		Snapshot:   next,
		Windows:    p.windowCopies(),
	})
	if p.metrics != nil {
		p.metrics.LiveTicks.Add(ctx, 1)
	}
}

func (p *Panel) publishNotification(st notify.State) {
	p.store.setNotification(st)
	if st.Visible && p.metrics != nil {
		p.metrics.NotificationsRaised.Add(context.Background(), 1)
	}
}

func (p *Panel) windowCopies() map[speech.Field][]window.Point {
	out := make(map[speech.Field][]window.Point, len(p.windows))
	for f, w := range p.windows {
		out[f] = w.Items()
	}
	return out
}
