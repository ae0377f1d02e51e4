// Package app wires all Podium subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves until the context is cancelled, and Shutdown tears
// everything down in order.
//
// For testing, inject doubles via functional options (WithPanelOptions,
// WithMetrics, etc.). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/podium/internal/analysis"
	"github.com/MrWong99/podium/internal/config"
	"github.com/MrWong99/podium/internal/discord"
	"github.com/MrWong99/podium/internal/health"
	"github.com/MrWong99/podium/internal/live"
	"github.com/MrWong99/podium/internal/observe"
	"github.com/MrWong99/podium/internal/resilience"
	"github.com/MrWong99/podium/internal/server"
)

// readHeaderTimeout bounds how long a client may take to send headers.
const readHeaderTimeout = 10 * time.Second

// App owns all subsystem lifetimes.
type App struct {
	mu  sync.RWMutex
	cfg *config.Config

	logLevel       *slog.LevelVar
	metrics        *observe.Metrics
	metricsHandler http.Handler
	panelOpts      []live.Option
	configPath     string

	// Subsystems, initialised in New and torn down in Shutdown.
	panels    *live.Manager
	primary   *live.Panel
	client    *analysis.Client
	uploader  *analysis.Uploader
	api       *server.Server
	http      *http.Server
	listener  net.Listener
	watcher   *config.Watcher
	bot       *discord.Bot
	dashboard *discord.Dashboard

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New.
type Option func(*App)

// WithLevelVar lets config reloads change the log level of the caller's
// handler.
func WithLevelVar(lv *slog.LevelVar) Option {
	return func(a *App) { a.logLevel = lv }
}

// WithMetrics injects the instruments instead of observe.DefaultMetrics().
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithMetricsHandler serves h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(a *App) { a.metricsHandler = h }
}

// WithPanelOptions passes opts to every mounted live panel.
func WithPanelOptions(opts ...live.Option) Option {
	return func(a *App) { a.panelOpts = append(a.panelOpts, opts...) }
}

// WithConfigWatch reloads path while running and hot-applies what
// [config.Diff] allows.
func WithConfigWatch(path string) Option {
	return func(a *App) { a.configPath = path }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. It binds the listen
// address and, when configured, connects to Discord before returning.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.logLevel == nil {
		a.logLevel = new(slog.LevelVar)
		a.logLevel.Set(cfg.Server.LogLevel.Level())
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	// ── 1. Live panels ───────────────────────────────────────────────────
	if err := a.initPanels(); err != nil {
		return nil, fmt.Errorf("app: init panels: %w", err)
	}

	// ── 2. Analysis client + uploader ───────────────────────────────────
	if err := a.initAnalysis(); err != nil {
		return nil, fmt.Errorf("app: init analysis: %w", err)
	}

	// ── 3. HTTP API ─────────────────────────────────────────────────────
	if err := a.initServer(); err != nil {
		return nil, fmt.Errorf("app: init server: %w", err)
	}

	// ── 4. Config watcher ───────────────────────────────────────────────
	if a.configPath != "" {
		w, err := config.NewWatcher(a.configPath, a.ApplyConfig)
		if err != nil {
			return nil, fmt.Errorf("app: init config watcher: %w", err)
		}
		a.watcher = w
	}

	// ── 5. Discord ──────────────────────────────────────────────────────
	if err := a.initDiscord(ctx); err != nil {
		return nil, fmt.Errorf("app: init discord: %w", err)
	}

	ok = true
	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

func (a *App) initPanels() error {
	opts := append([]live.Option{live.WithMetrics(a.metrics)}, a.panelOpts...)
	a.panels = live.NewManager(a.cfg.PanelConfig(), opts...)
	a.closers = append(a.closers, a.panels.Close)

	if !a.cfg.Live.Autostart {
		return nil
	}
	p, err := a.panels.Mount()
	if err != nil {
		return err
	}
	a.primary = p
	slog.Info("primary panel mounted", "panel", p.ID())
	return nil
}

func (a *App) initAnalysis() error {
	breaker := resilience.New(resilience.Config{
		Name:      "analysis-backend",
		Threshold: a.cfg.Backend.FailureThreshold,
		Cooldown:  a.cfg.Backend.BreakerCooldown,
		IsFailure: analysis.IsBackendFailure,
	})
	client, err := analysis.New(a.cfg.Backend.URL,
		analysis.WithTimeout(a.cfg.Backend.Timeout),
		analysis.WithMetrics(a.metrics),
		analysis.WithBreaker(breaker),
	)
	if err != nil {
		return err
	}
	a.client = client
	a.uploader = analysis.NewUploader(client)
	a.closers = append(a.closers, func() error {
		a.uploader.Close()
		return nil
	})
	return nil
}

func (a *App) initServer() error {
	api, err := server.New(server.Config{
		Panels:         a.panels,
		Analyses:       a.uploader,
		FillerWords:    a.fillerWords,
		BackendURL:     a.cfg.Backend.URL,
		Health:         health.New(health.PingChecker("backend", a.client)),
		MetricsHandler: a.metricsHandler,
		Metrics:        a.metrics,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
	})
	if err != nil {
		return err
	}
	a.api = api

	ln, err := net.Listen("tcp", a.cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.cfg.Server.ListenAddr, err)
	}
	a.listener = ln
	a.http = &http.Server{
		Handler:           api,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return nil
}

func (a *App) initDiscord(ctx context.Context) error {
	dc := a.cfg.Discord
	if !dc.Enabled() {
		return nil
	}

	bot, err := discord.New(ctx, discord.Config{Token: dc.Token, GuildID: dc.GuildID})
	if err != nil {
		return err
	}
	a.bot = bot
	a.closers = append(a.closers, bot.Close)
	discord.NewPodiumCommands(a.panels, a.uploader, a.fillerWords).Register(bot.Router())

	if a.primary == nil {
		slog.Info("discord dashboard disabled: live.autostart is off")
		return nil
	}
	a.dashboard = discord.NewDashboard(discord.DashboardConfig{
		Session:   bot.Session(),
		ChannelID: dc.ChannelID,
		Interval:  dc.Interval,
		Panel:     a.primary,
	})
	slog.Info("discord connected", "guild_id", dc.GuildID, "channel", dc.ChannelID)
	return nil
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Addr returns the address the HTTP API is bound to.
func (a *App) Addr() net.Addr {
	return a.listener.Addr()
}

// Panels returns the live panel manager.
func (a *App) Panels() *live.Manager {
	return a.panels
}

// Primary returns the autostarted panel, or nil when live.autostart is off.
func (a *App) Primary() *live.Panel {
	return a.primary
}

// Config returns the active configuration.
func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

func (a *App) fillerWords() []string {
	return a.Config().FillerWords()
}

// ApplyConfig hot-applies the parts of new that may change at runtime: the
// log level, the settings of newly mounted panels and the filler words used
// by report tallies. Everything else is logged as requiring a restart.
func (a *App) ApplyConfig(old, new *config.Config) {
	d := config.Diff(old, new)

	if d.LogLevelChanged {
		a.logLevel.Set(d.NewLogLevel.Level())
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.PanelDefaultsChanged {
		if err := a.panels.SetConfig(new.PanelConfig()); err != nil {
			slog.Warn("panel defaults rejected; keeping previous", "err", err)
		} else {
			slog.Info("panel defaults updated; applies to newly mounted panels")
		}
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("config changes require a restart", "keys", d.RestartRequired)
	}

	a.mu.Lock()
	a.cfg = new
	a.mu.Unlock()
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves the HTTP API and runs the config watcher and Discord bot until
// ctx is cancelled. It returns nil on cancellation and the first fatal
// subsystem error otherwise.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.http.ServeTLS(a.listener, tls.CertFile, tls.KeyFile)
		} else {
			err = a.http.Serve(a.listener)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve http: %w", err)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return a.http.Shutdown(shutdownCtx)
	})

	if a.watcher != nil {
		g.Go(func() error { return a.watcher.Run(ctx) })
	}
	if a.bot != nil {
		g.Go(func() error { return a.bot.Run(ctx) })
	}
	if a.dashboard != nil {
		a.dashboard.Start(ctx)
	}

	slog.Info("app running", "addr", a.Addr().String(), "panels", len(a.panels.IDs()))
	return g.Wait()
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		// Stop accepting requests first.
		if err := a.http.Shutdown(ctx); err != nil {
			slog.Warn("http shutdown error", "err", err)
		}
		_ = a.listener.Close()
		// Post the final embed while the panel still holds its last state.
		if a.dashboard != nil {
			a.dashboard.Stop(ctx)
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// close releases whatever New managed to create before failing.
func (a *App) close() {
	if a.listener != nil {
		_ = a.listener.Close()
	}
	for _, closer := range a.closers {
		_ = closer()
	}
}
