// Package config provides the configuration schema, loader and file watcher
// for the Podium server.
package config

import (
	"log/slog"
	"time"

	"github.com/MrWong99/podium/pkg/speech"
)

// LogLevel controls log verbosity for the Podium server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level maps l to its slog level. Unknown and empty levels map to info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// BackendURLEnv names the environment variable overriding backend.url.
const BackendURLEnv = "BACKEND_URL"

// Defaults applied by [Config.ApplyDefaults].
const (
	DefaultListenAddr       = ":8080"
	DefaultBackendURL       = "http://127.0.0.1:5000"
	DefaultBackendTimeout   = 5 * time.Minute
	DefaultFailureThreshold = 3
	DefaultBreakerCooldown  = 30 * time.Second
	DefaultTickInterval     = 2 * time.Second
	DefaultWindowSize       = 10
	DefaultCadence          = "standard"
	DefaultDiscordInterval  = 5 * time.Second
	DefaultServiceName      = "podium"
)

// Config is the root configuration structure for Podium.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server        ServerConfig       `yaml:"server"`
	Backend       BackendConfig      `yaml:"backend"`
	Live          LiveConfig         `yaml:"live"`
	Notifications NotificationConfig `yaml:"notifications"`
	Discord       DiscordConfig      `yaml:"discord"`
	Telemetry     TelemetryConfig    `yaml:"telemetry"`
}

// ServerConfig holds network and logging settings for the Podium server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`

	// AllowedOrigins lists host patterns (path.Match syntax, e.g.
	// "*.example.com") whose pages may open live WebSockets. Same-origin
	// pages are always allowed.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// BackendConfig points at the external analysis backend.
type BackendConfig struct {
	// URL is the backend base URL. The BACKEND_URL environment variable wins
	// over this value.
	URL string `yaml:"url"`

	// Timeout bounds one analysis request end to end.
	Timeout time.Duration `yaml:"timeout"`

	// FailureThreshold is the number of consecutive failed uploads after
	// which further uploads fail fast for BreakerCooldown.
	FailureThreshold int           `yaml:"failure_threshold"`
	BreakerCooldown  time.Duration `yaml:"breaker_cooldown"`
}

// LiveConfig holds the defaults for newly mounted live panels.
type LiveConfig struct {
	// TickInterval is the sampler cadence.
	TickInterval time.Duration `yaml:"tick_interval"`

	// WindowSize is the capacity of every rolling chart window.
	WindowSize int `yaml:"window_size"`

	// Charted lists the fields that get a rolling window. Defaults to speed
	// and clarity.
	Charted []speech.Field `yaml:"charted"`

	// Autostart mounts a primary panel at startup. The Discord dashboard
	// mirrors it.
	Autostart bool `yaml:"autostart"`

	// Fields overrides the stock range, step and initial value per field.
	// Keys left out keep their stock value.
	Fields speech.Overrides `yaml:"fields"`

	// FillerWords are the tracked filler words and their starting counts.
	// Also used for the transcript tally of analysis reports.
	FillerWords []speech.FillerWord `yaml:"filler_words"`
}

// NotificationConfig controls the coaching tip scheduler.
type NotificationConfig struct {
	// Cadence selects a preset: "standard" (3s raise, 2s dwell) or
	// "relaxed" (9s raise, 3s dwell).
	Cadence string `yaml:"cadence"`

	// RaiseInterval overrides the preset's raise interval when non-zero.
	RaiseInterval time.Duration `yaml:"raise_interval"`

	// Dwell overrides the preset's dwell time when non-zero.
	Dwell time.Duration `yaml:"dwell"`

	// Corpus replaces the stock coaching messages when set. An explicitly
	// empty list is rejected.
	Corpus []string `yaml:"corpus"`
}

// DiscordConfig enables the meeting-channel dashboard. Leave Token empty to
// disable it.
type DiscordConfig struct {
	Token     string        `yaml:"token"`
	ChannelID string        `yaml:"channel_id"`
	Interval  time.Duration `yaml:"interval"`

	// GuildID scopes the /podium slash command to one guild. Empty registers
	// it globally.
	GuildID string `yaml:"guild_id"`
}

// Enabled reports whether the dashboard should run.
func (d DiscordConfig) Enabled() bool {
	return d.Token != ""
}

// TelemetryConfig holds OpenTelemetry resource settings.
type TelemetryConfig struct {
	ServiceName string `yaml:"service_name"`
}

// ApplyDefaults fills every unset value with its default.
func (c *Config) ApplyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = LogInfo
	}
	if c.Backend.URL == "" {
		c.Backend.URL = DefaultBackendURL
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = DefaultBackendTimeout
	}
	if c.Backend.FailureThreshold == 0 {
		c.Backend.FailureThreshold = DefaultFailureThreshold
	}
	if c.Backend.BreakerCooldown == 0 {
		c.Backend.BreakerCooldown = DefaultBreakerCooldown
	}
	if c.Live.TickInterval == 0 {
		c.Live.TickInterval = DefaultTickInterval
	}
	if c.Live.WindowSize == 0 {
		c.Live.WindowSize = DefaultWindowSize
	}
	if len(c.Live.Charted) == 0 {
		c.Live.Charted = []speech.Field{speech.Speed, speech.Clarity}
	}
	if c.Live.FillerWords == nil {
		c.Live.FillerWords = speech.DefaultFillerWords()
	}
	if c.Notifications.Cadence == "" {
		c.Notifications.Cadence = DefaultCadence
	}
	if c.Discord.Interval == 0 {
		c.Discord.Interval = DefaultDiscordInterval
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = DefaultServiceName
	}
}

// ApplyEnv applies environment overrides looked up through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(BackendURLEnv); ok && v != "" {
		c.Backend.URL = v
	}
}
