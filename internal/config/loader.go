package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/podium/internal/live"
	"github.com/MrWong99/podium/internal/notify"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, fills in defaults, applies
// environment overrides and validates the result. An empty document yields
// the default config.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	cfg.ApplyDefaults()
	cfg.ApplyEnv(os.LookupEnv)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	cfg.ApplyEnv(os.LookupEnv)
	return cfg
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
// Range errors wrap [speech.ErrInvalidRange]; corpus errors wrap
// [notify.ErrEmptyCorpus] or [notify.ErrEmptyMessage].
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "" || tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}
	for _, p := range cfg.Server.AllowedOrigins {
		if _, err := path.Match(p, ""); err != nil {
			errs = append(errs, fmt.Errorf("server.allowed_origins %q: %w", p, err))
		}
	}

	// Backend
	if u, err := url.Parse(cfg.Backend.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("backend.url %q is not an absolute URL", cfg.Backend.URL))
	}
	if cfg.Backend.Timeout < 0 {
		errs = append(errs, fmt.Errorf("backend.timeout %s must not be negative", cfg.Backend.Timeout))
	}
	if cfg.Backend.FailureThreshold < 0 {
		errs = append(errs, fmt.Errorf("backend.failure_threshold %d must not be negative", cfg.Backend.FailureThreshold))
	}
	if cfg.Backend.BreakerCooldown < 0 {
		errs = append(errs, fmt.Errorf("backend.breaker_cooldown %s must not be negative", cfg.Backend.BreakerCooldown))
	}

	// Live panels and notifications
	if _, ok := notify.CadenceByName(cfg.Notifications.Cadence); cfg.Notifications.Cadence != "" && !ok {
		errs = append(errs, fmt.Errorf("notifications.cadence %q is invalid; valid values: standard, relaxed", cfg.Notifications.Cadence))
	} else if err := cfg.PanelConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	seen := make(map[string]int, len(cfg.Live.FillerWords))
	for i, fw := range cfg.Live.FillerWords {
		if prev, ok := seen[fw.Word]; ok {
			errs = append(errs, fmt.Errorf("live.filler_words[%d] %q is a duplicate of live.filler_words[%d]", i, fw.Word, prev))
		}
		seen[fw.Word] = i
	}

	// Discord
	if cfg.Discord.Enabled() && cfg.Discord.ChannelID == "" {
		errs = append(errs, errors.New("discord.channel_id is required when discord.token is set"))
	}
	if cfg.Discord.Interval < 0 {
		errs = append(errs, fmt.Errorf("discord.interval %s must not be negative", cfg.Discord.Interval))
	}

	return errors.Join(errs...)
}

// PanelConfig builds the settings for a newly mounted live panel. An unknown
// cadence preset falls back to the standard one; [Validate] reports it.
func (c *Config) PanelConfig() live.PanelConfig {
	pc := live.DefaultPanelConfig()
	if c.Live.TickInterval != 0 {
		pc.TickInterval = c.Live.TickInterval
	}
	if c.Live.WindowSize != 0 {
		pc.WindowSize = c.Live.WindowSize
	}
	if len(c.Live.Charted) > 0 {
		pc.Charted = slices.Clone(c.Live.Charted)
	}
	if len(c.Live.Fields) > 0 {
		pc.Specs = pc.Specs.Apply(c.Live.Fields)
	}
	if c.Live.FillerWords != nil {
		pc.FillerWords = slices.Clone(c.Live.FillerWords)
	}

	if cad, ok := notify.CadenceByName(c.Notifications.Cadence); ok {
		pc.Cadence = cad
	}
	if c.Notifications.RaiseInterval != 0 {
		pc.Cadence.Raise = c.Notifications.RaiseInterval
	}
	if c.Notifications.Dwell != 0 {
		pc.Cadence.Dwell = c.Notifications.Dwell
	}
	if c.Notifications.Corpus != nil {
		pc.Corpus = slices.Clone(c.Notifications.Corpus)
	}
	return pc
}

// FillerWords returns the configured filler words without their counts.
func (c *Config) FillerWords() []string {
	out := make([]string, len(c.Live.FillerWords))
	for i, fw := range c.Live.FillerWords {
		out[i] = fw.Word
	}
	return out
}
