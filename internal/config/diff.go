package config

import (
	"reflect"
	"slices"
)

// ConfigDiff describes what changed between two configs.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// PanelDefaultsChanged is true when live or notification settings differ.
	// New panels pick them up; mounted panels keep what they started with.
	PanelDefaultsChanged bool

	// FillerWordsChanged is true when the tracked filler words differ. It
	// affects the report tally immediately.
	FillerWordsChanged bool

	// RestartRequired lists changed keys that only take effect after a
	// restart.
	RestartRequired []string
}

// HotApplicable reports whether d carries any change that can be applied
// without restart.
func (d ConfigDiff) HotApplicable() bool {
	return d.LogLevelChanged || d.PanelDefaultsChanged || d.FillerWordsChanged
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if !reflect.DeepEqual(old.PanelConfig(), new.PanelConfig()) {
		d.PanelDefaultsChanged = true
	}
	if !reflect.DeepEqual(old.Live.FillerWords, new.Live.FillerWords) {
		d.FillerWordsChanged = true
	}

	if old.Server.ListenAddr != new.Server.ListenAddr {
		d.RestartRequired = append(d.RestartRequired, "server.listen_addr")
	}
	if !reflect.DeepEqual(old.Server.TLS, new.Server.TLS) {
		d.RestartRequired = append(d.RestartRequired, "server.tls")
	}
	if !slices.Equal(old.Server.AllowedOrigins, new.Server.AllowedOrigins) {
		d.RestartRequired = append(d.RestartRequired, "server.allowed_origins")
	}
	if old.Backend != new.Backend {
		d.RestartRequired = append(d.RestartRequired, "backend")
	}
	if old.Live.Autostart != new.Live.Autostart {
		d.RestartRequired = append(d.RestartRequired, "live.autostart")
	}
	if old.Discord != new.Discord {
		d.RestartRequired = append(d.RestartRequired, "discord")
	}
	if old.Telemetry != new.Telemetry {
		d.RestartRequired = append(d.RestartRequired, "telemetry")
	}

	return d
}
