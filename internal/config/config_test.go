package config_test

import (
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/podium/internal/config"
	"github.com/MrWong99/podium/internal/notify"
	"github.com/MrWong99/podium/pkg/speech"
)

func TestLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level config.LogLevel
		valid bool
		slog  slog.Level
	}{
		{config.LogDebug, true, slog.LevelDebug},
		{config.LogInfo, true, slog.LevelInfo},
		{config.LogWarn, true, slog.LevelWarn},
		{config.LogError, true, slog.LevelError},
		{"", false, slog.LevelInfo},
		{"verbose", false, slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := tt.level.IsValid(); got != tt.valid {
			t.Errorf("%q.IsValid() = %v, want %v", tt.level, got, tt.valid)
		}
		if got := tt.level.Level(); got != tt.slog {
			t.Errorf("%q.Level() = %v, want %v", tt.level, got, tt.slog)
		}
	}
}

func TestLoadFromReader_EmptyDocumentYieldsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != config.DefaultListenAddr {
		t.Errorf("listen_addr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("log_level = %q", cfg.Server.LogLevel)
	}
	if cfg.Live.TickInterval != 2*time.Second || cfg.Live.WindowSize != 10 {
		t.Errorf("live = %+v", cfg.Live)
	}
	if !slices.Equal(cfg.Live.Charted, []speech.Field{speech.Speed, speech.Clarity}) {
		t.Errorf("charted = %v", cfg.Live.Charted)
	}
	if cfg.Telemetry.ServiceName != "podium" {
		t.Errorf("service_name = %q", cfg.Telemetry.ServiceName)
	}
	if cfg.Discord.Enabled() {
		t.Error("discord enabled without token")
	}
}

func TestPanelConfig_FromYAML(t *testing.T) {
	t.Parallel()

	yaml := `
live:
  tick_interval: 1s
  window_size: 5
  charted: [speed, volume]
  fields:
    speed: {min: 90, max: 150, step: 5, initial: 110}
  filler_words:
    - {word: uh, count: 0}
notifications:
  cadence: relaxed
  dwell: 4s
  corpus:
    - "Breathe."
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	pc := cfg.PanelConfig()

	if pc.TickInterval != time.Second || pc.WindowSize != 5 {
		t.Errorf("tick/window = %s/%d", pc.TickInterval, pc.WindowSize)
	}
	if !slices.Equal(pc.Charted, []speech.Field{speech.Speed, speech.Volume}) {
		t.Errorf("charted = %v", pc.Charted)
	}
	if got := pc.Specs[speech.Speed]; got.Min != 90 || got.Max != 150 || got.Initial != 110 {
		t.Errorf("speed spec = %+v", got)
	}
	if got := pc.Specs[speech.Clarity]; got != speech.DefaultSpecs()[speech.Clarity] {
		t.Errorf("clarity spec changed: %+v", got)
	}
	want := notify.Cadence{Raise: notify.Relaxed.Raise, Dwell: 4 * time.Second}
	if pc.Cadence != want {
		t.Errorf("cadence = %+v, want %+v", pc.Cadence, want)
	}
	if !slices.Equal(pc.Corpus, []string{"Breathe."}) {
		t.Errorf("corpus = %v", pc.Corpus)
	}
	if !slices.Equal(cfg.FillerWords(), []string{"uh"}) {
		t.Errorf("FillerWords() = %v", cfg.FillerWords())
	}
}

func TestDefaultPanelConfigMatchesLiveDefaults(t *testing.T) {
	t.Parallel()

	pc := config.Default().PanelConfig()
	if err := pc.Validate(); err != nil {
		t.Fatalf("default panel config invalid: %v", err)
	}
	if pc.Cadence != notify.Standard {
		t.Errorf("cadence = %+v, want standard", pc.Cadence)
	}
	if !slices.Equal(pc.Corpus, notify.DefaultCorpus) {
		t.Error("default corpus differs")
	}
}
