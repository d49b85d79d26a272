package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/Iron-Ham/shinyhunt/internal/errors"
	"github.com/Iron-Ham/shinyhunt/internal/logging"
	"github.com/Iron-Ham/shinyhunt/internal/sequence"
	"github.com/Iron-Ham/shinyhunt/internal/vision"
	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	if cfg.Capture.WindowTitle != "mGBA - 0.10.4" {
		t.Errorf("Capture.WindowTitle = %q, want %q", cfg.Capture.WindowTitle, "mGBA - 0.10.4")
	}
	if cfg.Input.Backend != "xdotool" {
		t.Errorf("Input.Backend = %q, want xdotool", cfg.Input.Backend)
	}
	if cfg.Input.ResetKey != "ctrl+r" || cfg.Input.ResetDwellMs != 4000 {
		t.Errorf("reset = %q/%dms, want ctrl+r/4000ms", cfg.Input.ResetKey, cfg.Input.ResetDwellMs)
	}
	if cfg.Templates.DefaultThreshold != 0.9 {
		t.Errorf("Templates.DefaultThreshold = %v, want 0.9", cfg.Templates.DefaultThreshold)
	}
	if cfg.Templates.Stride != 4 || cfg.MatcherOptions().Stride != 4 {
		t.Errorf("Templates.Stride = %d, want 4", cfg.Templates.Stride)
	}
	if cfg.Sequence.JitterMinMs != 500 || cfg.Sequence.JitterMaxMs != 6000 {
		t.Errorf("jitter = [%d, %d], want [500, 6000]", cfg.Sequence.JitterMinMs, cfg.Sequence.JitterMaxMs)
	}
	if cfg.Sequence.StageTimeoutMs != 0 {
		t.Errorf("Sequence.StageTimeoutMs = %d, want 0 (wait forever)", cfg.Sequence.StageTimeoutMs)
	}
	if len(cfg.Sequence.Stages) != 3 {
		t.Errorf("len(Sequence.Stages) = %d, want 3", len(cfg.Sequence.Stages))
	}
	if !cfg.Notify.Desktop || !cfg.Notify.NotifyOnStuck {
		t.Error("desktop and stuck notifications should be on by default")
	}
	if !cfg.Logging.Enabled || cfg.Logging.Level != "info" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Metrics.Listen != "" {
		t.Errorf("Metrics.Listen = %q, want disabled", cfg.Metrics.Listen)
	}
}

func TestConfig_SequenceConfig(t *testing.T) {
	t.Run("defaults round trip", func(t *testing.T) {
		got := Default().SequenceConfig()
		want := sequence.DefaultConfig()
		if err := got.Validate(); err != nil {
			t.Fatalf("converted config is invalid: %v", err)
		}
		if !reflect.DeepEqual(got.Stages, want.Stages) {
			t.Errorf("Stages = %+v, want %+v", got.Stages, want.Stages)
		}
		if !reflect.DeepEqual(got.Candidates, want.Candidates) {
			t.Errorf("Candidates = %+v, want %+v", got.Candidates, want.Candidates)
		}
		if got.Jitter != want.Jitter || got.ResetDwell != want.ResetDwell || got.AlertOnStuck != want.AlertOnStuck {
			t.Errorf("timings differ: got %+v", got)
		}
	})

	t.Run("rare only", func(t *testing.T) {
		cfg := Default()
		cfg.Sequence.OrdinaryTemplate = ""
		cfg.Sequence.StageTimeoutMs = 30000
		cfg.Notify.NotifyOnStuck = false
		got := cfg.SequenceConfig()
		if len(got.Candidates) != 1 || got.Candidates[0].Outcome != vision.RareMatch {
			t.Errorf("Candidates = %+v, want only the rare one", got.Candidates)
		}
		if got.StageTimeout != 30*time.Second || got.AlertOnStuck {
			t.Errorf("StageTimeout = %s, AlertOnStuck = %v", got.StageTimeout, got.AlertOnStuck)
		}
	})

	t.Run("stage screens and jitter", func(t *testing.T) {
		cfg := Default()
		cfg.Sequence.Stages = []StageConfig{{
			Name:        "menu",
			Screen:      "menu",
			Actions:     []ActionConfig{{Key: "Down", DwellMs: 250}},
			JitterMinMs: 10,
			JitterMaxMs: 20,
		}}
		st := cfg.SequenceConfig().Stages[0]
		if st.Screen != "menu" || st.Actions[0] != sequence.Press("Down", 250*time.Millisecond) {
			t.Errorf("stage = %+v", st)
		}
		if st.Jitter != (sequence.JitterWindow{Min: 10 * time.Millisecond, Max: 20 * time.Millisecond}) {
			t.Errorf("stage jitter = %+v", st.Jitter)
		}
	})
}

func TestConfig_RequiredTemplates(t *testing.T) {
	cfg := Default()
	cfg.Sequence.Stages[0].Screen = "intro"
	cfg.Sequence.Stages[1].Screen = "battle"

	got := cfg.RequiredTemplates()
	want := []string{"intro", "battle", "shiny", "normal"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RequiredTemplates() = %v, want %v", got, want)
	}

	opts := cfg.LoadOptions()
	if !reflect.DeepEqual(opts.Required, want) || opts.Dir != "templates" || opts.DefaultThreshold != 0.9 {
		t.Errorf("LoadOptions() = %+v", opts)
	}
}

func TestConfig_LoggingOptions(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/custom/state")

	cfg := Default()
	cfg.Logging.Level = "debug"
	opts := cfg.LoggingOptions()
	if opts.Dir != "/custom/state/shinyhunt" {
		t.Errorf("Dir = %q, want /custom/state/shinyhunt", opts.Dir)
	}
	if opts.Level != logging.LevelDebug {
		t.Errorf("Level = %q, want %q", opts.Level, logging.LevelDebug)
	}
	if opts.Rotation.MaxSizeMB != 10 || opts.Rotation.MaxBackups != 3 {
		t.Errorf("Rotation = %+v", opts.Rotation)
	}

	cfg.Logging.Dir = "/var/log/hunt"
	if got := cfg.LoggingOptions().Dir; got != "/var/log/hunt" {
		t.Errorf("explicit Dir = %q", got)
	}
}

func TestDurations(t *testing.T) {
	tests := []struct {
		ms       int
		expected time.Duration
	}{
		{100, 100 * time.Millisecond},
		{1000, 1 * time.Second},
		{0, 0},
	}

	for _, tt := range tests {
		if got := (&CaptureConfig{FocusDelayMs: tt.ms}).FocusDelay(); got != tt.expected {
			t.Errorf("FocusDelay() with %dms = %v, want %v", tt.ms, got, tt.expected)
		}
		if got := (&InputConfig{HoldMs: tt.ms}).Hold(); got != tt.expected {
			t.Errorf("Hold() with %dms = %v, want %v", tt.ms, got, tt.expected)
		}
		if got := (&NotifyConfig{TimeoutMs: tt.ms}).Timeout(); got != tt.expected {
			t.Errorf("Timeout() with %dms = %v, want %v", tt.ms, got, tt.expected)
		}
	}
}

func TestConfigDir(t *testing.T) {
	t.Run("with XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		if got := ConfigDir(); got != "/custom/config/shinyhunt" {
			t.Errorf("ConfigDir() = %q, want %q", got, "/custom/config/shinyhunt")
		}
		if got := ConfigFile(); got != "/custom/config/shinyhunt/config.yaml" {
			t.Errorf("ConfigFile() = %q", got)
		}
	})

	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, ".config", "shinyhunt")
		if got := ConfigDir(); got != expected {
			t.Errorf("ConfigDir() = %q, want %q", got, expected)
		}
	})
}

func loadYAML(t *testing.T, content string) (*Config, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	SetDefaults()
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig failed: %v", err)
	}
	return Load()
}

func TestLoad(t *testing.T) {
	t.Run("defaults only", func(t *testing.T) {
		cfg, err := loadYAML(t, "{}\n")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if !reflect.DeepEqual(cfg.Sequence.Stages, Default().Sequence.Stages) {
			t.Errorf("Stages = %+v, want defaults", cfg.Sequence.Stages)
		}
		if cfg.Input.ResetKey != "ctrl+r" {
			t.Errorf("ResetKey = %q", cfg.Input.ResetKey)
		}
	})

	t.Run("file overrides", func(t *testing.T) {
		cfg, err := loadYAML(t, `
capture:
  frames_dir: /tmp/frames
  scale_width: 240
templates:
  stride: 2
  thresholds:
    shiny: 0.95
sequence:
  stage_timeout_ms: 60000
  stages:
    - name: title
      screen: title
      actions:
        - key: Return
          dwell_ms: 1500
    - name: pick
      actions:
        - key: x
metrics:
  listen: ":9090"
`)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Capture.FramesDir != "/tmp/frames" || cfg.Capture.ScaleWidth != 240 {
			t.Errorf("Capture = %+v", cfg.Capture)
		}
		if cfg.MatcherOptions().Stride != 2 {
			t.Errorf("MatcherOptions().Stride = %d, want 2", cfg.MatcherOptions().Stride)
		}
		if cfg.Templates.Thresholds["shiny"] != 0.95 {
			t.Errorf("Thresholds = %v", cfg.Templates.Thresholds)
		}
		want := []StageConfig{
			{Name: "title", Screen: "title", Actions: []ActionConfig{{Key: "Return", DwellMs: 1500}}},
			{Name: "pick", Actions: []ActionConfig{{Key: "x"}}},
		}
		if !reflect.DeepEqual(cfg.Sequence.Stages, want) {
			t.Errorf("Stages = %+v, want %+v", cfg.Sequence.Stages, want)
		}
		if cfg.Sequence.StageTimeoutMs != 60000 || cfg.Metrics.Listen != ":9090" {
			t.Errorf("Sequence = %+v, Metrics = %+v", cfg.Sequence, cfg.Metrics)
		}
		// Untouched sections keep their defaults.
		if cfg.Input.ResetDwellMs != 4000 {
			t.Errorf("ResetDwellMs = %d, want 4000", cfg.Input.ResetDwellMs)
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := loadYAML(t, `
templates:
  default_threshold: 1.5
input:
  hold_ms: -1
`)
		var verrs ValidationErrors
		if !errors.As(err, &verrs) {
			t.Fatalf("Load error = %v, want ValidationErrors", err)
		}
		if len(verrs) != 2 {
			t.Errorf("got %d validation errors, want 2: %v", len(verrs), verrs)
		}
	})
}
