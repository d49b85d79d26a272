package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/Iron-Ham/shinyhunt/internal/logging"
	"github.com/Iron-Ham/shinyhunt/internal/sequence"
	"github.com/Iron-Ham/shinyhunt/internal/vision"
	"github.com/spf13/viper"
)

// Config represents the complete shinyhunt configuration
type Config struct {
	Capture   CaptureConfig   `mapstructure:"capture" yaml:"capture"`
	Input     InputConfig     `mapstructure:"input" yaml:"input"`
	Templates TemplatesConfig `mapstructure:"templates" yaml:"templates"`
	Sequence  SequenceConfig  `mapstructure:"sequence" yaml:"sequence"`
	Notify    NotifyConfig    `mapstructure:"notify" yaml:"notify"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
}

// CaptureConfig controls where frames come from
type CaptureConfig struct {
	// WindowTitle is matched as a substring against the titles wmctrl lists
	WindowTitle string `mapstructure:"window_title" yaml:"window_title"`
	// FocusDelayMs is slept after raising the window before a reset
	FocusDelayMs int `mapstructure:"focus_delay_ms" yaml:"focus_delay_ms"`
	// ScaleWidth resizes frames to this width when > 0
	ScaleWidth int `mapstructure:"scale_width" yaml:"scale_width"`
	// FramesDir replays saved frames instead of grabbing the window
	FramesDir string `mapstructure:"frames_dir" yaml:"frames_dir"`
	// LoopFrames restarts the replay when the frames run out
	LoopFrames bool `mapstructure:"loop_frames" yaml:"loop_frames"`
}

// InputConfig controls key actuation
type InputConfig struct {
	// Backend is one of input.Backends() (xdotool, dry-run, robotgo when built in)
	Backend      string `mapstructure:"backend" yaml:"backend"`
	HoldMs       int    `mapstructure:"hold_ms" yaml:"hold_ms"`
	ResetKey     string `mapstructure:"reset_key" yaml:"reset_key"`
	ResetDwellMs int    `mapstructure:"reset_dwell_ms" yaml:"reset_dwell_ms"`
}

// TemplatesConfig controls the template library
type TemplatesConfig struct {
	Dir              string   `mapstructure:"dir" yaml:"dir"`
	Include          []string `mapstructure:"include" yaml:"include"`
	DefaultThreshold float64  `mapstructure:"default_threshold" yaml:"default_threshold"`
	// Thresholds overrides the threshold per template. Keys are lowercased
	// by viper, so template file names should be lowercase too.
	Thresholds map[string]float64 `mapstructure:"thresholds" yaml:"thresholds"`
	// Matcher selects the similarity backend (ncc, or gocv when built in)
	Matcher string `mapstructure:"matcher" yaml:"matcher"`
	// Stride is the coarse search step of the ncc matcher. 1 scores every
	// position; small high-detail templates may need it.
	Stride int `mapstructure:"stride" yaml:"stride"`
}

// SequenceConfig describes the scripted hunt
type SequenceConfig struct {
	PollIntervalMs      int           `mapstructure:"poll_interval_ms" yaml:"poll_interval_ms"`
	ScanRetryIntervalMs int           `mapstructure:"scan_retry_interval_ms" yaml:"scan_retry_interval_ms"`
	JitterMinMs         int           `mapstructure:"jitter_min_ms" yaml:"jitter_min_ms"`
	JitterMaxMs         int           `mapstructure:"jitter_max_ms" yaml:"jitter_max_ms"`
	// StageTimeoutMs bounds screen waits and outcome scans. 0 (the default)
	// waits forever.
	StageTimeoutMs      int           `mapstructure:"stage_timeout_ms" yaml:"stage_timeout_ms"`
	BattleScreen        string        `mapstructure:"battle_screen" yaml:"battle_screen"`
	RareTemplate        string        `mapstructure:"rare_template" yaml:"rare_template"`
	OrdinaryTemplate    string        `mapstructure:"ordinary_template" yaml:"ordinary_template"`
	Stages              []StageConfig `mapstructure:"stages" yaml:"stages"`
}

// StageConfig is one entry of sequence.stages
type StageConfig struct {
	Name        string         `mapstructure:"name" yaml:"name"`
	Screen      string         `mapstructure:"screen" yaml:"screen,omitempty"`
	Actions     []ActionConfig `mapstructure:"actions" yaml:"actions"`
	JitterMinMs int            `mapstructure:"jitter_min_ms" yaml:"jitter_min_ms,omitempty"`
	JitterMaxMs int            `mapstructure:"jitter_max_ms" yaml:"jitter_max_ms,omitempty"`
}

// ActionConfig is one key press of a stage
type ActionConfig struct {
	Key     string `mapstructure:"key" yaml:"key"`
	DwellMs int    `mapstructure:"dwell_ms" yaml:"dwell_ms"`
}

// NotifyConfig controls alerts
type NotifyConfig struct {
	WebhookURL    string `mapstructure:"webhook_url" yaml:"webhook_url"`
	Desktop       bool   `mapstructure:"desktop" yaml:"desktop"`
	NotifyOnStuck bool   `mapstructure:"notify_on_stuck" yaml:"notify_on_stuck"`
	TimeoutMs     int    `mapstructure:"timeout_ms" yaml:"timeout_ms"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether logging is active (default: true)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Level sets the minimum log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
	// Dir holds shinyhunt.log. Empty means StateDir().
	Dir string `mapstructure:"dir" yaml:"dir"`
	// MaxSizeMB is the maximum size of a log file before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of rotated files to keep (default: 3)
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups"`
	Compress   bool `mapstructure:"compress" yaml:"compress"`
	QueueSize  int  `mapstructure:"queue_size" yaml:"queue_size"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	// Listen is the address /metrics is served on. Empty disables it.
	Listen string `mapstructure:"listen" yaml:"listen"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	seq := sequence.DefaultConfig()
	stages := make([]StageConfig, 0, len(seq.Stages))
	for _, s := range seq.Stages {
		stages = append(stages, stageConfigFrom(s))
	}

	return &Config{
		Capture: CaptureConfig{
			WindowTitle:  "mGBA - 0.10.4",
			FocusDelayMs: 500,
		},
		Input: InputConfig{
			Backend:      "xdotool",
			HoldMs:       100,
			ResetKey:     sequence.DefaultResetKey,
			ResetDwellMs: int(sequence.DefaultResetDwell / time.Millisecond),
		},
		Templates: TemplatesConfig{
			Dir:              "templates",
			Include:          []string{"*.png"},
			DefaultThreshold: vision.DefaultThreshold,
			Thresholds:       map[string]float64{},
			Matcher:          "ncc",
			Stride:           vision.DefaultStride,
		},
		Sequence: SequenceConfig{
			PollIntervalMs:      int(sequence.DefaultPollInterval / time.Millisecond),
			ScanRetryIntervalMs: int(sequence.DefaultScanRetryInterval / time.Millisecond),
			JitterMinMs:         int(seq.Jitter.Min / time.Millisecond),
			JitterMaxMs:         int(seq.Jitter.Max / time.Millisecond),
			StageTimeoutMs:      0,
			BattleScreen:        seq.BattleScreen,
			RareTemplate:        "shiny",
			OrdinaryTemplate:    "normal",
			Stages:              stages,
		},
		Notify: NotifyConfig{
			Desktop:       true,
			NotifyOnStuck: true,
			TimeoutMs:     10000,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			QueueSize:  logging.DefaultQueueSize,
		},
	}
}

func stageConfigFrom(s sequence.Stage) StageConfig {
	sc := StageConfig{
		Name:        s.Name,
		Screen:      s.Screen,
		JitterMinMs: ms(s.Jitter.Min),
		JitterMaxMs: ms(s.Jitter.Max),
	}
	for _, a := range s.Actions {
		sc.Actions = append(sc.Actions, ActionConfig{Key: a.Key, DwellMs: ms(a.Dwell)})
	}
	return sc
}

func ms(d time.Duration) int {
	return int(d / time.Millisecond)
}

func millis(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// FocusDelay returns the focus delay as a time.Duration
func (c *CaptureConfig) FocusDelay() time.Duration {
	return millis(c.FocusDelayMs)
}

// Hold returns how long each key is held down
func (c *InputConfig) Hold() time.Duration {
	return millis(c.HoldMs)
}

// Timeout returns the per-alert timeout
func (c *NotifyConfig) Timeout() time.Duration {
	return millis(c.TimeoutMs)
}

// SequenceConfig converts the hunt description for sequence.New.
func (c *Config) SequenceConfig() sequence.Config {
	seq := c.Sequence
	stages := make([]sequence.Stage, 0, len(seq.Stages))
	for _, sc := range seq.Stages {
		st := sequence.Stage{
			Name:   sc.Name,
			Screen: sc.Screen,
			Jitter: sequence.JitterWindow{Min: millis(sc.JitterMinMs), Max: millis(sc.JitterMaxMs)},
		}
		for _, a := range sc.Actions {
			st.Actions = append(st.Actions, sequence.Press(a.Key, millis(a.DwellMs)))
		}
		stages = append(stages, st)
	}

	candidates := []vision.Candidate{{Outcome: vision.RareMatch, Template: seq.RareTemplate}}
	if seq.OrdinaryTemplate != "" {
		candidates = append(candidates, vision.Candidate{Outcome: vision.OrdinaryMatch, Template: seq.OrdinaryTemplate})
	}

	return sequence.Config{
		Stages:            stages,
		BattleScreen:      seq.BattleScreen,
		Candidates:        candidates,
		ResetKey:          c.Input.ResetKey,
		ResetDwell:        millis(c.Input.ResetDwellMs),
		Jitter:            sequence.JitterWindow{Min: millis(seq.JitterMinMs), Max: millis(seq.JitterMaxMs)},
		PollInterval:      millis(seq.PollIntervalMs),
		ScanRetryInterval: millis(seq.ScanRetryIntervalMs),
		StageTimeout:      millis(seq.StageTimeoutMs),
		AlertOnStuck:      c.Notify.NotifyOnStuck,
	}
}

// RequiredTemplates lists every template the hunt looks for, in the order
// the sequence first needs them.
func (c *Config) RequiredTemplates() []string {
	var names []string
	seen := make(map[string]bool)
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, s := range c.Sequence.Stages {
		add(s.Screen)
	}
	add(c.Sequence.BattleScreen)
	add(c.Sequence.RareTemplate)
	add(c.Sequence.OrdinaryTemplate)
	return names
}

// LoadOptions converts the template settings for vision.LoadLibrary.
func (c *Config) LoadOptions() vision.LoadOptions {
	return vision.LoadOptions{
		Dir:              c.Templates.Dir,
		Include:          c.Templates.Include,
		DefaultThreshold: c.Templates.DefaultThreshold,
		Thresholds:       c.Templates.Thresholds,
		Required:         c.RequiredTemplates(),
	}
}

// MatcherOptions converts the matcher settings for vision.NewMatcher.
func (c *Config) MatcherOptions() vision.MatcherOptions {
	return vision.MatcherOptions{Stride: c.Templates.Stride}
}

// LoggingOptions converts the logging settings for logging.Open. The
// directory defaults to StateDir().
func (c *Config) LoggingOptions() logging.Options {
	dir := c.Logging.Dir
	if dir == "" {
		dir = StateDir()
	}
	return logging.Options{
		Dir:   dir,
		Level: logging.ParseLevel(c.Logging.Level),
		Rotation: logging.RotationConfig{
			MaxSizeMB:  c.Logging.MaxSizeMB,
			MaxBackups: c.Logging.MaxBackups,
			Compress:   c.Logging.Compress,
		},
		QueueSize: c.Logging.QueueSize,
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Capture defaults
	viper.SetDefault("capture.window_title", defaults.Capture.WindowTitle)
	viper.SetDefault("capture.focus_delay_ms", defaults.Capture.FocusDelayMs)
	viper.SetDefault("capture.scale_width", defaults.Capture.ScaleWidth)
	viper.SetDefault("capture.frames_dir", defaults.Capture.FramesDir)
	viper.SetDefault("capture.loop_frames", defaults.Capture.LoopFrames)

	// Input defaults
	viper.SetDefault("input.backend", defaults.Input.Backend)
	viper.SetDefault("input.hold_ms", defaults.Input.HoldMs)
	viper.SetDefault("input.reset_key", defaults.Input.ResetKey)
	viper.SetDefault("input.reset_dwell_ms", defaults.Input.ResetDwellMs)

	// Template defaults
	viper.SetDefault("templates.dir", defaults.Templates.Dir)
	viper.SetDefault("templates.include", defaults.Templates.Include)
	viper.SetDefault("templates.default_threshold", defaults.Templates.DefaultThreshold)
	viper.SetDefault("templates.thresholds", defaults.Templates.Thresholds)
	viper.SetDefault("templates.matcher", defaults.Templates.Matcher)
	viper.SetDefault("templates.stride", defaults.Templates.Stride)

	// Sequence defaults
	viper.SetDefault("sequence.poll_interval_ms", defaults.Sequence.PollIntervalMs)
	viper.SetDefault("sequence.scan_retry_interval_ms", defaults.Sequence.ScanRetryIntervalMs)
	viper.SetDefault("sequence.jitter_min_ms", defaults.Sequence.JitterMinMs)
	viper.SetDefault("sequence.jitter_max_ms", defaults.Sequence.JitterMaxMs)
	viper.SetDefault("sequence.stage_timeout_ms", defaults.Sequence.StageTimeoutMs)
	viper.SetDefault("sequence.battle_screen", defaults.Sequence.BattleScreen)
	viper.SetDefault("sequence.rare_template", defaults.Sequence.RareTemplate)
	viper.SetDefault("sequence.ordinary_template", defaults.Sequence.OrdinaryTemplate)
	viper.SetDefault("sequence.stages", defaults.Sequence.Stages)

	// Notify defaults
	viper.SetDefault("notify.webhook_url", defaults.Notify.WebhookURL)
	viper.SetDefault("notify.desktop", defaults.Notify.Desktop)
	viper.SetDefault("notify.notify_on_stuck", defaults.Notify.NotifyOnStuck)
	viper.SetDefault("notify.timeout_ms", defaults.Notify.TimeoutMs)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)
	viper.SetDefault("logging.queue_size", defaults.Logging.QueueSize)

	// Metrics defaults
	viper.SetDefault("metrics.listen", defaults.Metrics.Listen)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "shinyhunt")
	}
	// Fall back to ~/.config/shinyhunt
	home, err := os.UserHomeDir()
	if err != nil {
		return ".shinyhunt"
	}
	return filepath.Join(home, ".config", "shinyhunt")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// StateDir returns the directory logs are written to by default
func StateDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "shinyhunt")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".shinyhunt"
	}
	return filepath.Join(home, ".local", "state", "shinyhunt")
}
