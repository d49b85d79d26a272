package config

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strings"

	"github.com/Iron-Ham/shinyhunt/internal/input"
	"github.com/Iron-Ham/shinyhunt/internal/vision"
	"github.com/gobwas/glob"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "sequence.poll_interval_ms")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateCapture()...)
	errors = append(errors, c.validateInput()...)
	errors = append(errors, c.validateTemplates()...)
	errors = append(errors, c.validateSequence()...)
	errors = append(errors, c.validateNotify()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateMetrics()...)

	return errors
}

func nonNegative(field string, v int) []ValidationError {
	if v < 0 {
		return []ValidationError{{Field: field, Value: v, Message: "must be non-negative"}}
	}
	return nil
}

func validThreshold(v float64) bool {
	return v > 0 && v <= 1
}

// validateCapture validates the CaptureConfig
func (c *Config) validateCapture() []ValidationError {
	var errors []ValidationError

	if c.Capture.FramesDir == "" && strings.TrimSpace(c.Capture.WindowTitle) == "" {
		errors = append(errors, ValidationError{
			Field:   "capture.window_title",
			Value:   c.Capture.WindowTitle,
			Message: "cannot be empty when capture.frames_dir is not set",
		})
	}
	errors = append(errors, nonNegative("capture.focus_delay_ms", c.Capture.FocusDelayMs)...)
	errors = append(errors, nonNegative("capture.scale_width", c.Capture.ScaleWidth)...)

	return errors
}

// validateInput validates the InputConfig
func (c *Config) validateInput() []ValidationError {
	var errors []ValidationError

	if c.Input.Backend != "" && !slices.Contains(input.Backends(), c.Input.Backend) {
		errors = append(errors, ValidationError{
			Field:   "input.backend",
			Value:   c.Input.Backend,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(input.Backends(), ", ")),
		})
	}
	errors = append(errors, nonNegative("input.hold_ms", c.Input.HoldMs)...)
	errors = append(errors, nonNegative("input.reset_dwell_ms", c.Input.ResetDwellMs)...)
	if _, err := input.ParseKey(c.Input.ResetKey); err != nil {
		errors = append(errors, ValidationError{
			Field:   "input.reset_key",
			Value:   c.Input.ResetKey,
			Message: err.Error(),
		})
	}

	return errors
}

// validateTemplates validates the TemplatesConfig
func (c *Config) validateTemplates() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Templates.Dir) == "" {
		errors = append(errors, ValidationError{
			Field:   "templates.dir",
			Value:   c.Templates.Dir,
			Message: "cannot be empty",
		})
	}
	for _, pattern := range c.Templates.Include {
		if _, err := glob.Compile(pattern); err != nil {
			errors = append(errors, ValidationError{
				Field:   "templates.include",
				Value:   pattern,
				Message: fmt.Sprintf("invalid glob pattern: %v", err),
			})
		}
	}
	if !validThreshold(c.Templates.DefaultThreshold) {
		errors = append(errors, ValidationError{
			Field:   "templates.default_threshold",
			Value:   c.Templates.DefaultThreshold,
			Message: "must be greater than 0 and at most 1",
		})
	}
	names := make([]string, 0, len(c.Templates.Thresholds))
	for name := range c.Templates.Thresholds {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if v := c.Templates.Thresholds[name]; !validThreshold(v) {
			errors = append(errors, ValidationError{
				Field:   "templates.thresholds." + name,
				Value:   v,
				Message: "must be greater than 0 and at most 1",
			})
		}
	}
	if c.Templates.Matcher != "" && !slices.Contains(vision.MatcherNames(), c.Templates.Matcher) {
		errors = append(errors, ValidationError{
			Field:   "templates.matcher",
			Value:   c.Templates.Matcher,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(vision.MatcherNames(), ", ")),
		})
	}
	if c.Templates.Stride < 1 {
		errors = append(errors, ValidationError{
			Field:   "templates.stride",
			Value:   c.Templates.Stride,
			Message: "must be at least 1",
		})
	}

	return errors
}

// validateSequence validates the SequenceConfig
func (c *Config) validateSequence() []ValidationError {
	var errors []ValidationError
	seq := c.Sequence

	errors = append(errors, nonNegative("sequence.poll_interval_ms", seq.PollIntervalMs)...)
	errors = append(errors, nonNegative("sequence.scan_retry_interval_ms", seq.ScanRetryIntervalMs)...)
	errors = append(errors, nonNegative("sequence.stage_timeout_ms", seq.StageTimeoutMs)...)
	errors = append(errors, nonNegative("sequence.jitter_min_ms", seq.JitterMinMs)...)
	errors = append(errors, nonNegative("sequence.jitter_max_ms", seq.JitterMaxMs)...)
	if seq.JitterMaxMs > 0 && seq.JitterMaxMs < seq.JitterMinMs {
		errors = append(errors, ValidationError{
			Field:   "sequence.jitter_max_ms",
			Value:   seq.JitterMaxMs,
			Message: fmt.Sprintf("must be at least sequence.jitter_min_ms (%d)", seq.JitterMinMs),
		})
	}

	if seq.BattleScreen == "" {
		errors = append(errors, ValidationError{
			Field:   "sequence.battle_screen",
			Value:   seq.BattleScreen,
			Message: "cannot be empty",
		})
	}
	if seq.RareTemplate == "" {
		errors = append(errors, ValidationError{
			Field:   "sequence.rare_template",
			Value:   seq.RareTemplate,
			Message: "cannot be empty",
		})
	}
	if seq.OrdinaryTemplate != "" && seq.OrdinaryTemplate == seq.RareTemplate {
		errors = append(errors, ValidationError{
			Field:   "sequence.ordinary_template",
			Value:   seq.OrdinaryTemplate,
			Message: "must differ from sequence.rare_template",
		})
	}

	if len(seq.Stages) == 0 {
		errors = append(errors, ValidationError{
			Field:   "sequence.stages",
			Value:   0,
			Message: "at least one stage is required",
		})
	}
	seen := make(map[string]bool)
	for i, st := range seq.Stages {
		prefix := fmt.Sprintf("sequence.stages[%d]", i)
		if st.Name == "" {
			errors = append(errors, ValidationError{Field: prefix + ".name", Value: st.Name, Message: "cannot be empty"})
		} else if seen[st.Name] {
			errors = append(errors, ValidationError{Field: prefix + ".name", Value: st.Name, Message: "duplicate stage name"})
		}
		seen[st.Name] = true

		if len(st.Actions) == 0 {
			errors = append(errors, ValidationError{Field: prefix + ".actions", Value: 0, Message: "at least one action is required"})
		}
		for j, a := range st.Actions {
			field := fmt.Sprintf("%s.actions[%d]", prefix, j)
			if _, err := input.ParseKey(a.Key); err != nil {
				errors = append(errors, ValidationError{Field: field + ".key", Value: a.Key, Message: err.Error()})
			}
			errors = append(errors, nonNegative(field+".dwell_ms", a.DwellMs)...)
		}
		errors = append(errors, nonNegative(prefix+".jitter_min_ms", st.JitterMinMs)...)
		errors = append(errors, nonNegative(prefix+".jitter_max_ms", st.JitterMaxMs)...)
	}

	return errors
}

// validateNotify validates the NotifyConfig
func (c *Config) validateNotify() []ValidationError {
	var errors []ValidationError

	if c.Notify.WebhookURL != "" {
		u, err := url.Parse(c.Notify.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "notify.webhook_url",
				Value:   c.Notify.WebhookURL,
				Message: "must be an http or https URL",
			})
		}
	}
	errors = append(errors, nonNegative("notify.timeout_ms", c.Notify.TimeoutMs)...)

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	errors = append(errors, nonNegative("logging.max_size_mb", c.Logging.MaxSizeMB)...)
	errors = append(errors, nonNegative("logging.max_backups", c.Logging.MaxBackups)...)
	errors = append(errors, nonNegative("logging.queue_size", c.Logging.QueueSize)...)

	return errors
}

// validateMetrics validates the MetricsConfig
func (c *Config) validateMetrics() []ValidationError {
	if c.Metrics.Listen == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Metrics.Listen); err != nil {
		return []ValidationError{{
			Field:   "metrics.listen",
			Value:   c.Metrics.Listen,
			Message: "must be host:port (e.g. \":9090\")",
		}}
	}
	return nil
}
