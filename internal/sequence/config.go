package sequence

import (
	"fmt"
	"time"

	"github.com/Iron-Ham/shinyhunt/internal/errors"
	"github.com/Iron-Ham/shinyhunt/internal/vision"
)

// Default timings.
const (
	DefaultPollInterval      = 100 * time.Millisecond
	DefaultScanRetryInterval = time.Second
	DefaultResetDwell        = 4 * time.Second
	DefaultResetKey          = "ctrl+r"
)

// Config is the static description of a hunt. It is read only once the
// controller is built.
type Config struct {
	// Stages run in order after every reset.
	Stages []Stage

	// BattleScreen is the template that gates the outcome scan.
	BattleScreen string

	// Candidates are scanned in order; list the rare variant first.
	Candidates []vision.Candidate

	// ResetKey is pressed to soft-reset the game, then ResetDwell is slept.
	ResetKey   string
	ResetDwell time.Duration

	// Jitter is slept before every reset.
	Jitter JitterWindow

	// PollInterval separates screen checks while awaiting a screen.
	PollInterval time.Duration

	// ScanRetryInterval separates outcome scans that detect nothing.
	ScanRetryInterval time.Duration

	// StageTimeout bounds every screen wait and the outcome scan.
	// Zero waits forever: an outcome scan that never matches retries every
	// ScanRetryInterval until the run is canceled. Set it for unattended
	// hunts so a frozen game raises a stuck alert.
	StageTimeout time.Duration

	// AlertOnStuck sends an alert when StageTimeout expires.
	AlertOnStuck bool
}

// DefaultConfig returns the starter hunt: the default stage table, a
// "battle" screen and shiny-before-normal outcome candidates.
func DefaultConfig() Config {
	return Config{
		Stages:       DefaultStages(),
		BattleScreen: "battle",
		Candidates: []vision.Candidate{
			{Outcome: vision.RareMatch, Template: "shiny"},
			{Outcome: vision.OrdinaryMatch, Template: "normal"},
		},
		ResetKey:          DefaultResetKey,
		ResetDwell:        DefaultResetDwell,
		Jitter:            JitterWindow{Min: 500 * time.Millisecond, Max: 6 * time.Second},
		PollInterval:      DefaultPollInterval,
		ScanRetryInterval: DefaultScanRetryInterval,
		AlertOnStuck:      true,
	}
}

// Validate checks the configuration for errors a controller cannot recover
// from. Zero intervals are not errors; New replaces them with defaults.
func (c Config) Validate() error {
	if len(c.Stages) == 0 {
		return errors.ErrNoStages
	}
	for _, s := range c.Stages {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("%w: %w", errors.ErrInvalidInput, err)
		}
	}
	if c.BattleScreen == "" {
		return fmt.Errorf("%w: battle screen is required", errors.ErrInvalidInput)
	}
	if len(c.Candidates) == 0 {
		return fmt.Errorf("%w: at least one outcome candidate is required", errors.ErrInvalidInput)
	}
	hasRare := false
	for _, cand := range c.Candidates {
		if cand.Template == "" {
			return fmt.Errorf("%w: outcome candidate has no template", errors.ErrInvalidInput)
		}
		if cand.Outcome == vision.NotDetected {
			return fmt.Errorf("%w: candidate %q cannot map to not_detected", errors.ErrInvalidInput, cand.Template)
		}
		if cand.Outcome == vision.RareMatch {
			hasRare = true
		}
	}
	if !hasRare {
		return fmt.Errorf("%w: no candidate maps to the rare outcome, the hunt could never end", errors.ErrInvalidInput)
	}
	if c.ResetKey == "" {
		return fmt.Errorf("%w: reset key is required", errors.ErrInvalidInput)
	}
	if c.ResetDwell < 0 || c.PollInterval < 0 || c.ScanRetryInterval < 0 || c.StageTimeout < 0 {
		return fmt.Errorf("%w: durations must not be negative", errors.ErrInvalidInput)
	}
	if c.Jitter.Min < 0 || c.Jitter.Max < 0 || (c.Jitter.Max > 0 && c.Jitter.Max < c.Jitter.Min) {
		return fmt.Errorf("%w: jitter window [%s, %s] is invalid", errors.ErrInvalidInput, c.Jitter.Min, c.Jitter.Max)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.ScanRetryInterval == 0 {
		c.ScanRetryInterval = DefaultScanRetryInterval
	}
	return c
}
