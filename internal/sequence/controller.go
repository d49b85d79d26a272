package sequence

import (
	"context"
	"fmt"
	"image"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Iron-Ham/shinyhunt/internal/errors"
	"github.com/Iron-Ham/shinyhunt/internal/logging"
	"github.com/Iron-Ham/shinyhunt/internal/notify"
	"github.com/Iron-Ham/shinyhunt/internal/vision"
)

// Source produces the current frame of the game window.
type Source interface {
	Capture(ctx context.Context) (image.Image, error)
}

// Focuser is implemented by sources that can raise the game window. The
// controller focuses before every reset.
type Focuser interface {
	Focus(ctx context.Context) error
}

// Classifier decides which screen a frame shows.
type Classifier interface {
	IsPresent(frame image.Image, name string, threshold float64) bool
	ScanForOutcome(frame image.Image, candidates []vision.Candidate) (vision.Outcome, vision.Result)
}

// Actuator presses keys in the game window.
type Actuator interface {
	Press(ctx context.Context, key string) error
}

// Notifier delivers alerts.
type Notifier interface {
	Alert(ctx context.Context, msg notify.Message) error
}

// Deps are the collaborators a Controller drives. Notifier may be nil.
type Deps struct {
	Source     Source
	Classifier Classifier
	Actuator   Actuator
	Notifier   Notifier
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger. The run ID is attached to it.
func WithLogger(l *logging.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(clock Clock) Option {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithRand sets the jitter source.
func WithRand(r *rand.Rand) Option {
	return func(c *Controller) {
		if r != nil {
			c.rng = r
		}
	}
}

// WithObserver adds observers that receive every event.
func WithObserver(obs ...Observer) Option {
	return func(c *Controller) {
		for _, o := range obs {
			if o != nil {
				c.observers = append(c.observers, o)
			}
		}
	}
}

// Controller runs the hunt loop. It is driven by a single goroutine through
// Step or Run; Snapshot and Position may be called from any goroutine.
type Controller struct {
	cfg        Config
	source     Source
	classifier Classifier
	actuator   Actuator
	notifier   Notifier

	clock     Clock
	rng       *rand.Rand
	logger    *logging.Logger
	observers []Observer

	mu  sync.RWMutex
	pos Position
	run Run

	// waitStart is when the current screen wait began; zero outside waits.
	waitStart time.Time
	// captureFailures counts consecutive failed captures.
	captureFailures int
}

// New validates cfg and builds a controller positioned at StateIdle.
func New(cfg Config, deps Deps, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Source == nil || deps.Classifier == nil || deps.Actuator == nil {
		return nil, fmt.Errorf("%w: source, classifier and actuator are required", errors.ErrInvalidInput)
	}

	c := &Controller{
		cfg:        cfg.withDefaults(),
		source:     deps.Source,
		classifier: deps.Classifier,
		actuator:   deps.Actuator,
		notifier:   deps.Notifier,
		clock:      RealClock{},
		logger:     logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		now := uint64(c.clock.Now().UnixNano())
		c.rng = rand.New(rand.NewPCG(now, now>>17|1))
	}

	c.run = *NewRun(c.clock.Now())
	c.logger = c.logger.WithRun(c.run.ID)
	return c, nil
}

// Position returns the active state.
func (c *Controller) Position() Position {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pos
}

// Snapshot returns a copy of the run context.
func (c *Controller) Snapshot() Run {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.run
}

// Run steps the controller until the rare variant is found (returns nil),
// ctx is done (returns ctx.Err()) or a wait times out (returns a
// *errors.StuckError). Calling Run again after a timeout resumes the wait
// with a fresh deadline.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info("hunt started",
		"stages", len(c.cfg.Stages),
		"battle_screen", c.cfg.BattleScreen,
		"poll_interval", c.cfg.PollInterval.String(),
		"stage_timeout", c.cfg.StageTimeout.String(),
	)

	for c.Position().State != StateTerminated {
		if err := c.Step(ctx); err != nil {
			snap := c.Snapshot()
			if ctx.Err() != nil {
				c.logger.Info("hunt canceled", logging.AttrResetCount, snap.ResetCount, "state", c.Position().String())
			}
			return err
		}
	}
	return nil
}

// Step performs the work of the current state and transitions. In a polling
// state one Step is one check followed by one interval sleep. Step on a
// terminated controller does nothing.
func (c *Controller) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	pos := c.Position()
	switch pos.State {
	case StateIdle:
		return c.reset(ctx)
	case StateAwaitingStage:
		stage := c.cfg.Stages[pos.Stage]
		return c.awaitScreen(ctx, stage.Name, stage.Screen, Position{State: StateExecutingStage, Stage: pos.Stage})
	case StateExecutingStage:
		return c.executeStage(ctx, pos.Stage)
	case StateAwaitingBattle:
		return c.awaitScreen(ctx, "battle", c.cfg.BattleScreen, Position{State: StateScanningOutcome})
	case StateScanningOutcome:
		return c.scan(ctx)
	case StateTerminated:
		return nil
	default:
		return fmt.Errorf("controller in unknown state %d", pos.State)
	}
}

func (c *Controller) reset(ctx context.Context) error {
	c.mu.Lock()
	c.run.ResetCount++
	count := c.run.ResetCount
	c.mu.Unlock()

	c.logger.Info("resetting game", logging.AttrResetCount, count)
	c.emit(Event{Kind: EventReset})

	if d := c.cfg.Jitter.Pick(c.rng); d > 0 {
		c.logger.Debug("jitter before reset", "wait", d.String())
		if err := c.clock.Sleep(ctx, d); err != nil {
			return err
		}
	}

	if f, ok := c.source.(Focuser); ok {
		if err := f.Focus(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("failed to focus game window", "error", err.Error())
		}
	}

	if err := c.press(ctx, c.logger, c.cfg.ResetKey, c.cfg.ResetDwell); err != nil {
		return err
	}
	c.transition(Position{State: StateAwaitingStage, Stage: 0})
	return nil
}

// awaitScreen performs one poll for screen. An empty screen is satisfied
// immediately.
func (c *Controller) awaitScreen(ctx context.Context, stageName, screen string, next Position) error {
	if screen == "" {
		c.transition(next)
		return nil
	}

	now := c.clock.Now()
	if c.waitStart.IsZero() {
		c.waitStart = now
	}

	frame, err := c.capture(ctx)
	if err != nil {
		return err
	}
	if frame != nil && c.classifier.IsPresent(frame, screen, 0) {
		c.logger.Debug("screen detected", logging.AttrStage, stageName, "screen", screen, "waited", now.Sub(c.waitStart).String())
		c.transition(next)
		return nil
	}

	if err := c.checkTimeout(ctx, stageName, screen, now); err != nil {
		return err
	}
	return c.clock.Sleep(ctx, c.cfg.PollInterval)
}

func (c *Controller) executeStage(ctx context.Context, i int) error {
	stage := c.cfg.Stages[i]
	log := c.logger.WithStage(stage.Name)
	log.Info("executing stage", "actions", len(stage.Actions))

	if d := stage.Jitter.Pick(c.rng); d > 0 {
		log.Debug("jitter before stage", "wait", d.String())
		if err := c.clock.Sleep(ctx, d); err != nil {
			return err
		}
	}

	for _, a := range stage.Actions {
		if err := c.press(ctx, log, a.Key, a.Dwell); err != nil {
			return err
		}
	}

	if i+1 < len(c.cfg.Stages) {
		c.transition(Position{State: StateAwaitingStage, Stage: i + 1})
	} else {
		c.transition(Position{State: StateAwaitingBattle})
	}
	return nil
}

func (c *Controller) scan(ctx context.Context) error {
	now := c.clock.Now()
	if c.waitStart.IsZero() {
		c.waitStart = now
	}

	frame, err := c.capture(ctx)
	if err != nil {
		return err
	}

	outcome := vision.NotDetected
	if frame != nil {
		var res vision.Result
		outcome, res = c.classifier.ScanForOutcome(frame, c.cfg.Candidates)

		c.mu.Lock()
		c.run.Outcome = outcome
		c.run.Last = res
		c.mu.Unlock()

		c.logger.Info("outcome scanned",
			logging.AttrOutcome, outcome.String(),
			"template", res.Template,
			logging.AttrConfidence, res.Confidence,
			"x", res.Location.X,
			"y", res.Location.Y,
		)
		c.emit(Event{Kind: EventOutcome, Outcome: outcome, Result: res, Frame: frame})

		switch outcome {
		case vision.RareMatch:
			c.terminate(ctx, res)
			return nil
		case vision.OrdinaryMatch:
			c.transition(Position{State: StateIdle})
			return nil
		}
	}

	// Without a StageTimeout this retries until a candidate matches.
	if err := c.checkTimeout(ctx, "outcome", c.cfg.Candidates[0].Template, now); err != nil {
		return err
	}
	return c.clock.Sleep(ctx, c.cfg.ScanRetryInterval)
}

func (c *Controller) terminate(ctx context.Context, res vision.Result) {
	c.mu.Lock()
	c.run.Ended = c.clock.Now()
	snap := c.run
	c.mu.Unlock()

	c.logger.Info("rare variant found, stopping",
		logging.AttrResetCount, snap.ResetCount,
		logging.AttrConfidence, res.Confidence,
		"elapsed", snap.Elapsed(snap.Ended).Round(time.Second).String(),
	)

	c.alert(ctx, notify.Message{
		Kind:  notify.KindRare,
		Title: "Rare variant found!",
		Text: fmt.Sprintf("%s matched with confidence %.3f at (%d, %d) after %d resets",
			res.Template, res.Confidence, res.Location.X, res.Location.Y, snap.ResetCount),
		Confidence: res.Confidence,
	})
	c.transition(Position{State: StateTerminated})
}

// checkTimeout returns a StuckError once the current wait has lasted
// StageTimeout.
func (c *Controller) checkTimeout(ctx context.Context, stageName, screen string, now time.Time) error {
	if c.cfg.StageTimeout <= 0 {
		return nil
	}
	waited := now.Sub(c.waitStart)
	if waited < c.cfg.StageTimeout {
		return nil
	}

	c.waitStart = time.Time{}
	err := errors.NewStuckError(stageName, screen, waited)
	c.logger.Error("gave up waiting for screen",
		logging.AttrStage, stageName,
		"screen", screen,
		"waited", waited.String(),
		logging.AttrResetCount, c.Snapshot().ResetCount,
	)
	c.emit(Event{Kind: EventStuck, StageName: stageName, Err: err})

	if c.cfg.AlertOnStuck {
		c.alert(ctx, notify.Message{
			Kind:  notify.KindStuck,
			Title: "Hunt stuck",
			Text: fmt.Sprintf("%s screen did not appear within %s (stage %s, %d resets)",
				screen, waited, stageName, c.Snapshot().ResetCount),
		})
	}
	return err
}

// capture returns the current frame, or nil when the source fails. A
// retryable failure is the same as "screen not present"; any other failure
// is returned and ends the run.
func (c *Controller) capture(ctx context.Context) (image.Image, error) {
	frame, err := c.source.Capture(ctx)
	if err == nil && frame != nil {
		if c.captureFailures > 0 {
			c.logger.Info("capture recovered", "failures", c.captureFailures)
		}
		c.captureFailures = 0
		return frame, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err == nil {
		err = errors.ErrCaptureUnavailable
	}

	c.captureFailures++
	c.emit(Event{Kind: EventCaptureFailed, Err: err})
	if !errors.IsRetryable(err) {
		c.logger.Error("capture source failed, stopping", "error", err.Error())
		return nil, errors.Wrap(err, "capture failed")
	}
	if c.captureFailures == 1 {
		severity := errors.GetSeverity(err)
		logAt(c.logger, severity, "capture failed, treating screen as absent", "error", err.Error(), "severity", severity.String())
	} else {
		c.logger.Debug("capture failed", "error", err.Error(), "consecutive", c.captureFailures)
	}
	return nil, nil
}

// logAt logs msg at the level matching severity.
func logAt(l *logging.Logger, severity errors.Severity, msg string, args ...any) {
	switch {
	case severity >= errors.SeverityError:
		l.Error(msg, args...)
	case severity == errors.SeverityWarning:
		l.Warn(msg, args...)
	case severity == errors.SeverityInfo:
		l.Info(msg, args...)
	default:
		l.Debug(msg, args...)
	}
}

// press sends key and sleeps dwell. Actuation failures are logged and not
// retried.
func (c *Controller) press(ctx context.Context, log *logging.Logger, key string, dwell time.Duration) error {
	if err := c.actuator.Press(ctx, key); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("key press failed", "key", key, "error", err.Error())
		c.emit(Event{Kind: EventActionFailed, Key: key, Err: err})
	} else {
		log.Debug("key pressed", "key", key, "dwell", dwell.String())
	}
	return c.clock.Sleep(ctx, dwell)
}

func (c *Controller) alert(ctx context.Context, msg notify.Message) {
	if c.notifier == nil {
		return
	}
	snap := c.Snapshot()
	msg.RunID = snap.ID
	msg.ResetCount = snap.ResetCount
	msg.Timestamp = c.clock.Now()

	if err := c.notifier.Alert(ctx, msg); err != nil {
		c.logger.Error("alert delivery failed", "kind", string(msg.Kind), "error", err.Error())
		c.emit(Event{Kind: EventAlertFailed, Err: err})
		return
	}
	c.logger.Info("alert sent", "kind", string(msg.Kind))
}

func (c *Controller) transition(next Position) {
	c.mu.Lock()
	prev := c.pos
	c.pos = next
	c.mu.Unlock()
	c.waitStart = time.Time{}

	c.logger.Debug("state changed", "from", prev.String(), "to", next.String())
	c.emit(Event{Kind: EventStateChanged})
}

func (c *Controller) emit(e Event) {
	if len(c.observers) == 0 {
		return
	}
	c.mu.RLock()
	e.Position = c.pos
	e.Run = c.run
	c.mu.RUnlock()
	e.Time = c.clock.Now()
	if e.StageName == "" && (e.Position.State == StateAwaitingStage || e.Position.State == StateExecutingStage) {
		e.StageName = c.cfg.Stages[e.Position.Stage].Name
	}
	for _, o := range c.observers {
		o.Observe(e)
	}
}
