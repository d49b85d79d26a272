package sequence

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/Iron-Ham/shinyhunt/internal/errors"
	"github.com/Iron-Ham/shinyhunt/internal/notify"
	"github.com/Iron-Ham/shinyhunt/internal/vision"
)

// labelFrame is a frame whose content is just the name of the screen it shows.
type labelFrame struct {
	*image.RGBA
	label string
}

func frameOf(label string) image.Image {
	return labelFrame{RGBA: image.NewRGBA(image.Rect(0, 0, 1, 1)), label: label}
}

// scriptedSource returns one scripted frame per capture. An empty label is a
// capture failure, and so is every capture after the script runs out: the
// done error when set, a missing window otherwise.
type scriptedSource struct {
	frames []string
	done   error
	calls  int
	focus  int
}

func (s *scriptedSource) Capture(context.Context) (image.Image, error) {
	i := s.calls
	s.calls++
	if i >= len(s.frames) {
		if s.done != nil {
			return nil, s.done
		}
		return nil, errors.NewCaptureError("window lookup failed", errors.ErrWindowNotFound)
	}
	if s.frames[i] == "" {
		return nil, errors.NewCaptureError("window lookup failed", errors.ErrWindowNotFound)
	}
	return frameOf(s.frames[i]), nil
}

// focusingSource also implements Focuser.
type focusingSource struct {
	scriptedSource
}

func (s *focusingSource) Focus(context.Context) error {
	s.focus++
	return nil
}

// labelClassifier matches a template when the frame's label equals its name.
type labelClassifier struct {
	confidence float64
}

func (c labelClassifier) IsPresent(frame image.Image, name string, _ float64) bool {
	f, ok := frame.(labelFrame)
	return ok && f.label == name
}

func (c labelClassifier) ScanForOutcome(frame image.Image, candidates []vision.Candidate) (vision.Outcome, vision.Result) {
	f, ok := frame.(labelFrame)
	if !ok {
		return vision.NotDetected, vision.Result{}
	}
	for _, cand := range candidates {
		if f.label == cand.Template {
			return cand.Outcome, vision.Result{Template: cand.Template, Matched: true, Confidence: c.confidence, Location: image.Pt(3, 4)}
		}
	}
	return vision.NotDetected, vision.Result{Template: candidates[0].Template, Confidence: 0.2}
}

type recordingActuator struct {
	keys  []string
	failN map[string]bool
}

func (a *recordingActuator) Press(_ context.Context, key string) error {
	a.keys = append(a.keys, key)
	if a.failN[key] {
		return errors.New("xdotool: exit status 1")
	}
	return nil
}

type recordingNotifier struct {
	messages []notify.Message
	err      error
}

func (n *recordingNotifier) Alert(_ context.Context, msg notify.Message) error {
	n.messages = append(n.messages, msg)
	return n.err
}

// fakeClock advances only when slept on.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.slept = append(c.slept, d)
	return nil
}

func (c *fakeClock) count(d time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, s := range c.slept {
		if s == d {
			n++
		}
	}
	return n
}

type eventRecorder struct {
	events []Event
}

func (r *eventRecorder) Observe(e Event) {
	r.events = append(r.events, e)
}

func (r *eventRecorder) kinds(kind EventKind) []Event {
	var out []Event
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// trace lists the positions the controller moved through.
func (r *eventRecorder) trace() []string {
	var out []string
	for _, e := range r.kinds(EventStateChanged) {
		out = append(out, e.Position.String())
	}
	return out
}
