package sequence

import (
	"image"
	"time"

	"github.com/Iron-Ham/shinyhunt/internal/vision"
)

// EventKind identifies what an Event reports.
type EventKind int

const (
	// EventStateChanged is emitted on every transition.
	EventStateChanged EventKind = iota
	// EventReset is emitted when a reset is counted.
	EventReset
	// EventCaptureFailed is emitted when the source returns no frame.
	EventCaptureFailed
	// EventActionFailed is emitted when a key press fails.
	EventActionFailed
	// EventOutcome is emitted after every outcome scan.
	EventOutcome
	// EventAlertFailed is emitted when an alert could not be delivered.
	EventAlertFailed
	// EventStuck is emitted when a screen wait times out.
	EventStuck
)

// String returns a human-readable name for the event kind.
func (k EventKind) String() string {
	switch k {
	case EventStateChanged:
		return "state_changed"
	case EventReset:
		return "reset"
	case EventCaptureFailed:
		return "capture_failed"
	case EventActionFailed:
		return "action_failed"
	case EventOutcome:
		return "outcome"
	case EventAlertFailed:
		return "alert_failed"
	case EventStuck:
		return "stuck"
	default:
		return "unknown"
	}
}

// Event is a progress report from the controller. Fields beyond Kind, Time,
// Position and Run are set only for the kinds that use them.
type Event struct {
	Kind      EventKind
	Time      time.Time
	Position  Position
	StageName string
	Run       Run

	Key     string
	Outcome vision.Outcome
	Result  vision.Result
	// Frame is the scanned frame on EventOutcome.
	Frame image.Image
	Err   error
}

// Observer receives controller events. Observe is called synchronously
// from the controller goroutine and must not block.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe implements Observer.
func (f ObserverFunc) Observe(e Event) { f(e) }
