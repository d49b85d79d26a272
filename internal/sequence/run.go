package sequence

import (
	"time"

	"github.com/Iron-Ham/shinyhunt/internal/vision"
	"github.com/google/uuid"
)

// Run is the state of one hunt that outlives a single cycle. The Controller
// owns it; everyone else reads copies from Controller.Snapshot.
type Run struct {
	ID         string
	ResetCount int
	Started    time.Time
	// Ended is set when the run terminates.
	Ended time.Time
	// Outcome is the most recent scan result.
	Outcome vision.Outcome
	// Last is the most recent classification logged by an outcome scan.
	Last vision.Result
}

// NewRun starts a run with a fresh ID and a zero reset count.
func NewRun(now time.Time) *Run {
	return &Run{
		ID:      uuid.NewString(),
		Started: now,
	}
}

// ShortID returns the first eight characters of the run ID.
func (r Run) ShortID() string {
	if len(r.ID) > 8 {
		return r.ID[:8]
	}
	return r.ID
}

// Elapsed returns how long the run has been going, or its total duration
// once ended.
func (r Run) Elapsed(now time.Time) time.Duration {
	if !r.Ended.IsZero() {
		return r.Ended.Sub(r.Started)
	}
	return now.Sub(r.Started)
}
