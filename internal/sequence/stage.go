package sequence

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// Action is one key press followed by a dwell.
type Action struct {
	Key   string
	Dwell time.Duration
}

// Press returns an action for key with the given dwell.
func Press(key string, dwell time.Duration) Action {
	return Action{Key: key, Dwell: dwell}
}

// JitterWindow bounds a randomized wait. The zero value means no wait.
type JitterWindow struct {
	Min time.Duration
	Max time.Duration
}

// IsZero reports whether the window never waits.
func (j JitterWindow) IsZero() bool {
	return j.Max <= 0
}

// Pick returns a duration in [Min, Max]. A Max below Min is treated as Min.
func (j JitterWindow) Pick(r *rand.Rand) time.Duration {
	if j.IsZero() {
		return 0
	}
	lo := max(j.Min, 0)
	if j.Max <= lo {
		return lo
	}
	return lo + time.Duration(r.Int64N(int64(j.Max-lo)+1))
}

// Stage is one entry of the scripted sequence: wait for Screen, then send
// Actions in order. An empty Screen runs the actions without waiting.
type Stage struct {
	Name    string
	Screen  string
	Actions []Action
	// Jitter is slept after the screen appears and before the first action.
	Jitter JitterWindow
}

// Validate checks that the stage can be executed.
func (s Stage) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("stage has no name")
	}
	if len(s.Actions) == 0 {
		return fmt.Errorf("stage %q has no actions", s.Name)
	}
	for i, a := range s.Actions {
		if a.Key == "" {
			return fmt.Errorf("stage %q action %d has no key", s.Name, i)
		}
		if a.Dwell < 0 {
			return fmt.Errorf("stage %q action %d has a negative dwell", s.Name, i)
		}
	}
	if s.Jitter.Min < 0 || s.Jitter.Max < 0 {
		return fmt.Errorf("stage %q has a negative jitter bound", s.Name)
	}
	return nil
}

// DefaultStages reproduces the starter-selection sequence: skip the intro
// text, pick the starter out of the bag and send it in. None of the stages
// wait for a screen; only the battle screen gates the outcome scan.
func DefaultStages() []Stage {
	return []Stage{
		{
			Name: "intro",
			Actions: []Action{
				Press("x", 2*time.Second),
				Press("x", 2*time.Second),
				Press("x", 2*time.Second),
				Press("x", 3*time.Second),
			},
		},
		{
			Name: "bag",
			Actions: []Action{
				Press("x", time.Second),
				Press("Left", time.Second),
				Press("x", time.Second),
				Press("x", 8*time.Second),
			},
		},
		{
			Name:    "send-in",
			Actions: []Action{Press("x", 0)},
		},
	}
}
