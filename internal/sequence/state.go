package sequence

import "fmt"

// State is the controller's position in the hunt cycle.
type State int

const (
	// StateIdle is the reset point. Leaving it counts a reset.
	StateIdle State = iota

	// StateAwaitingStage polls for the current stage's screen.
	StateAwaitingStage

	// StateExecutingStage sends the current stage's actions.
	StateExecutingStage

	// StateAwaitingBattle polls for the battle screen.
	StateAwaitingBattle

	// StateScanningOutcome classifies the encounter.
	StateScanningOutcome

	// StateTerminated is final. It is only reached by a rare match.
	StateTerminated
)

// String returns a human-readable string for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingStage:
		return "awaiting_stage"
	case StateExecutingStage:
		return "executing_stage"
	case StateAwaitingBattle:
		return "awaiting_battle"
	case StateScanningOutcome:
		return "scanning_outcome"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// IsPolling reports whether the state waits for a screen or outcome.
func (s State) IsPolling() bool {
	return s == StateAwaitingStage || s == StateAwaitingBattle || s == StateScanningOutcome
}

// Position is the active state plus the stage it refers to. Stage is only
// meaningful for StateAwaitingStage and StateExecutingStage.
type Position struct {
	State State
	Stage int
}

// String renders positions as "awaiting_stage(1)" or "idle".
func (p Position) String() string {
	if p.State == StateAwaitingStage || p.State == StateExecutingStage {
		return fmt.Sprintf("%s(%d)", p.State, p.Stage)
	}
	return p.State.String()
}
