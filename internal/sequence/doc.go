// Package sequence drives the soft-reset hunt loop.
//
// A Controller is a finite-state machine over State. Each call to Step
// performs the work of the current state (one poll, one stage's inputs, one
// reset or one outcome scan) and moves to the next state. Run calls Step
// until the rare variant is found, the context is canceled, or a stage
// waits longer than its configured timeout.
//
// The cycle is:
//
//	Idle ─reset─▶ AwaitingStage(0) ─screen─▶ ExecutingStage(0) ─▶ … ─▶
//	AwaitingBattle ─screen─▶ ScanningOutcome ─ordinary─▶ Idle
//	                                        └─rare─▶ Terminated
//
// The controller never touches a window, a keyboard or the network directly.
// It talks to a Source, a Classifier, an Actuator and a Notifier, and reports
// progress as Events to any number of Observers. All waits go through a Clock
// so tests can run the loop without sleeping.
package sequence
