package tui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Iron-Ham/shinyhunt/internal/errors"
	"github.com/Iron-Ham/shinyhunt/internal/sequence"
	"github.com/Iron-Ham/shinyhunt/internal/vision"
	tea "github.com/charmbracelet/bubbletea"
)

var started = time.Date(2024, 5, 6, 7, 0, 0, 0, time.UTC)

func testRun(resets int) sequence.Run {
	return sequence.Run{ID: "0123456789abcdef", ResetCount: resets, Started: started}
}

func send(m Model, msgs ...tea.Msg) Model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestModel_View_Initial(t *testing.T) {
	m := NewModel(testRun(0), nil)
	view := m.View()

	for _, want := range []string{"shinyhunt", "run 01234567", "Resets", "none yet", "stop hunting"} {
		if !strings.Contains(view, want) {
			t.Errorf("initial view missing %q:\n%s", want, view)
		}
	}
}

func TestModel_Events(t *testing.T) {
	m := NewModel(testRun(0), nil)

	run := testRun(3)
	run.Outcome = vision.OrdinaryMatch
	run.Last = vision.Result{Template: "normal", Matched: true, Confidence: 0.934}

	m = send(m,
		eventMsg{Kind: sequence.EventReset, Run: testRun(3), Time: started.Add(time.Minute)},
		eventMsg{Kind: sequence.EventCaptureFailed, Run: testRun(3), Err: errors.ErrCaptureUnavailable},
		eventMsg{
			Kind:    sequence.EventOutcome,
			Run:     run,
			Time:    started.Add(2 * time.Minute),
			Outcome: vision.OrdinaryMatch,
			Result:  run.Last,
		},
		eventMsg{
			Kind:      sequence.EventStateChanged,
			Run:       run,
			Position:  sequence.Position{State: sequence.StateAwaitingStage, Stage: 1},
			StageName: "bag",
		},
	)

	view := m.View()
	for _, want := range []string{
		"3",
		"awaiting_stage(1) bag",
		"ordinary  normal 0.934",
		"capture 1",
		"07:01:00  reset #3",
		"07:02:00  ordinary (normal 0.934)",
		"2m0s",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestModel_ActivityIsBounded(t *testing.T) {
	m := NewModel(testRun(0), nil)
	for i := 1; i <= maxActivity+4; i++ {
		m = send(m, eventMsg{Kind: sequence.EventReset, Run: testRun(i)})
	}
	if len(m.activity) != maxActivity {
		t.Fatalf("len(activity) = %d, want %d", len(m.activity), maxActivity)
	}
	if m.activity[0] != "reset #5" {
		t.Errorf("oldest entry = %q, want reset #5", m.activity[0])
	}
}

func TestModel_Fit(t *testing.T) {
	m := NewModel(testRun(0), nil)
	long := strings.Repeat("x", 60)
	if got := m.fit(long, boxChrome); got != long {
		t.Errorf("fit before the first resize = %q, want input unchanged", got)
	}

	m = send(m, tea.WindowSizeMsg{Width: 30, Height: 20})
	if got := m.fit(long, boxChrome); got != strings.Repeat("x", 21)+"..." {
		t.Errorf("fit(long) = %q", got)
	}
	if got := m.fit("short", boxChrome); got != "short" {
		t.Errorf("fit(short) = %q", got)
	}
	if got := m.fit(long, 28); got != "..." {
		t.Errorf("fit with no room = %q, want ...", got)
	}
}

func TestModel_Stuck(t *testing.T) {
	m := NewModel(testRun(2), nil)
	m = send(m, eventMsg{
		Kind:     sequence.EventStuck,
		Run:      testRun(2),
		Position: sequence.Position{State: sequence.StateAwaitingBattle},
		Err:      errors.NewStuckError("battle", "battle", time.Minute),
	})
	view := m.View()
	if !strings.Contains(view, "stuck 1") || !strings.Contains(view, "stuck in awaiting_battle") {
		t.Errorf("stuck not shown:\n%s", view)
	}
}

func TestModel_Rare(t *testing.T) {
	run := testRun(7)
	run.Outcome = vision.RareMatch
	run.Last = vision.Result{Template: "shiny", Matched: true, Confidence: 0.97}
	run.Ended = started.Add(time.Hour)

	m := send(NewModel(testRun(0), nil),
		eventMsg{Kind: sequence.EventStateChanged, Run: run, Position: sequence.Position{State: sequence.StateTerminated}},
	)
	view := m.View()
	for _, want := range []string{"done", "rare  shiny 0.970", "1h0m0s"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestModel_Quit(t *testing.T) {
	for _, k := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyCtrlC},
	} {
		t.Run(k.String(), func(t *testing.T) {
			canceled := false
			m := NewModel(testRun(0), func() { canceled = true })

			next, cmd := m.Update(k)
			if !canceled {
				t.Error("quit did not cancel the run")
			}
			if cmd == nil {
				t.Fatal("quit returned no command")
			}
			if _, ok := cmd().(tea.QuitMsg); !ok {
				t.Error("quit command is not tea.Quit")
			}
			if !strings.Contains(next.View(), "Stopping") {
				t.Errorf("view after quit = %q", next.View())
			}
		})
	}

	t.Run("other keys are ignored", func(t *testing.T) {
		m := NewModel(testRun(0), func() { t.Error("cancel called") })
		if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")}); cmd != nil {
			t.Error("unexpected command")
		}
	})
}

func TestModel_Done(t *testing.T) {
	m := NewModel(testRun(0), nil)
	next, cmd := m.Update(doneMsg{err: errors.ErrNoFrames})
	if cmd == nil {
		t.Fatal("done returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("done command is not tea.Quit")
	}
	view := next.View()
	if !strings.Contains(view, "Hunt stopped") || strings.Contains(view, "stop hunting") {
		t.Errorf("final view = %q", view)
	}
}

func TestApp_RunAndDone(t *testing.T) {
	var out bytes.Buffer
	app := New(testRun(0), func() {}, WithInput(strings.NewReader("")), WithOutput(&out))

	errCh := make(chan error, 1)
	go func() { errCh <- app.Run() }()

	app.Observe(sequence.Event{Kind: sequence.EventReset, Run: testRun(1)})
	app.Done(nil)

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("program did not exit after Done")
	}

	// Observing after Done must not panic.
	app.Observe(sequence.Event{Kind: sequence.EventReset})
}
