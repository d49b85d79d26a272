package sequence

import (
	"math/rand/v2"
	"testing"
	"time"
)

func TestJitterWindow_Pick(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))

	t.Run("stays within bounds", func(t *testing.T) {
		j := JitterWindow{Min: 500 * time.Millisecond, Max: 6 * time.Second}
		for i := 0; i < 1000; i++ {
			d := j.Pick(r)
			if d < j.Min || d > j.Max {
				t.Fatalf("Pick() = %s, outside [%s, %s]", d, j.Min, j.Max)
			}
		}
	})

	tests := []struct {
		name string
		j    JitterWindow
		want time.Duration
	}{
		{name: "zero window", j: JitterWindow{}, want: 0},
		{name: "fixed window", j: JitterWindow{Min: time.Second, Max: time.Second}, want: time.Second},
		{name: "max below min", j: JitterWindow{Min: 2 * time.Second, Max: time.Second}, want: 2 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.j.Pick(r); got != tt.want {
				t.Errorf("Pick() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestStage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		stage   Stage
		wantErr bool
	}{
		{name: "valid", stage: Stage{Name: "intro", Screen: "intro", Actions: []Action{Press("x", time.Second)}}},
		{name: "valid without screen", stage: Stage{Name: "intro", Actions: []Action{Press("x", 0)}}},
		{name: "no name", stage: Stage{Actions: []Action{Press("x", 0)}}, wantErr: true},
		{name: "no actions", stage: Stage{Name: "intro"}, wantErr: true},
		{name: "empty key", stage: Stage{Name: "intro", Actions: []Action{{Dwell: time.Second}}}, wantErr: true},
		{name: "negative dwell", stage: Stage{Name: "intro", Actions: []Action{Press("x", -time.Second)}}, wantErr: true},
		{name: "negative jitter", stage: Stage{Name: "intro", Actions: []Action{Press("x", 0)}, Jitter: JitterWindow{Min: -1}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.stage.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
	var total time.Duration
	presses := 0
	for _, s := range cfg.Stages {
		for _, a := range s.Actions {
			total += a.Dwell
			presses++
		}
	}
	if presses != 9 {
		t.Errorf("default presses = %d, want 9", presses)
	}
	if total != 20*time.Second {
		t.Errorf("default dwell total = %s, want 20s", total)
	}
}

func TestPosition_String(t *testing.T) {
	tests := []struct {
		pos  Position
		want string
	}{
		{Position{State: StateIdle}, "idle"},
		{Position{State: StateAwaitingStage, Stage: 2}, "awaiting_stage(2)"},
		{Position{State: StateExecutingStage, Stage: 0}, "executing_stage(0)"},
		{Position{State: StateAwaitingBattle}, "awaiting_battle"},
		{Position{State: StateScanningOutcome}, "scanning_outcome"},
		{Position{State: StateTerminated}, "terminated"},
		{Position{State: State(99)}, "unknown"},
	}
	for _, tt := range tests {
		if got := tt.pos.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}

	if !StateAwaitingBattle.IsPolling() || StateExecutingStage.IsPolling() {
		t.Error("IsPolling misclassifies states")
	}
}

func TestRun_ShortIDAndElapsed(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewRun(start)
	if len(r.ShortID()) != 8 {
		t.Errorf("ShortID() = %q", r.ShortID())
	}
	if got := r.Elapsed(start.Add(time.Minute)); got != time.Minute {
		t.Errorf("Elapsed() = %s, want 1m", got)
	}
	r.Ended = start.Add(30 * time.Second)
	if got := r.Elapsed(start.Add(time.Hour)); got != 30*time.Second {
		t.Errorf("Elapsed() after end = %s, want 30s", got)
	}
}
