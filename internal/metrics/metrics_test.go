package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Iron-Ham/shinyhunt/internal/errors"
	"github.com/Iron-Ham/shinyhunt/internal/sequence"
	"github.com/Iron-Ham/shinyhunt/internal/vision"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("scrape status = %d", rec.Code)
	}
	return rec.Body.String()
}

func assertLine(t *testing.T, body, line string) {
	t.Helper()
	for _, l := range strings.Split(body, "\n") {
		if l == line {
			return
		}
	}
	t.Errorf("metrics output missing %q", line)
}

func TestCollector_Observe(t *testing.T) {
	c := New()

	events := []sequence.Event{
		{Kind: sequence.EventReset},
		{Kind: sequence.EventReset},
		{Kind: sequence.EventStateChanged, Position: sequence.Position{State: sequence.StateAwaitingBattle}},
		{Kind: sequence.EventCaptureFailed, Err: errors.ErrCaptureUnavailable},
		{Kind: sequence.EventActionFailed, Key: "x"},
		{Kind: sequence.EventAlertFailed},
		{Kind: sequence.EventStuck, Position: sequence.Position{State: sequence.StateAwaitingBattle}},
		{
			Kind:    sequence.EventOutcome,
			Outcome: vision.OrdinaryMatch,
			Result:  vision.Result{Template: "normal", Matched: true, Confidence: 0.75},
		},
		{
			Kind:    sequence.EventOutcome,
			Outcome: vision.NotDetected,
			Result:  vision.Result{Template: "shiny", Confidence: 0.25},
		},
	}
	for _, e := range events {
		c.Observe(e)
	}

	body := scrape(t, c.Handler())
	for _, line := range []string{
		"shinyhunt_resets_total 2",
		"shinyhunt_state 3",
		"shinyhunt_capture_failures_total 1",
		"shinyhunt_action_failures_total 1",
		"shinyhunt_alert_failures_total 1",
		`shinyhunt_stuck_total{state="awaiting_battle"} 1`,
		`shinyhunt_outcomes_total{outcome="ordinary"} 1`,
		`shinyhunt_outcomes_total{outcome="not_detected"} 1`,
		`shinyhunt_outcomes_total{outcome="rare"} 0`,
		`shinyhunt_last_confidence{template="normal"} 0.75`,
		`shinyhunt_last_confidence{template="shiny"} 0.25`,
	} {
		assertLine(t, body, line)
	}
}

func TestCollector_SeparateRegistries(t *testing.T) {
	a, b := New(), New()
	a.Observe(sequence.Event{Kind: sequence.EventReset})

	assertLine(t, scrape(t, a.Handler()), "shinyhunt_resets_total 1")
	assertLine(t, scrape(t, b.Handler()), "shinyhunt_resets_total 0")
}

func TestCollector_Serve(t *testing.T) {
	c := New()
	c.Observe(sequence.Event{Kind: sequence.EventReset})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.serve(ctx, ln, nil) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	data, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assertLine(t, string(data), "shinyhunt_resets_total 1")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve returned %v after cancel", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
}

func TestCollector_ServeBadAddress(t *testing.T) {
	if err := New().Serve(context.Background(), "not-an-address", nil); err == nil {
		t.Error("expected listen error")
	}
}
