// Package metrics exports hunt progress as Prometheus metrics.
//
// A Collector is a sequence.Observer: pass it to sequence.WithObserver and
// serve Handler() (or call Serve) to expose the counters on /metrics.
package metrics

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/Iron-Ham/shinyhunt/internal/errors"
	"github.com/Iron-Ham/shinyhunt/internal/logging"
	"github.com/Iron-Ham/shinyhunt/internal/sequence"
	"github.com/Iron-Ham/shinyhunt/internal/vision"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shinyhunt"

// shutdownTimeout bounds how long Serve waits for in-flight scrapes.
const shutdownTimeout = 5 * time.Second

// Collector turns controller events into metrics. It owns its registry so
// tests and multiple runs in one process do not collide.
type Collector struct {
	registry *prometheus.Registry

	resets          prometheus.Counter
	outcomes        *prometheus.CounterVec
	captureFailures prometheus.Counter
	actionFailures  prometheus.Counter
	alertFailures   prometheus.Counter
	stuck           *prometheus.CounterVec
	state           prometheus.Gauge
	lastConfidence  *prometheus.GaugeVec
}

// New creates a Collector with the Go runtime and process collectors
// registered alongside the hunt metrics.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resets_total",
			Help:      "Soft resets performed.",
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_total",
			Help:      "Outcome scans by result.",
		}, []string{"outcome"}),
		captureFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_failures_total",
			Help:      "Captures that returned no frame.",
		}),
		actionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "action_failures_total",
			Help:      "Key presses that failed.",
		}),
		alertFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_failures_total",
			Help:      "Alerts that could not be delivered.",
		}),
		stuck: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stuck_total",
			Help:      "Screen waits that exceeded the stage timeout, by state.",
		}, []string{"state"}),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "Current controller state (0 idle, 1 awaiting_stage, 2 executing_stage, 3 awaiting_battle, 4 scanning_outcome, 5 terminated).",
		}),
		lastConfidence: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_confidence",
			Help:      "Confidence of the most recent outcome scan, by template.",
		}, []string{"template"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.resets,
		c.outcomes,
		c.captureFailures,
		c.actionFailures,
		c.alertFailures,
		c.stuck,
		c.state,
		c.lastConfidence,
	)

	// Pre-create the outcome series so rates work from the first scrape.
	for _, o := range []vision.Outcome{vision.NotDetected, vision.OrdinaryMatch, vision.RareMatch} {
		c.outcomes.WithLabelValues(o.String())
	}
	return c
}

// Registry returns the registry the metrics live in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Observe implements sequence.Observer.
func (c *Collector) Observe(e sequence.Event) {
	switch e.Kind {
	case sequence.EventStateChanged:
		c.state.Set(float64(e.Position.State))
	case sequence.EventReset:
		c.resets.Inc()
	case sequence.EventCaptureFailed:
		c.captureFailures.Inc()
	case sequence.EventActionFailed:
		c.actionFailures.Inc()
	case sequence.EventAlertFailed:
		c.alertFailures.Inc()
	case sequence.EventStuck:
		c.stuck.WithLabelValues(e.Position.State.String()).Inc()
	case sequence.EventOutcome:
		c.outcomes.WithLabelValues(e.Outcome.String()).Inc()
		if e.Result.Template != "" {
			c.lastConfidence.WithLabelValues(e.Result.Template).Set(e.Result.Confidence)
		}
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Serve exposes /metrics on addr until ctx is done. A listen failure is
// returned immediately.
func (c *Collector) Serve(ctx context.Context, addr string, logger *logging.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return c.serve(ctx, ln, logger)
}

func (c *Collector) serve(ctx context.Context, ln net.Listener, logger *logging.Logger) error {
	if logger == nil {
		logger = logging.NopLogger()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	logger.Info("metrics listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown failed", "error", err.Error())
		}
		return nil
	}
}
