package bookrec

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// sdkMetrics are the collectors behind WithPrometheus.
type sdkMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	outcomes   *prometheus.CounterVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	opts := func(name, help string) prometheus.Opts {
		return prometheus.Opts{Namespace: "bookrec", Subsystem: "sdk", Name: name, Help: help}
	}

	m := &sdkMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts(
			opts("operations_total", "SDK calls by operation and status."),
		), []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bookrec",
			Subsystem: "sdk",
			Name:      "operation_duration_seconds",
			Help:      "SDK call latency.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"operation"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts(
			opts("recommend_outcomes_total", "Recommend calls by outcome: ok, empty, degraded or rejected."),
		), []string{"outcome"}),
	}

	var err error
	if m.operations, err = shared(reg, m.operations); err != nil {
		return nil, err
	}
	if m.duration, err = shared(reg, m.duration); err != nil {
		return nil, err
	}
	if m.outcomes, err = shared(reg, m.outcomes); err != nil {
		return nil, err
	}
	return m, nil
}

// shared registers c, or returns the collector already registered under the
// same name so that several clients can use one registry.
func shared[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}

	var dup prometheus.AlreadyRegisteredError
	if !errors.As(err, &dup) {
		return c, fmt.Errorf("bookrec: register metric: %w", err)
	}
	existing, ok := dup.ExistingCollector.(T)
	if !ok {
		return c, fmt.Errorf("bookrec: metric registered as %T", dup.ExistingCollector)
	}
	return existing, nil
}

// observer logs and counts SDK calls. The nil observer does nothing.
type observer struct {
	log     *slog.Logger
	metrics *sdkMetrics
}

func newObserver(log *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{log: log}
	if reg == nil {
		return o, nil
	}
	m, err := newSDKMetrics(reg)
	if err != nil {
		return nil, err
	}
	o.metrics = m
	return o, nil
}

// begin starts timing op; call the returned func with the call's error.
func (o *observer) begin(op string) func(err error) {
	if o == nil {
		return func(error) {}
	}
	start := time.Now()
	return func(err error) {
		elapsed := time.Since(start)
		if o.metrics != nil {
			o.metrics.operations.WithLabelValues(op, statusLabel(err)).Inc()
			o.metrics.duration.WithLabelValues(op).Observe(elapsed.Seconds())
		}
		switch {
		case o.log == nil:
		case err != nil:
			o.log.Warn("bookrec call failed", "op", op, "elapsed", elapsed, "error", err)
		default:
			o.log.Debug("bookrec call done", "op", op, "elapsed", elapsed)
		}
	}
}

// outcome counts how a Recommend call ended.
func (o *observer) outcome(outcome string, books int) {
	if o == nil {
		return
	}
	if o.metrics != nil {
		o.metrics.outcomes.WithLabelValues(outcome).Inc()
	}
	if o.log != nil && outcome == "degraded" {
		o.log.Warn("bookrec recommend degraded", "books", books)
	}
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
