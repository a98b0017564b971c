// Package metrics records registry dispatch in a private Prometheus registry.
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Metrics holds the Prometheus collectors for operation calls.
type Metrics struct {
	callsTotal     *prometheus.CounterVec
	callErrors     *prometheus.CounterVec
	callDuration   *prometheus.HistogramVec
	settingsReload *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		callsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gocalc_calls_total",
				Help: "Total number of operation calls by operation and status",
			},
			[]string{"operation", "status"},
		),

		callErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gocalc_call_errors_total",
				Help: "Total number of failed operation calls by failure kind",
			},
			[]string{"operation", "kind"},
		),

		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gocalc_call_duration_seconds",
				Help:    "Operation call latency in seconds",
				Buckets: []float64{.00001, .0001, .001, .01, .1, 1},
			},
			[]string{"operation"},
		),

		settingsReload: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gocalc_settings_reloads_total",
				Help: "Total number of settings reloads by status",
			},
			[]string{"status"},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.callsTotal,
		m.callErrors,
		m.callDuration,
		m.settingsReload,
	)

	return m
}

// ObserveCall records one dispatched call. An empty kind means success.
func (m *Metrics) ObserveCall(operation, kind string, duration time.Duration) {
	status := "ok"
	if kind != "" {
		status = "error"
		m.callErrors.WithLabelValues(operation, kind).Inc()
	}
	m.callsTotal.WithLabelValues(operation, status).Inc()
	m.callDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordSettingsReload records a settings reload attempt.
func (m *Metrics) RecordSettingsReload(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.settingsReload.WithLabelValues(status).Inc()
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteText writes every gathered metric family in the text exposition format.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
