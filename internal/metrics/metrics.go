// Package metrics exposes Prometheus collectors for the decision engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eliteGoblin/focusd/focus_guard/internal/domain"
)

const namespace = "focusguard"

// Metrics contains the engine collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	decisions      *prometheus.CounterVec
	overlayShows   *prometheus.CounterVec
	extractions    *prometheus.CounterVec
	refreshErrors  prometheus.Counter
	debounced      prometheus.Counter
	sessionActive  prometheus.Gauge
	blockedEntries *prometheus.GaugeVec
}

// New creates and registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decisions_total",
				Help:      "Foreground events evaluated, by action and reason",
			},
			[]string{"action", "reason"},
		),

		overlayShows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "overlay_shows_total",
				Help:      "Overlay show attempts, by outcome",
			},
			[]string{"outcome"},
		),

		extractions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "url_extractions_total",
				Help:      "Browser URL extraction attempts, by result",
			},
			[]string{"result"},
		),

		refreshErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_degraded_values_total",
				Help:      "Preference values that were unreadable or malformed and replaced by defaults",
			},
		),

		debounced: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "debounced_blocks_total",
				Help:      "Block decisions suppressed by the debounce lock",
			},
		),

		sessionActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "session_active",
				Help:      "1 while a blocking session is active",
			},
		),

		blockedEntries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "blocked_entries",
				Help:      "Number of entries in each blocked list",
			},
			[]string{"list"},
		),
	}

	m.registry.MustRegister(
		m.decisions,
		m.overlayShows,
		m.extractions,
		m.refreshErrors,
		m.debounced,
		m.sessionActive,
		m.blockedEntries,
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordDecision counts one evaluated event.
func (m *Metrics) RecordDecision(d domain.BlockDecision) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(string(d.Action), string(d.Reason)).Inc()
}

// RecordOverlay counts one show attempt.
func (m *Metrics) RecordOverlay(outcome string) {
	if m == nil {
		return
	}
	m.overlayShows.WithLabelValues(outcome).Inc()
}

// RecordExtraction counts one URL extraction ("found", "none", "unavailable").
func (m *Metrics) RecordExtraction(result string) {
	if m == nil {
		return
	}
	m.extractions.WithLabelValues(result).Inc()
}

// RecordSnapshot updates the policy gauges and degraded value counter.
func (m *Metrics) RecordSnapshot(s domain.PolicySnapshot, degraded int) {
	if m == nil {
		return
	}
	if s.SessionActive {
		m.sessionActive.Set(1)
	} else {
		m.sessionActive.Set(0)
	}
	m.blockedEntries.WithLabelValues("apps").Set(float64(len(s.BlockedApps)))
	m.blockedEntries.WithLabelValues("browsers").Set(float64(len(s.BlockedBrowsers)))
	m.blockedEntries.WithLabelValues("websites").Set(float64(len(s.BlockedWebsites)))
	m.refreshErrors.Add(float64(degraded))
}

// RecordDebounced counts a block suppressed by the debounce lock.
func (m *Metrics) RecordDebounced() {
	if m == nil {
		return
	}
	m.debounced.Inc()
}
