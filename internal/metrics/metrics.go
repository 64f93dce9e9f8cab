// Package metrics exposes Prometheus counters for event dispatch and playback.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus counters for binjuice. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry               *prometheus.Registry
	eventsTotal            *prometheus.CounterVec
	playbacksTotal         *prometheus.CounterVec
	decodeErrorsTotal      *prometheus.CounterVec
	throttledTotal         *prometheus.CounterVec
	documentsAttachedTotal prometheus.Counter
	duplicateRegistrations prometheus.Counter
}

// New constructs a metrics registry and registers all collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	eventsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "binjuice",
			Name:      "events_total",
			Help:      "Event occurrences delivered by the host.",
		},
		[]string{"event"},
	)
	playbacksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "binjuice",
			Name:      "playbacks_total",
			Help:      "Sounds submitted to the output device.",
		},
		[]string{"event"},
	)
	decodeErrorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "binjuice",
			Name:      "decode_errors_total",
			Help:      "Sounds that could not be decoded at playback time.",
		},
		[]string{"event"},
	)
	throttledTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "binjuice",
			Name:      "throttled_total",
			Help:      "Sounds skipped because the same event fired within min_interval.",
		},
		[]string{"event"},
	)
	documentsAttachedTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "binjuice",
			Name:      "documents_attached_total",
			Help:      "Documents the dispatcher subscribed to.",
		},
	)
	duplicateRegistrations := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "binjuice",
			Name:      "duplicate_registrations_total",
			Help:      "Analysis-complete announcements for already attached documents.",
		},
	)

	registry.MustRegister(
		eventsTotal,
		playbacksTotal,
		decodeErrorsTotal,
		throttledTotal,
		documentsAttachedTotal,
		duplicateRegistrations,
	)

	return &Metrics{
		registry:               registry,
		eventsTotal:            eventsTotal,
		playbacksTotal:         playbacksTotal,
		decodeErrorsTotal:      decodeErrorsTotal,
		throttledTotal:         throttledTotal,
		documentsAttachedTotal: documentsAttachedTotal,
		duplicateRegistrations: duplicateRegistrations,
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler that serves the metrics registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncEvent(name string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(name).Inc()
}

func (m *Metrics) IncPlayback(name string) {
	if m == nil {
		return
	}
	m.playbacksTotal.WithLabelValues(name).Inc()
}

func (m *Metrics) IncDecodeError(name string) {
	if m == nil {
		return
	}
	m.decodeErrorsTotal.WithLabelValues(name).Inc()
}

func (m *Metrics) IncThrottled(name string) {
	if m == nil {
		return
	}
	m.throttledTotal.WithLabelValues(name).Inc()
}

func (m *Metrics) IncDocumentAttached() {
	if m == nil {
		return
	}
	m.documentsAttachedTotal.Inc()
}

func (m *Metrics) IncDuplicateRegistration() {
	if m == nil {
		return
	}
	m.duplicateRegistrations.Inc()
}
