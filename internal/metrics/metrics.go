// Package metrics exposes the Prometheus counters that make non-fatal
// presence failures observable.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wirechat_presence"

// Drop reasons for fanout events that never reach a socket.
const (
	DropMalformed   = "malformed"
	DropUnknownKind = "unknown_kind"
	DropSlowClient  = "slow_client"
)

// Metrics holds the process's collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	storeErrors    *prometheus.CounterVec
	busErrors      *prometheus.CounterVec
	fanoutDropped  *prometheus.CounterVec
	fanoutReceived prometheus.Counter
	authRejections prometheus.Counter
	sessionsActive prometheus.Gauge
}

// New creates collectors registered on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "errors_total",
			Help:      "Presence store operations that failed, by operation",
		}, []string{"op"}),
		busErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "errors_total",
			Help:      "Fanout bus operations that failed, by operation",
		}, []string{"op"}),
		fanoutDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fanout",
			Name:      "dropped_total",
			Help:      "Fanout events discarded before reaching a socket, by reason",
		}, []string{"reason"}),
		fanoutReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fanout",
			Name:      "received_total",
			Help:      "Fanout messages received from the bus",
		}),
		authRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "rejections_total",
			Help:      "Socket connections refused as not authenticated",
		}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "sessions_active",
			Help:      "Sessions currently attached to this process",
		}),
	}

	m.registry.MustRegister(
		m.storeErrors,
		m.busErrors,
		m.fanoutDropped,
		m.fanoutReceived,
		m.authRejections,
		m.sessionsActive,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) StoreError(op string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) BusError(op string) {
	if m == nil {
		return
	}
	m.busErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) FanoutDropped(reason string) {
	if m == nil {
		return
	}
	m.fanoutDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) FanoutReceived() {
	if m == nil {
		return
	}
	m.fanoutReceived.Inc()
}

func (m *Metrics) AuthRejected() {
	if m == nil {
		return
	}
	m.authRejections.Inc()
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessionsActive.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}
