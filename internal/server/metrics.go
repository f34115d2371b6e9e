package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "chat"

// Message kinds used as the "kind" label of chat_messages_total.
const (
	kindBroadcast       = "broadcast"
	kindWhisper         = "whisper"
	kindWhisperRejected = "whisper_rejected"
)

// Metrics holds the Prometheus collectors for the chat server.
// A nil *Metrics records nothing.
type Metrics struct {
	activeSessions    prometheus.Gauge
	sessionsTotal     *prometheus.CounterVec
	handshakeFailures prometheus.Counter
	messagesTotal     *prometheus.CounterVec
	deliveryFailures  prometheus.Counter
}

// NewMetrics creates the chat collectors and registers them with registry.
// A nil registry creates unregistered collectors.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active_sessions",
			Help:      "Number of sessions that completed the nickname handshake and are still open",
		}),

		sessionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sessions_total",
			Help:      "Total number of finished sessions by outcome",
		}, []string{"outcome"}),

		handshakeFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "handshake_failures_total",
			Help:      "Total number of connections that closed before choosing a nickname",
		}),

		messagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_total",
			Help:      "Total number of routed client messages by kind",
		}, []string{"kind"}),

		deliveryFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "delivery_failures_total",
			Help:      "Total number of line writes to clients that failed",
		}),
	}
}

func (m *Metrics) sessionStarted() {
	if m != nil {
		m.activeSessions.Inc()
	}
}

func (m *Metrics) sessionEnded(outcome Outcome) {
	if m != nil {
		m.activeSessions.Dec()
		m.sessionsTotal.WithLabelValues(outcome.String()).Inc()
	}
}

func (m *Metrics) handshakeFailed() {
	if m != nil {
		m.handshakeFailures.Inc()
	}
}

func (m *Metrics) messageRouted(kind string) {
	if m != nil {
		m.messagesTotal.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) deliveryFailed() {
	if m != nil {
		m.deliveryFailures.Inc()
	}
}
