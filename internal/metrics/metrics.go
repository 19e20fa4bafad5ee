package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "motebridge"

// Routing outcomes recorded by RoutedMessage.
const (
	OutcomeEvent   = "event"
	OutcomeState   = "state"
	OutcomeIgnored = "ignored"
)

// Command results recorded by Command.
const (
	ResultOK           = "ok"
	ResultNotConnected = "not_connected"
	ResultFailed       = "failed"
)

// Metrics holds the bridge's Prometheus collectors.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without instrumentation in tests.
type Metrics struct {
	routed          *prometheus.CounterVec
	events          *prometheus.CounterVec
	decodeErrors    prometheus.Counter
	subscribeErrors *prometheus.CounterVec
	commands        *prometheus.CounterVec
	reconnects      prometheus.Counter
	connected       prometheus.Gauge
	wsClients       prometheus.Gauge
}

// New creates the collectors and registers them on reg.
// Registration panics on duplicate names, as prometheus.MustRegister does.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		routed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_routed_total",
			Help:      "Inbound MQTT messages by routing outcome.",
		}, []string{"outcome"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_emitted_total",
			Help:      "Semantic events broadcast to web clients by channel.",
		}, []string{"channel"}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_decode_errors_total",
			Help:      "Telemetry payloads that could not be decoded.",
		}),
		subscribeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscribe_errors_total",
			Help:      "Failed subscribe calls by topic.",
		}, []string{"topic"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands dispatched to devices by target and result.",
		}, []string{"target", "result"}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mqtt_reconnects_total",
			Help:      "Broker connections established after a lost link.",
		}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mqtt_connected",
			Help:      "1 when the broker link is up and subscriptions are in place.",
		}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Currently connected WebSocket clients.",
		}),
	}

	reg.MustRegister(
		m.routed,
		m.events,
		m.decodeErrors,
		m.subscribeErrors,
		m.commands,
		m.reconnects,
		m.connected,
		m.wsClients,
	)

	return m
}

// RoutedMessage counts one inbound message with its routing outcome.
func (m *Metrics) RoutedMessage(outcome string) {
	if m == nil {
		return
	}
	m.routed.WithLabelValues(outcome).Inc()
}

// EventEmitted counts one broadcast event.
func (m *Metrics) EventEmitted(channel string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(channel).Inc()
}

// DecodeError counts one undecodable telemetry payload.
func (m *Metrics) DecodeError() {
	if m == nil {
		return
	}
	m.decodeErrors.Inc()
}

// SubscribeError counts one failed subscribe.
func (m *Metrics) SubscribeError(topic string) {
	if m == nil {
		return
	}
	m.subscribeErrors.WithLabelValues(topic).Inc()
}

// Command counts one dispatched command.
func (m *Metrics) Command(target, result string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(target, result).Inc()
}

// Reconnected counts one re-established broker connection.
func (m *Metrics) Reconnected() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

// SetConnected records the broker link state.
func (m *Metrics) SetConnected(up bool) {
	if m == nil {
		return
	}
	if up {
		m.connected.Set(1)
		return
	}
	m.connected.Set(0)
}

// SetWebSocketClients records the number of connected WebSocket clients.
func (m *Metrics) SetWebSocketClients(n int) {
	if m == nil {
		return
	}
	m.wsClients.Set(float64(n))
}
