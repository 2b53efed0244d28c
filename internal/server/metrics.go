package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "memory"

// Metrics holds the Prometheus instruments updated by the hub.
type Metrics struct {
	connections  prometheus.Gauge
	players      prometheus.Gauge
	inbound      *prometheus.CounterVec
	rejected     *prometheus.CounterVec
	broadcasts   *prometheus.CounterVec
	sendFailures prometheus.Counter
	picks        *prometheus.CounterVec
	rounds       prometheus.Counter
}

// NewMetrics registers the hub metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "connections",
			Help:      "Number of open websocket connections",
		}),

		players: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "registered_players",
			Help:      "Number of connections registered as players",
		}),

		inbound: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "inbound_messages_total",
			Help:      "Decoded client messages by action type",
		}, []string{"action"}),

		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rejected_messages_total",
			Help:      "Client messages dropped without effect, by reason",
		}, []string{"reason"}),

		broadcasts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "broadcasts_total",
			Help:      "Frames fanned out to all players, by action type",
		}, []string{"action"}),

		sendFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "send_failures_total",
			Help:      "Frames that could not be queued for a connection",
		}),

		picks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "resolved_picks_total",
			Help:      "Resolved second picks by result",
		}, []string{"result"}),

		rounds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rounds_started_total",
			Help:      "Boards dealt since start",
		}),
	}
}
