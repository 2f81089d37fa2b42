package coordinator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metrics = struct {
	connections     prometheus.Gauge
	sessionsCreated prometheus.Counter
	sessionsEnded   *prometheus.CounterVec
	sessionsActive  prometheus.Gauge
	guestsJoined    prometheus.Counter
	packetsRelayed  *prometheus.CounterVec
	packetsDropped  prometheus.Counter
}{
	connections: promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "peerdesk", Subsystem: "coordinator", Name: "connections",
		Help: "Open client connections.",
	}),
	sessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "peerdesk", Subsystem: "coordinator", Name: "sessions_created_total",
		Help: "Sessions created since start.",
	}),
	sessionsEnded: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "peerdesk", Subsystem: "coordinator", Name: "sessions_ended_total",
		Help: "Sessions ended since start.",
	}, []string{"reason"}),
	sessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "peerdesk", Subsystem: "coordinator", Name: "sessions_active",
		Help: "Currently active sessions.",
	}),
	guestsJoined: promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "peerdesk", Subsystem: "coordinator", Name: "guests_joined_total",
		Help: "Guest joins since start.",
	}),
	packetsRelayed: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "peerdesk", Subsystem: "coordinator", Name: "packets_relayed_total",
		Help: "Signaling packets relayed, by packet type.",
	}, []string{"type"}),
	packetsDropped: promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "peerdesk", Subsystem: "coordinator", Name: "packets_dropped_total",
		Help: "Malformed or undeliverable packets.",
	}),
}
