// Package metrics exposes Prometheus instrumentation for the relay.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_connected_clients",
		Help: "Number of currently connected clients.",
	})

	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_active_rooms",
		Help: "Number of rooms with at least one member.",
	})

	BroadcastsRelayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_broadcasts_total",
		Help: "Broadcasts relayed, by delivery mode.",
	}, []string{"mode"})

	VolatileDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_volatile_dropped_total",
		Help: "Best-effort messages dropped because a recipient could not take them immediately.",
	})
)

// Handler serves the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
