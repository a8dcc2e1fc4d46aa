// Package metrics exposes Prometheus collectors for the sync core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RoomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "menusync_rooms_active",
		Help: "Rooms currently resident in the registry.",
	})

	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "menusync_connections_active",
		Help: "Websocket clients currently registered in a room.",
	})

	MutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menusync_mutations_total",
		Help: "Room mutations by action and outcome.",
	}, []string{"action", "status"})
)

// Handler serves the default registry at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
