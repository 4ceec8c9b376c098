// Package metrics exposes prometheus collectors for the map service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Loads counts data loads by kind (clusters, stations) and result.
	Loads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clustermap_loads_total",
		Help: "Data loads by kind and result",
	}, []string{"kind", "result"})

	// StaleLoads counts cluster loads discarded because a newer load started.
	StaleLoads = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clustermap_stale_loads_total",
		Help: "Cluster loads discarded by the generation check",
	})

	// Rebuilds counts layer group rebuilds (mesh, stations, buffers, encoding).
	Rebuilds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clustermap_layer_rebuilds_total",
		Help: "Scene layer rebuilds by group",
	}, []string{"group"})

	// Deferred counts rebuilds postponed until the style is idle.
	Deferred = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clustermap_deferred_rebuilds_total",
		Help: "Rebuilds deferred until the map style is loaded",
	})

	// Buffers counts generated station buffer polygons.
	Buffers = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clustermap_buffers_generated_total",
		Help: "Station buffer polygons generated",
	})

	// Requests counts HTTP requests by method, route pattern and status.
	Requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clustermap_http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	// BasemapTiles counts proxied basemap tiles by result (hit, miss, error).
	BasemapTiles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clustermap_basemap_tiles_total",
		Help: "Basemap tile requests by cache result",
	}, []string{"result"})

	// LoadDurationMs observes data load latency.
	LoadDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clustermap_load_duration_ms",
		Help:    "Data load duration in milliseconds",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(Loads)
	prometheus.MustRegister(StaleLoads)
	prometheus.MustRegister(Rebuilds)
	prometheus.MustRegister(Deferred)
	prometheus.MustRegister(Buffers)
	prometheus.MustRegister(Requests)
	prometheus.MustRegister(BasemapTiles)
	prometheus.MustRegister(LoadDurationMs)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
