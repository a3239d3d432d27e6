package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Bounded-cardinality metrics only: no per-player or per-session labels.
var (
	metricTickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arena_tick_duration_seconds",
		Help:    "Time spent in one arena tick",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.016, 0.05},
	})

	metricShipsTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_ships",
		Help: "Player ships currently in arenas",
	})

	metricEntitiesTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_entities",
		Help: "Entities currently tracked by arena grids",
	})

	metricSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_sessions",
		Help: "Active game sessions",
	})

	metricWSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	metricConnRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected before upgrade",
	}, []string{"reason"}) // bounded: "ip_limit", "server_full"

	metricFramesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "state_frames_sent_total",
		Help: "State frames sent to clients",
	})
)
