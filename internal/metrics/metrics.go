package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Presence metrics
var (
	OnlineUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "presence_online_users",
			Help: "Current number of users with at least one live connection",
		},
	)

	Connections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "presence_connections",
			Help: "Current number of live realtime connections",
		},
	)

	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presence_transitions_total",
			Help: "Total number of online/offline transitions",
		},
		[]string{"direction"},
	)

	HandshakeRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presence_handshake_rejections_total",
			Help: "Total number of rejected websocket handshakes",
		},
		[]string{"reason"},
	)

	BroadcastDrops = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "presence_broadcast_drops_total",
			Help: "Total number of clients dropped because their send buffer was full",
		},
	)
)

// Transition directions
const (
	DirectionOnline  = "online"
	DirectionOffline = "offline"
)

// Observe publishes current registry totals
func Observe(onlineUsers, connections int) {
	OnlineUsers.Set(float64(onlineUsers))
	Connections.Set(float64(connections))
}
