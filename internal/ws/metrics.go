package ws

import "github.com/prometheus/client_golang/prometheus"

var (
	wsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections",
		Help: "Open websocket connections",
	})
	wsMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_task_messages_total",
			Help: "Task change messages queued to websocket clients",
		},
		[]string{"type"},
	)
	wsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ws_task_messages_dropped_total",
		Help: "Messages dropped because a client send buffer was full",
	})
)

func init() {
	prometheus.MustRegister(wsConnections)
	prometheus.MustRegister(wsMessages)
	prometheus.MustRegister(wsDropped)
}
