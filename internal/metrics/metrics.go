// Package metrics holds the Prometheus collectors of the chat server.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	OnlineSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_online_sessions",
		Help: "Current joined websocket sessions.",
	})
	RejectedSessions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_rejected_sessions_total",
		Help: "Total connections closed because of missing or invalid identity.",
	})

	FramesReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_frames_received_total",
		Help: "Total inbound frames by parsed msg_type (\"invalid\" for frames failing envelope parsing).",
	}, []string{"msg_type"})
	ErrorsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_errors_sent_total",
		Help: "Total ErrorOccurred events sent to clients by error code.",
	}, []string{"code"})

	OutboundDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_outbound_dropped_total",
		Help: "Total frames dropped because the outbound queue of a session was full.",
	})
	FanoutFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_fanout_failures_total",
		Help: "Total failed publishes to the fanout fabric.",
	})

	StorageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chat_storage_call_duration_seconds",
		Help:    "Duration of storage calls including the wait for a worker slot.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
)

// Register adds every collector to the default registry
func Register() {
	prometheus.MustRegister(
		OnlineSessions, RejectedSessions,
		FramesReceived, ErrorsSent,
		OutboundDropped, FanoutFailures,
		StorageDuration,
	)
}
