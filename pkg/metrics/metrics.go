package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VotesCast records vote submissions by value (-1|0|1).
	VotesCast = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anonwork_votes_cast_total",
			Help: "Total number of vote submissions",
		},
		[]string{"value"},
	)

	// NotificationsCreated counts persisted notifications by kind.
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anonwork_notifications_created_total",
			Help: "Total number of notifications created",
		},
		[]string{"type"},
	)

	// ConversationsCreated counts newly created direct-message threads.
	ConversationsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "anonwork_conversations_created_total",
			Help: "Total number of direct conversations created",
		},
	)

	// MessagesSent counts direct messages appended to conversations.
	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "anonwork_messages_sent_total",
			Help: "Total number of direct messages sent",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "anonwork_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
