// Package telemetry holds the process-wide prometheus collectors.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes used as the "outcome" label of MessagesTotal.
const (
	OutcomeHandled = "handled"
	OutcomeDropped = "dropped"
	OutcomeFailed  = "failed"
	OutcomePanic   = "panic"
)

var (
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetbot_messages_total",
		Help: "Inbound chat messages, labeled by outcome",
	}, []string{"outcome"})

	HandleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fleetbot_message_handle_duration_seconds",
		Help:    "Latency of handling one inbound message",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})

	SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetbot_submissions_total",
		Help: "Records persisted from chat, labeled by feature and kind (new, overwrite)",
	}, []string{"feature", "kind"})

	DepositsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetbot_deposits_total",
		Help: "Deposit attempts, labeled by result",
	}, []string{"result"})

	StatusUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetbot_status_updates_total",
		Help: "Keys touched by batch status updates, labeled by feature and result (updated, skipped)",
	}, []string{"feature", "result"})

	StoreWriteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetbot_store_write_failures_total",
		Help: "Failed or unverified store writes",
	}, []string{"store"})

	SendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetbot_send_failures_total",
		Help: "Outbound chat messages the transport failed to deliver",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fleetbot_active_sessions",
		Help: "Conversation sessions currently held in memory",
	})
)
