package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Evaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relayer_evaluations_total",
			Help: "Total number of withdrawal evaluations by resulting relay state",
		},
		[]string{"network", "state"},
	)

	Actions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relayer_actions_total",
			Help: "Total number of relay actions decided",
		},
		[]string{"network", "action"},
	)

	Transactions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relayer_transactions_total",
			Help: "Total number of L1 transactions submitted by outcome",
		},
		[]string{"network", "action", "status"},
	)

	ConfirmationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relayer_confirmation_duration_seconds",
			Help:    "Time from submitting a relay transaction to its confirmation",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"network", "action"},
	)

	Errors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relayer_errors_total",
			Help: "Total number of failed relay steps by error kind",
		},
		[]string{"network", "kind"},
	)

	NATSConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relayer_nats_connection_status",
		Help: "NATS connection status (1=connected, 0=disconnected)",
	})

	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relayer_notifications_total",
			Help: "Total number of relay events published",
		},
		[]string{"status"},
	)
)
