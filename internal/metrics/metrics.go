package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels for OperationsTotal.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Operation metrics
var (
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Ledger operations by name and result",
		},
		[]string{"operation", "result"},
	)

	FundedBaseUnits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_funded_base_units_total",
		Help: "Base units accepted into project custody",
	})

	WithdrawnBaseUnits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_withdrawn_base_units_total",
		Help: "Base units swept from project custody to creators",
	})
)

// Delivery metrics
var (
	PublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_events_publish_failures_total",
			Help: "Notifications that could not be delivered, by topic",
		},
		[]string{"topic"},
	)
)
