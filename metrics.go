package parley

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var operationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "parley_client",
		Name:      "operations_total",
		Help:      "Facade operations by outcome.",
	},
	[]string{"operation", "outcome"},
)
