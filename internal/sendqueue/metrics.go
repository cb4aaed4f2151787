package sendqueue

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "parley_client",
			Subsystem: "sendqueue",
			Name:      "submissions_total",
			Help:      "Jobs accepted into the send queue.",
		},
		[]string{"shard"},
	)

	queueFullTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "parley_client",
			Subsystem: "sendqueue",
			Name:      "queue_full_total",
			Help:      "Enqueue attempts rejected with back-pressure.",
		},
		[]string{"shard"},
	)

	queueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "parley_client",
			Subsystem: "sendqueue",
			Name:      "queue_depth",
			Help:      "Jobs waiting in each shard queue.",
		},
		[]string{"shard"},
	)

	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "parley_client",
			Subsystem: "sendqueue",
			Name:      "run_duration_seconds",
			Help:      "Wall time of individual job attempts.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"shard"},
	)
)

func labelFor(shard int) string { return strconv.Itoa(shard) }
