package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	labelSucceeded          = "succeeded"
	labelUpdated            = "updated"
	labelPermanentlyFailed  = "permanently_failed"
	labelTemporarilySkipped = "temporarily_skipped"
)

var (
	recordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracking_reconcile_records_total",
		Help: "Records processed by reconciliation passes, by outcome",
	}, []string{"outcome"})

	pausesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracking_reconcile_pauses_total",
		Help: "Inter-record pauses caused by consecutive failures",
	})

	passesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracking_reconcile_passes_total",
		Help: "Reconciliation passes, by trigger",
	}, []string{"trigger"})

	passDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tracking_reconcile_pass_duration_seconds",
		Help:    "Duration of one reconciliation pass",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s … ~4m
	})
)
