package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queuedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "podbundle",
		Subsystem: "dispatch",
		Name:      "queued_builds",
		Help:      "The number of builds waiting for a worker.",
	})

	runningGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "podbundle",
		Subsystem: "dispatch",
		Name:      "running_builds",
		Help:      "The number of builds being executed.",
	})

	buildsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "podbundle",
		Subsystem: "dispatch",
		Name:      "builds_total",
		Help:      "The total number of executed builds, by outcome (completed, failed).",
	}, []string{"type", "outcome"})

	buildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "podbundle",
		Subsystem: "dispatch",
		Name:      "build_duration_seconds",
		Help:      "Duration of executed builds.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 3, 10),
	}, []string{"type"})

	coalescedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "podbundle",
		Subsystem: "dispatch",
		Name:      "coalesced_requests_total",
		Help:      "The total number of build requests which shared the outcome of a single build.",
	})
)
