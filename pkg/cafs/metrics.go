package cafs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	blobsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "podbundle",
		Subsystem: "cafs",
		Name:      "blobs_total",
		Help:      "The total number of objects put to the content store, by outcome (written or deduplicated).",
	}, []string{"outcome"})

	blobsSizeCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "podbundle",
		Subsystem: "cafs",
		Name:      "written_bytes_total",
		Help:      "The total number of bytes physically written to the content store.",
	})

	cacheCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "podbundle",
		Subsystem: "cafs",
		Name:      "cache_requests_total",
		Help:      "The total number of reads served from the cache or from the backend.",
	}, []string{"result"})
)
