package join

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var evaluationsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "podbundle",
	Subsystem: "join",
	Name:      "evaluations_total",
	Help:      "The total number of instruction evaluations, by outcome (pending, unchanged, triggered, failed).",
}, []string{"type", "outcome"})
