package registry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var publishCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "podbundle",
	Subsystem: "registry",
	Name:      "publish_total",
	Help:      "The total number of publishes, by registry and asset type.",
}, []string{"registry", "type"})
