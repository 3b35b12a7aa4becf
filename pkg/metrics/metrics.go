// Package metrics holds the process-wide prometheus settings of the build server.
//
// Components register their own collectors with promauto: this package only exposes them,
// together with the build information of the running server.
package metrics

import (
	"net/http"
	"runtime"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	buildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "podbundle",
		Name:      "build_info",
		Help:      "Version and settings of the running build server",
	}, []string{"version", "go_version", "mode", "sink"})

	workers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "podbundle",
		Name:      "workers",
		Help:      "Size of the build worker pool",
	})

	mx sync.Mutex
)

// Info describes the running server
type Info struct {
	Version string
	Mode    string
	Sink    string
	Workers int
}

// Init publishes the settings of the running server. Calling it again replaces them.
func Init(info Info) {
	mx.Lock()
	defer mx.Unlock()

	buildInfo.Reset()
	buildInfo.WithLabelValues(info.Version, runtime.Version(), info.Mode, info.Sink).Set(1)
	workers.Set(float64(info.Workers))
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}),
	)
}
