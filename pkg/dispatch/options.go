package dispatch

import (
	"runtime"

	"go.uber.org/zap"
)

// DefaultWorkers is the default number of concurrent builds
var DefaultWorkers = runtime.NumCPU()

// Option configures the pool
type Option func(*Pool)

// Workers sets the maximum number of concurrent builds
func Workers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

// Logger sets a logger for this pool
func Logger(l *zap.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.l = l
		}
	}
}
