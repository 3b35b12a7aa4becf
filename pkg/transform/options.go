package transform

import "go.uber.org/zap"

// Option configures the pipeline
type Option func(*Pipeline)

// Logger sets a logger for this pipeline
func Logger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.l = l
		}
	}
}
