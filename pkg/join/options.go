package join

import "go.uber.org/zap"

// Option configures the join engine
type Option func(*Engine)

// Logger sets a logger for this engine
func Logger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.l = l
		}
	}
}
