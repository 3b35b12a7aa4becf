package registry

import (
	"github.com/oneconcern/podbundle/pkg/storage"
	"go.uber.org/zap"
)

// Option configures a registry
type Option func(*options)

type options struct {
	shards  int
	persist storage.Store
	l       *zap.Logger
}

func defaultOptions() *options {
	return &options{
		shards: DefaultShards,
		l:      zap.NewNop(),
	}
}

// Shards sets the number of lock shards
func Shards(n int) Option {
	return func(o *options) {
		o.shards = n
	}
}

// Persist enables write-through persistence of the latest values to a store,
// so that they may be restored after a restart
func Persist(store storage.Store) Option {
	return func(o *options) {
		o.persist = store
	}
}

// Logger sets a logger for this registry
func Logger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.l = l
		}
	}
}
