package cafs

import (
	"github.com/oneconcern/podbundle/pkg/storage"
	"go.uber.org/zap"
)

// Option to configure content addressable store components
type Option func(*defaultFs)

// Prefix sets a prefix on keys
func Prefix(prefix string) Option {
	return func(w *defaultFs) {
		w.prefix = prefix
	}
}

// Backend specifies the backend store
func Backend(store storage.Store) Option {
	return func(w *defaultFs) {
		w.backend = store
	}
}

// Logger sets a logger for this store
func Logger(l *zap.Logger) Option {
	return func(w *defaultFs) {
		if l != nil {
			w.l = l
		}
	}
}

// CacheSize sets the number of objects kept in the LRU read cache. Zero disables the cache.
func CacheSize(size int) Option {
	return func(w *defaultFs) {
		w.cacheSize = size
	}
}
