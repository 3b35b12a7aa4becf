package core

import (
	"github.com/oneconcern/podbundle/pkg/model"
	"github.com/oneconcern/podbundle/pkg/storage"
	"go.uber.org/zap"
)

// DefaultFeedCacheSize is the number of parsed feeds kept in memory
const DefaultFeedCacheSize = 1024

// Option configures the build server
type Option func(*Service)

// Store sets the storage sink for feeds, manifests, bundles and registry state
func Store(store storage.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// Mode sets the build mode. Unknown modes fall back to development.
func Mode(mode model.Mode) Option {
	return func(s *Service) {
		s.mode = model.ParseMode(string(mode))
	}
}

// Workers sets the maximum number of concurrent builds
func Workers(n int) Option {
	return func(s *Service) {
		s.workers = n
	}
}

// CacheSize sets the number of bundle contents kept in the content store read cache
func CacheSize(n int) Option {
	return func(s *Service) {
		s.cacheSize = n
	}
}

// PersistState enables persistence of the registries to the storage sink
func PersistState(enabled bool) Option {
	return func(s *Service) {
		s.persistState = enabled
	}
}

// History enables the write-ahead log of publishes
func History(enabled bool) Option {
	return func(s *Service) {
		s.historyEnabled = enabled
	}
}

// Logger sets a logger for the build server
func Logger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.l = l
		}
	}
}
