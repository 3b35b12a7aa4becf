package core

import (
	"context"

	lru "github.com/hashicorp/golang-lru"
	"github.com/oneconcern/podbundle/pkg/cafs"
	"github.com/oneconcern/podbundle/pkg/dispatch"
	"github.com/oneconcern/podbundle/pkg/join"
	"github.com/oneconcern/podbundle/pkg/model"
	"github.com/oneconcern/podbundle/pkg/registry"
	"github.com/oneconcern/podbundle/pkg/storage"
	"github.com/oneconcern/podbundle/pkg/storage/localfs"
	"github.com/oneconcern/podbundle/pkg/transform"
	"github.com/oneconcern/podbundle/pkg/wal"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Service is the build server
type Service struct {
	store        storage.Store
	mode         model.Mode
	workers      int
	cacheSize    int
	persistState bool
	l            *zap.Logger

	historyEnabled bool
	history        *wal.WAL

	blobs        cafs.Fs
	feedCache    *lru.Cache
	feeds        *registry.Feeds
	instructions *registry.Instructions
	join         *join.Engine
	pool         *dispatch.Pool
	pipeline     *transform.Pipeline
}

// New builds a build server. It starts the build workers: call Close to stop them.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		mode:      model.Development,
		workers:   dispatch.DefaultWorkers,
		cacheSize: cafs.DefaultCacheSize,
		l:         zap.NewNop(),

		historyEnabled: true,
	}
	for _, apply := range opts {
		apply(s)
	}
	if s.store == nil {
		s.store = localfs.New(afero.NewMemMapFs())
	}

	var err error
	s.blobs, err = cafs.New(
		cafs.Backend(s.store),
		cafs.Prefix(model.BlobsPrefix),
		cafs.CacheSize(s.cacheSize),
		cafs.Logger(s.l),
	)
	if err != nil {
		return nil, err
	}
	if s.feedCache, err = lru.New(DefaultFeedCacheSize); err != nil {
		return nil, err
	}

	registryOpts := []registry.Option{registry.Logger(s.l)}
	if s.persistState {
		registryOpts = append(registryOpts, registry.Persist(s.store))
	}
	s.feeds = registry.NewFeeds(registryOpts...)
	s.instructions = registry.NewInstructions(registryOpts...)

	s.pipeline = transform.New(s.mode, transform.Logger(s.l))
	s.pool = dispatch.New(s.build, dispatch.Workers(s.workers), dispatch.Logger(s.l))
	s.join = join.New(s.feeds, s.instructions, s.trigger, join.Logger(s.l))

	if s.historyEnabled {
		s.history = wal.New(s.store, wal.Logger(s.l))
		s.feeds.Subscribe(s.recordFeed)
		s.instructions.Subscribe(s.recordInstruction)
	}

	s.l.Info("build server ready",
		zap.String("sink", s.store.String()), zap.Stringer("mode", s.mode), zap.Bool("persistState", s.persistState))
	return s, nil
}

// Restore reloads the persisted registries and re-evaluates every instruction
func (s *Service) Restore(ctx context.Context) error {
	if !s.persistState {
		return nil
	}
	if err := s.feeds.Restore(ctx); err != nil {
		return err
	}
	if err := s.instructions.Restore(ctx); err != nil {
		return err
	}
	return s.join.Resync(ctx)
}

// Mode of the builds
func (s *Service) Mode() model.Mode {
	return s.mode
}

// Close stops the build workers, after the queued builds complete
func (s *Service) Close() {
	s.pool.Close()
}

// trigger registers a new identity found by the join engine and schedules its build
func (s *Service) trigger(ctx context.Context, manifest model.Manifest) error {
	if err := s.saveManifest(ctx, manifest); err != nil {
		return err
	}
	return s.pool.Submit(dispatch.Job{Manifest: manifest})
}
