package core

import (
	"context"
	"time"

	"github.com/oneconcern/podbundle/pkg/cafs"
	"github.com/oneconcern/podbundle/pkg/core/status"
	"github.com/oneconcern/podbundle/pkg/dispatch"
	"github.com/oneconcern/podbundle/pkg/errors"
	"github.com/oneconcern/podbundle/pkg/model"
	"go.uber.org/zap"
)

// CreateBundle builds a bundle from an explicit list of feeds, and waits for it.
//
// Feeds may be given by id or by file name. They must all hold assets of the requested type.
func (s *Service) CreateBundle(ctx context.Context, typ model.AssetType, feedRefs []string) (model.Bundle, error) {
	typ, err := model.ParseAssetType(string(typ))
	if err != nil {
		return model.Bundle{}, err
	}

	ids := make([]string, 0, len(feedRefs))
	for _, ref := range feedRefs {
		id, err := model.ParseFeedFile(ref)
		if err != nil {
			return model.Bundle{}, err
		}
		feed, err := s.loadFeed(ctx, id)
		if err != nil {
			return model.Bundle{}, err
		}
		if feed.Type != typ {
			return model.Bundle{}, status.ErrValidation.WrapMessage("feed %s holds %s assets, not %s", id, feed.Type, typ)
		}
		ids = append(ids, id)
	}

	manifest := model.NewManifest(typ, ids)
	if err := s.saveManifest(ctx, manifest); err != nil {
		return model.Bundle{}, err
	}
	return s.pool.Build(ctx, dispatch.Job{Manifest: manifest})
}

// FetchBundle returns a bundle and its content, building it if needed.
//
// Only identities which were registered by the join engine or by CreateBundle may be built.
func (s *Service) FetchBundle(ctx context.Context, file string) (model.Bundle, []byte, error) {
	identity, typ, err := model.ParseBundleFile(file)
	if err != nil {
		return model.Bundle{}, nil, err
	}

	bundle, ready, err := s.readyBundle(ctx, identity, typ)
	if err != nil {
		return model.Bundle{}, nil, err
	}

	if !ready {
		var manifest model.Manifest
		if err := s.readJSON(ctx, model.GetArchivePathToManifest(identity, typ), "bundle "+file, &manifest); err != nil {
			return model.Bundle{}, nil, err
		}
		if bundle, err = s.pool.Build(ctx, dispatch.Job{Manifest: manifest}); err != nil {
			return model.Bundle{}, nil, err
		}
	}

	content, err := s.bundleContent(ctx, bundle)
	if err != nil {
		return model.Bundle{}, nil, err
	}
	return bundle, content, nil
}

// CurrentBundle returns the identity of the latest bundle triggered for a layout
func (s *Service) CurrentBundle(layout string, typ model.AssetType) (string, bool) {
	return s.join.Current(layout, typ)
}

func (s *Service) bundleContent(ctx context.Context, bundle model.Bundle) ([]byte, error) {
	key, err := cafs.KeyFromString(bundle.Hash)
	if err != nil {
		return nil, status.ErrStorage.WrapMessage("bundle %s has an invalid content hash: %v", bundle.File(), err)
	}
	return s.blobs.Get(ctx, key)
}

// readyBundle reads the descriptor of a bundle built in the current mode
func (s *Service) readyBundle(ctx context.Context, identity string, typ model.AssetType) (model.Bundle, bool, error) {
	var bundle model.Bundle
	err := s.readJSON(ctx, model.GetArchivePathToBundle(s.mode, identity, typ), "bundle "+identity, &bundle)
	switch {
	case err == nil:
		return bundle, true, nil
	case errors.Is(err, status.ErrNotFound):
		return model.Bundle{}, false, nil
	default:
		return model.Bundle{}, false, err
	}
}

func (s *Service) saveManifest(ctx context.Context, manifest model.Manifest) error {
	return s.writeOnce(ctx, model.GetArchivePathToManifest(manifest.Identity, manifest.Type), manifest)
}

// build runs on a worker of the dispatch pool.
//
// The bundle descriptor is written last, once the content is stored: a failed build
// leaves no descriptor behind and may be retried.
func (s *Service) build(ctx context.Context, job dispatch.Job) (model.Bundle, error) {
	manifest := job.Manifest
	if bundle, ready, err := s.readyBundle(ctx, manifest.Identity, manifest.Type); err != nil || ready {
		return bundle, err
	}

	feeds := make([]model.Feed, 0, len(manifest.Feeds))
	for _, id := range manifest.Feeds {
		feed, err := s.loadFeed(ctx, id)
		if err != nil {
			return model.Bundle{}, err
		}
		feeds = append(feeds, feed)
	}

	content, err := s.pipeline.Bundle(manifest.Type, feeds)
	if err != nil {
		return model.Bundle{}, err
	}

	res, err := s.blobs.Put(ctx, content)
	if err != nil {
		return model.Bundle{}, err
	}

	bundle := model.Bundle{
		Identity: manifest.Identity,
		Type:     manifest.Type,
		Mode:     s.mode,
		Feeds:    manifest.Feeds,
		Hash:     res.Key.String(),
		Size:     int64(len(content)),
		BuiltAt:  time.Now().UTC(),
	}
	if err := s.writeOnce(ctx, model.GetArchivePathToBundle(s.mode, bundle.Identity, bundle.Type), bundle); err != nil {
		return model.Bundle{}, err
	}

	s.l.Info("bundle ready",
		zap.String("identity", bundle.Identity), zap.Stringer("type", bundle.Type), zap.String("hash", bundle.Hash), zap.Int64("size", bundle.Size))
	return bundle, nil
}
