package registry

import (
	"context"
	"sync"

	"github.com/oneconcern/podbundle/pkg/core/status"
	"github.com/oneconcern/podbundle/pkg/model"
	"github.com/oneconcern/podbundle/pkg/storage"
	"golang.org/x/sync/errgroup"
)

const restoreConcurrency = 16

// restoreAll reads every persisted value for all asset types
func restoreAll[V any](ctx context.Context, store storage.Store, prefix func(model.AssetType) string) ([]V, error) {
	var keys []string
	for _, typ := range model.AssetTypes {
		typeKeys, err := store.KeysPrefix(ctx, prefix(typ))
		if err != nil {
			return nil, status.ErrStorage.Wrap(err)
		}
		keys = append(keys, typeKeys...)
	}

	var mx sync.Mutex
	values := make([]V, 0, len(keys))

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(restoreConcurrency)
	for _, toPin := range keys {
		key := toPin
		group.Go(func() error {
			data, err := storage.ReadAll(gctx, store, key)
			if err != nil {
				return status.ErrStorage.Wrap(err)
			}
			var value V
			if err := model.JSON.Unmarshal(data, &value); err != nil {
				return status.ErrStorage.Wrap(err)
			}
			mx.Lock()
			values = append(values, value)
			mx.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return values, nil
}
