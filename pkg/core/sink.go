package core

import (
	"context"

	"github.com/oneconcern/podbundle/pkg/core/status"
	"github.com/oneconcern/podbundle/pkg/errors"
	"github.com/oneconcern/podbundle/pkg/model"
	"github.com/oneconcern/podbundle/pkg/storage"
	storagestatus "github.com/oneconcern/podbundle/pkg/storage/status"
)

var jsonCodec = model.JSON

// storageError maps sink errors to the build server errors
func storageError(err error, what string) error {
	if errors.Is(err, storagestatus.ErrNotExists) {
		return status.ErrNotFound.WrapMessage("%s", what)
	}
	if errors.Is(err, status.ErrNotFound) || errors.Is(err, status.ErrStorage) {
		return err
	}
	return status.ErrStorage.Wrap(err)
}

// readJSON reads and decodes a descriptor
func (s *Service) readJSON(ctx context.Context, key, what string, target interface{}) error {
	data, err := storage.ReadAll(ctx, s.store, key)
	if err != nil {
		return storageError(err, what)
	}
	if err := jsonCodec.Unmarshal(data, target); err != nil {
		return status.ErrStorage.Wrap(err)
	}
	return nil
}

// writeOnce writes an immutable descriptor. An existing descriptor is left untouched.
func (s *Service) writeOnce(ctx context.Context, key string, value interface{}) error {
	data, err := jsonCodec.Marshal(value)
	if err != nil {
		return status.ErrStorage.Wrap(err)
	}
	err = storage.PutBytes(ctx, s.store, key, data, storage.NoOverWrite)
	if err != nil && !errors.Is(err, storagestatus.ErrExists) {
		return status.ErrStorage.Wrap(err)
	}
	return nil
}

// exists checks a key on the sink
func (s *Service) exists(ctx context.Context, key string) (bool, error) {
	has, err := s.store.Has(ctx, key)
	if err != nil {
		return false, status.ErrStorage.Wrap(err)
	}
	return has, nil
}
