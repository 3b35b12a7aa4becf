package cmd

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/oneconcern/podbundle/pkg/errors"
	"github.com/oneconcern/podbundle/pkg/storage"
	"github.com/oneconcern/podbundle/pkg/storage/gcs"
	"github.com/oneconcern/podbundle/pkg/storage/localfs"
	"github.com/oneconcern/podbundle/pkg/storage/sthree"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// newStore opens the storage sink selected by the settings, with tracing and metrics
func newStore(ctx context.Context, settings Settings, l *zap.Logger) (storage.Store, error) {
	var (
		store storage.Store
		err   error
	)

	switch settings.Sink {
	case sinkMem:
		store = localfs.New(afero.NewMemMapFs())
	case sinkFS, "":
		if settings.FSPath == "" {
			return nil, errors.New("the fs sink requires --fs-path")
		}
		store, err = localfs.NewAtomic(afero.NewBasePathFs(afero.NewOsFs(), settings.FSPath))
	case sinkGCS:
		if settings.Bucket == "" {
			return nil, errors.New("the gcs sink requires --bucket")
		}
		store, err = gcs.New(ctx, settings.Bucket, gcs.Credentials(settings.Credential), gcs.Logger(l))
	case sinkS3:
		cfg := aws.NewConfig()
		if settings.S3Region != "" {
			cfg = cfg.WithRegion(settings.S3Region)
		}
		if settings.S3Endpoint != "" {
			cfg = cfg.WithEndpoint(settings.S3Endpoint).WithS3ForcePathStyle(true)
		}
		store, err = sthree.New(sthree.Bucket(settings.Bucket), sthree.AWSConfig(cfg), sthree.Logger(l))
	default:
		return nil, errors.New("unknown sink").WrapMessage("sink %q: expected fs, mem, gcs or s3", settings.Sink)
	}
	if err != nil {
		return nil, errors.New("cannot open storage sink").Wrap(err)
	}

	l.Info("storage sink ready", zap.String("sink", store.String()))
	return storage.Instrument(nil, l, store), nil
}
