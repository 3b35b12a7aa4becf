// Copyright © 2018 One Concern

// Package gcs implements the storage.Store interface on Google Cloud Storage.
package gcs

import (
	"context"
	"io"
	"strings"

	gcsStorage "cloud.google.com/go/storage"
	"github.com/oneconcern/podbundle/pkg/dlogger"
	"github.com/oneconcern/podbundle/pkg/storage"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type gcs struct {
	client     *gcsStorage.Client
	bucket     string
	prefix     string
	clientOpts []option.ClientOption
	l          *zap.Logger
}

// New builds a GCS store on some bucket.
//
// The bucket may be specified as "bucket" or "bucket/some/prefix": in the latter case,
// all keys are stored under that prefix.
func New(ctx context.Context, bucket string, opts ...Option) (storage.Store, error) {
	googleStore := &gcs{
		l: dlogger.MustGetLogger(dlogger.LogLevelInfo),
	}
	googleStore.bucket, googleStore.prefix = splitBucket(bucket)
	for _, apply := range opts {
		apply(googleStore)
	}

	var err error
	googleStore.client, err = gcsStorage.NewClient(ctx, googleStore.clientOpts...)
	if err != nil {
		return nil, toSentinelErrors(err)
	}
	googleStore.l = googleStore.l.With(zap.String("bucket", googleStore.bucket))
	return googleStore, nil
}

func splitBucket(bucket string) (string, string) {
	parts := strings.SplitN(strings.Trim(bucket, "/"), "/", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Trim(parts[1], "/") + "/"
}

func (g *gcs) objectName(key string) string {
	return g.prefix + strings.TrimLeft(key, "/")
}

func (g *gcs) String() string {
	return "gcs://" + g.bucket + "/" + g.prefix
}

func (g *gcs) Has(ctx context.Context, key string) (bool, error) {
	_, err := g.client.Bucket(g.bucket).Object(g.objectName(key)).Attrs(ctx)
	if err != nil {
		if err == gcsStorage.ErrObjectNotExist {
			return false, nil
		}
		return false, toSentinelErrors(err)
	}
	return true, nil
}

func (g *gcs) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	objectReader, err := g.client.Bucket(g.bucket).Object(g.objectName(key)).NewReader(ctx)
	if err != nil {
		return nil, toSentinelErrors(err)
	}
	return objectReader, nil
}

func (g *gcs) Put(ctx context.Context, key string, reader io.Reader, exclusive bool) error {
	object := g.client.Bucket(g.bucket).Object(g.objectName(key))
	if exclusive {
		// Put if not present
		object = object.If(gcsStorage.Conditions{DoesNotExist: true})
	}
	writer := object.NewWriter(ctx)
	writer.ContentType = storage.ContentType(key)
	if strings.HasPrefix(writer.ContentType, "application/javascript") || strings.HasPrefix(writer.ContentType, "text/css") {
		// bundles and feeds are immutable
		writer.CacheControl = "public, max-age=31536000, immutable"
	}

	if _, err := io.Copy(writer, reader); err != nil {
		_ = writer.Close()
		return toSentinelErrors(err)
	}
	return toSentinelErrors(writer.Close())
}

func (g *gcs) Delete(ctx context.Context, key string) error {
	err := g.client.Bucket(g.bucket).Object(g.objectName(key)).Delete(ctx)
	if err == gcsStorage.ErrObjectNotExist {
		return nil
	}
	return toSentinelErrors(err)
}

func (g *gcs) Keys(ctx context.Context) ([]string, error) {
	return g.KeysPrefix(ctx, "")
}

func (g *gcs) KeysPrefix(ctx context.Context, prefix string) ([]string, error) {
	objectsIterator := g.client.Bucket(g.bucket).Objects(ctx, &gcsStorage.Query{Prefix: g.objectName(prefix)})
	var keys []string
	for {
		attrs, err := objectsIterator.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, toSentinelErrors(err)
		}
		keys = append(keys, strings.TrimPrefix(attrs.Name, g.prefix))
	}
	return keys, nil
}

func (g *gcs) Clear(ctx context.Context) error {
	keys, err := g.Keys(ctx)
	if err != nil {
		return err
	}
	g.l.Warn("clearing bucket", zap.Int("objects", len(keys)), zap.String("prefix", g.prefix))
	for _, key := range keys {
		if err := g.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
