// Package sthree implements the storage.Store interface on AWS S3 (or any S3 compatible API).
package sthree

import (
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/oneconcern/podbundle/pkg/dlogger"
	"github.com/oneconcern/podbundle/pkg/errors"
	"github.com/oneconcern/podbundle/pkg/storage"
	"github.com/oneconcern/podbundle/pkg/storage/status"
	"go.uber.org/zap"
)

// PageSize is the number of keys fetched per listing request
const PageSize = 1000

// Option to configure the S3 store
type Option func(*s3FS)

// Bucket sets the target bucket
func Bucket(bucket string) Option {
	return func(fs *s3FS) {
		fs.bucket = bucket
	}
}

// AWSConfig sets the AWS client configuration (region, endpoint, credentials...)
func AWSConfig(cfg *aws.Config) Option {
	return func(fs *s3FS) {
		fs.awsConfig = cfg
	}
}

// Client injects an already configured S3 API client
func Client(client s3iface.S3API) Option {
	return func(fs *s3FS) {
		fs.s3 = client
	}
}

// Logger sets a logger for this store
func Logger(l *zap.Logger) Option {
	return func(fs *s3FS) {
		if l != nil {
			fs.l = l
		}
	}
}

// New builds a S3 store
func New(option Option, options ...Option) (storage.Store, error) {
	fs := &s3FS{
		l: dlogger.MustGetLogger(dlogger.LogLevelInfo),
	}
	option(fs)
	for _, apply := range options {
		apply(fs)
	}
	if fs.bucket == "" {
		return nil, status.ErrInvalidResource.WrapMessage("a bucket is required")
	}

	if fs.s3 == nil {
		sess, err := session.NewSession(fs.awsConfig)
		if err != nil {
			return nil, toSentinelErrors(err)
		}
		fs.s3 = s3.New(sess)
	}
	fs.uploader = s3manager.NewUploaderWithClient(fs.s3)
	fs.l = fs.l.With(zap.String("bucket", fs.bucket))
	return fs, nil
}

type s3FS struct {
	bucket    string
	awsConfig *aws.Config
	s3        s3iface.S3API
	uploader  *s3manager.Uploader
	l         *zap.Logger
}

func objectKey(key string) string {
	return strings.TrimLeft(key, "/")
}

func (s *s3FS) Has(ctx context.Context, key string) (bool, error) {
	_, err := s.s3.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(key)),
	})

	if err != nil {
		err = toSentinelErrors(err)
		if errors.Is(err, status.ErrNotExists) || errors.Is(err, status.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *s3FS) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.s3.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(key)),
	})
	if err != nil {
		return nil, toSentinelErrors(err)
	}
	return obj.Body, nil
}

// Put uploads an object.
//
// The exclusive flag is honored with a prior HEAD request: S3 has no atomic
// put-if-absent in this API, so two racing writers may both succeed. Objects written
// by the build server are content-addressed, so such a race writes identical bytes.
func (s *s3FS) Put(ctx context.Context, key string, rdr io.Reader, exclusive bool) error {
	if exclusive {
		has, err := s.Has(ctx, key)
		if err != nil {
			return err
		}
		if has {
			return status.ErrExists.WrapMessage("key %q", key)
		}
	}
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey(key)),
		Body:        rdr,
		ContentType: aws.String(storage.ContentType(key)),
	})
	return toSentinelErrors(err)
}

func (s *s3FS) Delete(ctx context.Context, key string) error {
	_, err := s.s3.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(key)),
	})
	return toSentinelErrors(err)
}

func (s *s3FS) Keys(ctx context.Context) ([]string, error) {
	return s.KeysPrefix(ctx, "")
}

func (s *s3FS) KeysPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	eachPage := func(page *s3.ListObjectsV2Output, more bool) bool {
		for _, obj := range page.Contents {
			key := aws.StringValue(obj.Key)
			if key != "" {
				keys = append(keys, key)
			}
		}
		return true
	}

	params := &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(objectKey(prefix)),
		MaxKeys: aws.Int64(PageSize),
	}

	if err := s.s3.ListObjectsV2PagesWithContext(ctx, params, eachPage); err != nil {
		return nil, toSentinelErrors(err)
	}
	return keys, nil
}

func (s *s3FS) Clear(ctx context.Context) error {
	s.l.Warn("clearing bucket")
	params := &s3.ListObjectsInput{Bucket: aws.String(s.bucket)}
	del := s3manager.NewBatchDeleteWithClient(s.s3)
	return toSentinelErrors(del.Delete(ctx, s3manager.NewDeleteListIterator(s.s3, params)))
}

func (s *s3FS) String() string {
	return "s3://" + s.bucket
}
