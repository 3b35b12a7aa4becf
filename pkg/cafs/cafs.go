package cafs

import (
	"bytes"
	"context"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/oneconcern/podbundle/pkg/core/status"
	"github.com/oneconcern/podbundle/pkg/dlogger"
	"github.com/oneconcern/podbundle/pkg/errors"
	"github.com/oneconcern/podbundle/pkg/storage"
	"github.com/oneconcern/podbundle/pkg/storage/localfs"
	storagestatus "github.com/oneconcern/podbundle/pkg/storage/status"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheSize is the default number of objects kept in the read cache
const DefaultCacheSize = 512

// PutRes holds the result from a Put operation
type PutRes struct {
	Key     Key   // the hash of the written object
	Written int64 // bytes physically written, zero when the object was already there
	Found   bool  // the object was already existing
}

// Fs implementations provide content-addressable storage operations.
//
// Content returned by Get is shared with the cache and must not be modified.
type Fs interface {
	Put(context.Context, []byte) (PutRes, error)
	Get(context.Context, Key) ([]byte, error)
	Has(context.Context, Key) (bool, error)
	Keys(context.Context) ([]Key, error)
	String() string
}

var _ Fs = &defaultFs{}

func defaultsForFs() *defaultFs {
	return &defaultFs{
		backend:   localfs.New(afero.NewMemMapFs()),
		cacheSize: DefaultCacheSize,
		l:         dlogger.MustGetLogger(dlogger.LogLevelInfo),
	}
}

// New creates a new instance of a content-addressable store
func New(opts ...Option) (Fs, error) {
	f := defaultsForFs()
	for _, apply := range opts {
		apply(f)
	}

	if f.cacheSize > 0 {
		var err error
		f.lru, err = lru.New(f.cacheSize)
		if err != nil {
			return nil, err
		}
	}
	f.l = f.l.With(zap.String("cafs", f.backend.String()), zap.String("prefix", f.prefix))

	return f, nil
}

type defaultFs struct {
	backend   storage.Store
	prefix    string
	cacheSize int
	lru       *lru.Cache
	puts      singleflight.Group
	l         *zap.Logger
}

func (d *defaultFs) pather(key Key) string {
	return key.StringWithPrefix(d.prefix)
}

// Put stores some content under its hash.
//
// Concurrent puts of the same content share a single write. The write is detached from the
// caller's context, so one caller giving up does not fail the others.
func (d *defaultFs) Put(ctx context.Context, content []byte) (PutRes, error) {
	key := KeyFromContent(content)

	res, err, _ := d.puts.Do(key.String(), func() (interface{}, error) {
		return d.put(context.WithoutCancel(ctx), key, content)
	})
	if err != nil {
		return PutRes{}, err
	}
	return res.(PutRes), nil
}

func (d *defaultFs) put(ctx context.Context, key Key, content []byte) (PutRes, error) {
	pth := d.pather(key)

	found, err := d.backend.Has(ctx, pth)
	if err != nil {
		return PutRes{}, status.ErrStorage.WrapWithLog(d.l, err, zap.Stringer("key", key))
	}

	if !found {
		err = storage.PutBytes(ctx, d.backend, pth, content, storage.NoOverWrite)
		switch {
		case errors.Is(err, storagestatus.ErrExists):
			found = true
		case err != nil:
			return PutRes{}, status.ErrStorage.WrapWithLog(d.l, err, zap.Stringer("key", key))
		}
	}

	res := PutRes{Key: key, Found: found}
	if found {
		blobsCounter.WithLabelValues("deduplicated").Inc()
		d.l.Debug("content already stored", zap.Stringer("key", key))
	} else {
		res.Written = int64(len(content))
		blobsCounter.WithLabelValues("written").Inc()
		blobsSizeCounter.Add(float64(len(content)))
		d.l.Debug("content stored", zap.Stringer("key", key), zap.Int64("size", res.Written))
	}

	d.cache(key, content)
	return res, nil
}

func (d *defaultFs) cache(key Key, content []byte) {
	if d.lru == nil {
		return
	}
	d.lru.Add(key, content)
}

// Get retrieves some content. The hash of the retrieved content is verified against its key.
func (d *defaultFs) Get(ctx context.Context, key Key) ([]byte, error) {
	if d.lru != nil {
		if v, ok := d.lru.Get(key); ok {
			cacheCounter.WithLabelValues("hit").Inc()
			return v.([]byte), nil
		}
		cacheCounter.WithLabelValues("miss").Inc()
	}

	content, err := storage.ReadAll(ctx, d.backend, d.pather(key))
	if err != nil {
		if errors.Is(err, storagestatus.ErrNotExists) {
			return nil, status.ErrNotFound.WrapMessage("content %v", key)
		}
		return nil, status.ErrStorage.Wrap(err)
	}

	if verify := KeyFromContent(content); !bytes.Equal(verify[:], key[:]) {
		return nil, status.ErrStorage.WrapMessage("content %v is corrupted: hashes to %v", key, verify)
	}

	d.cache(key, content)
	return content, nil
}

func (d *defaultFs) Has(ctx context.Context, key Key) (bool, error) {
	if d.lru != nil && d.lru.Contains(key) {
		return true, nil
	}
	has, err := d.backend.Has(ctx, d.pather(key))
	if err != nil {
		return false, status.ErrStorage.Wrap(err)
	}
	return has, nil
}

// Keys lists all the keys held by this store
func (d *defaultFs) Keys(ctx context.Context) ([]Key, error) {
	names, err := d.backend.KeysPrefix(ctx, d.prefix)
	if err != nil {
		return nil, status.ErrStorage.Wrap(err)
	}

	keys := make([]Key, 0, len(names))
	for _, name := range names {
		k, err := KeyFromString(strings.TrimPrefix(name, d.prefix))
		if err != nil {
			d.l.Warn("skipping foreign object in content store", zap.String("object", name))
			continue
		}
		keys = append(keys, k)
	}
	return keys, nil
}

func (d *defaultFs) String() string {
	return "cafs@" + d.backend.String() + "/" + d.prefix
}
