// Copyright © 2018 One Concern

// Package localfs implements the storage.Store interface on top of an afero file system.
//
// With an afero.OsFs this is a local disk sink; with an afero.MemMapFs it is an
// ephemeral in-memory sink, convenient for tests and throw-away servers.
package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/oneconcern/podbundle/pkg/storage"
	"github.com/oneconcern/podbundle/pkg/storage/status"
	"github.com/spf13/afero"
)

// DefaultPath is the location of objects when no file system is provided
var DefaultPath = filepath.Join(".podbundle", "objects")

// New creates a new local file system backed storage model
func New(fs afero.Fs) storage.Store {
	if fs == nil {
		fs = afero.NewBasePathFs(afero.NewOsFs(), DefaultPath)
	}
	return &localFS{
		fs: fs,
	}
}

type localFS struct {
	fs afero.Fs
}

func toPath(key string) string {
	return filepath.FromSlash(strings.TrimLeft(key, "/"))
}

func toKey(path string) string {
	return strings.TrimLeft(filepath.ToSlash(path), "/")
}

func (l *localFS) Has(ctx context.Context, key string) (bool, error) {
	fi, err := l.fs.Stat(toPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	return !fi.IsDir(), nil
}

func (l *localFS) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	has, err := l.Has(ctx, key)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, status.ErrNotExists.WrapMessage("key %q", key)
	}
	return l.fs.Open(toPath(key))
}

func (l *localFS) Put(ctx context.Context, key string, source io.Reader, exclusive bool) error {
	p := toPath(key)
	if dir := filepath.Dir(p); dir != "" && dir != "." {
		if err := l.fs.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("ensuring directories for %q: %v", key, err)
		}
	}
	flag := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if exclusive {
		flag |= os.O_EXCL
	}
	target, err := l.fs.OpenFile(p, flag, 0600)
	if err != nil {
		if os.IsExist(err) {
			return status.ErrExists.WrapMessage("key %q", key)
		}
		return fmt.Errorf("create record for %q: %v", key, err)
	}

	if _, err = io.Copy(target, source); err != nil {
		_ = target.Close()
		return fmt.Errorf("write record for %q: %v", key, err)
	}

	return target.Close()
}

func (l *localFS) Delete(ctx context.Context, key string) error {
	if err := l.fs.Remove(toPath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %q: %v", key, err)
	}
	return nil
}

func (l *localFS) Keys(ctx context.Context) ([]string, error) {
	return l.KeysPrefix(ctx, "")
}

func (l *localFS) KeysPrefix(ctx context.Context, prefix string) ([]string, error) {
	const root = "."
	var res []string
	e := afero.Walk(l.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if path == root || info.IsDir() {
			return nil
		}
		key := toKey(path)
		if strings.HasPrefix(key, prefix) {
			res = append(res, key)
		}
		return nil
	})
	if e != nil {
		return nil, e
	}
	sort.Strings(res)
	return res, nil
}

func (l *localFS) Clear(ctx context.Context) error {
	keys, err := l.Keys(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := l.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (l *localFS) String() string {
	const localfs = "localfs"
	switch fs := l.fs.(type) {
	case *afero.BasePathFs:
		pp, err := fs.RealPath("")
		if err != nil {
			return localfs
		}
		return localfs + "@" + pp
	case *afero.MemMapFs:
		return "memory"
	default:
		return localfs
	}
}

/* thread-safe local storage implementation.
 * use a decorator pattern to implement atomic Put()s via atomicity of afero.Fs.Rename()
 * for those filesystems where Rename() is thread-safe:  files are placed in a staging area,
 * then Rename()d into place, so that readers never observe a partially written object.
 */

/* staging area key prefix and helper functions */
const (
	nestedPutStageName = ".put-stage"
)

func maybeInvalidKey(key string) error {
	pathComponents := strings.Split(strings.TrimLeft(key, "/"), "/")
	if pathComponents[0] == nestedPutStageName {
		return status.ErrInvalidResource.WrapMessage("key %q conflicts with put staging area name %q", key, nestedPutStageName)
	}
	return nil
}

func filterInvalidKeys(ks []string) []string {
	/* https://github.com/golang/go/wiki/SliceTricks#filtering-without-allocating */
	ksFiltered := ks[:0]
	for _, key := range ks {
		if err := maybeInvalidKey(key); err == nil {
			ksFiltered = append(ksFiltered, key)
		}
	}
	for i := len(ksFiltered); i < len(ks); i++ {
		ks[i] = ""
	}
	return ksFiltered
}

// NewAtomic creates a local file system store which stages every Put before moving it into place
func NewAtomic(fs afero.Fs) (storage.Store, error) {
	if fs == nil {
		fs = afero.NewBasePathFs(afero.NewOsFs(), DefaultPath)
	}
	/* the staging area exists within the afero.Fs itself */
	if err := fs.MkdirAll(nestedPutStageName, 0700); err != nil {
		return nil, fmt.Errorf("ensuring put staging directory for %q: %v", nestedPutStageName, err)
	}
	return &localFSAtomic{
		storeImpl: localFS{fs: fs},
	}, nil
}

type localFSAtomic struct {
	storeImpl localFS
	seq       uint64
}

/* implementing the Store interface is mostly a matter of wrapping the decorated localFs's
 * interface with helper functions.
 */

func (l *localFSAtomic) Has(ctx context.Context, key string) (bool, error) {
	if err := maybeInvalidKey(key); err != nil {
		return false, err
	}
	return l.storeImpl.Has(ctx, key)
}

func (l *localFSAtomic) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := maybeInvalidKey(key); err != nil {
		return nil, err
	}
	return l.storeImpl.Get(ctx, key)
}

func (l *localFSAtomic) Delete(ctx context.Context, key string) error {
	if err := maybeInvalidKey(key); err != nil {
		return err
	}
	return l.storeImpl.Delete(ctx, key)
}

func (l *localFSAtomic) Keys(ctx context.Context) ([]string, error) {
	return l.KeysPrefix(ctx, "")
}

func (l *localFSAtomic) KeysPrefix(ctx context.Context, prefix string) ([]string, error) {
	ks, err := l.storeImpl.KeysPrefix(ctx, prefix)
	if err != nil {
		return ks, err
	}
	return filterInvalidKeys(ks), nil
}

func (l *localFSAtomic) Clear(ctx context.Context) error {
	keys, err := l.Keys(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := l.storeImpl.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

/* the Put() implementation is the only part of the Store interface implemented
 * outside of the functional wrap design pattern
 */
func (l *localFSAtomic) Put(ctx context.Context, key string, source io.Reader, exclusive bool) error {
	if err := maybeInvalidKey(key); err != nil {
		return err
	}
	if exclusive {
		has, err := l.storeImpl.Has(ctx, key)
		if err != nil {
			return err
		}
		if has {
			return status.ErrExists.WrapMessage("key %q", key)
		}
	}

	// every writer gets its own staging object, so concurrent puts on the same key never interleave
	putStageKey := nestedPutStageName + "/" + strings.TrimLeft(key, "/") + "." + strconv.FormatUint(atomic.AddUint64(&l.seq, 1), 10)
	if err := l.storeImpl.Put(ctx, putStageKey, source, storage.OverWrite); err != nil {
		_ = l.storeImpl.Delete(ctx, putStageKey)
		return err
	}
	/* Rename() doesn't create directories automatically */
	if dir := filepath.Dir(toPath(key)); dir != "" && dir != "." {
		if err := l.storeImpl.fs.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("ensuring directories for %q: %v", key, err)
		}
	}
	return l.storeImpl.fs.Rename(toPath(putStageKey), toPath(key))
}

// dupe: localFs.String
func (l *localFSAtomic) String() string {
	return "atomic-" + l.storeImpl.String()
}
