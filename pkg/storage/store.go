// Copyright © 2018 One Concern

package storage

import (
	"bytes"
	"context"
	"io"
	"mime"
	"path"
)

const (
	// OverWrite replaces any existing object under the same key
	OverWrite = false

	// NoOverWrite fails with status.ErrExists when the key is already present
	NoOverWrite = true

	// MaxObjectSizeInMemory bounds the size of objects read as a whole
	MaxObjectSizeInMemory = 256 * 1024 * 1024
)

// Store implementations know how to write entries to a K/V model.
//
// Typically this is something file system-like. Examples are S3, local FS, NFS, ...
// Implementations of this interface are assumed to be fairly simple.
//
// Implementations return status.ErrNotExists from Get when the key is missing, and
// status.ErrExists from Put when exclusive is set and the key is already present.
type Store interface {
	String() string
	Has(context.Context, string) (bool, error)
	Get(context.Context, string) (io.ReadCloser, error)
	Put(ctx context.Context, key string, rdr io.Reader, exclusive bool) error
	Delete(context.Context, string) error
	Keys(context.Context) ([]string, error)
	KeysPrefix(ctx context.Context, prefix string) ([]string, error)
	Clear(context.Context) error
}

// ContentType guesses the MIME type of an object from the extension of its key.
func ContentType(key string) string {
	switch path.Ext(key) {
	case ".js":
		return "application/javascript; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".json":
		return "application/json"
	}
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// ReadAll fetches an object and reads it in memory.
func ReadAll(ctx context.Context, store Store, key string) ([]byte, error) {
	rdr, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rdr.Close()

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(rdr, MaxObjectSizeInMemory+1))
	if err != nil {
		return nil, err
	}
	if n > MaxObjectSizeInMemory {
		return nil, errObjectTooBig(key)
	}
	return buf.Bytes(), nil
}

// PutBytes writes a buffer under some key.
func PutBytes(ctx context.Context, store Store, key string, data []byte, exclusive bool) error {
	return store.Put(ctx, key, bytes.NewReader(data), exclusive)
}
