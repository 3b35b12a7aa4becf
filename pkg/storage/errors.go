package storage

import "github.com/oneconcern/podbundle/pkg/storage/status"

func errObjectTooBig(key string) error {
	return status.ErrObjectTooBig.WrapMessage("key %q", key)
}
