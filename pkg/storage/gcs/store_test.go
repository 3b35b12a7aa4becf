// Copyright © 2018 One Concern

package gcs

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	gcsStorage "cloud.google.com/go/storage"
	"github.com/oneconcern/podbundle/pkg/errors"
	"github.com/oneconcern/podbundle/pkg/storage/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func TestSentinelErrors(t *testing.T) {
	for _, toPin := range []struct {
		Name     string
		Err      error
		Expected error
	}{
		{Name: "no object", Err: gcsStorage.ErrObjectNotExist, Expected: status.ErrNotExists},
		{Name: "wrapped no object", Err: fmt.Errorf("reading: %w", gcsStorage.ErrObjectNotExist), Expected: status.ErrNotExists},
		{Name: "no bucket", Err: gcsStorage.ErrBucketNotExist, Expected: status.ErrInvalidResource},
		{Name: "unauthorized", Err: &googleapi.Error{Code: http.StatusUnauthorized}, Expected: status.ErrUnauthorized},
		{Name: "forbidden", Err: &googleapi.Error{Code: http.StatusForbidden}, Expected: status.ErrForbidden},
		{Name: "not found", Err: &googleapi.Error{Code: http.StatusNotFound}, Expected: status.ErrNotFound},
		{Name: "precondition", Err: &googleapi.Error{Code: http.StatusPreconditionFailed}, Expected: status.ErrExists},
		{Name: "bad bucket", Err: &googleapi.Error{Code: http.StatusBadRequest, Body: "bucket is not valid"}, Expected: status.ErrInvalidResource},
		{Name: "bad request", Err: &googleapi.Error{Code: http.StatusBadRequest}, Expected: status.ErrStorageAPI},
		{Name: "unavailable", Err: &googleapi.Error{Code: http.StatusServiceUnavailable}, Expected: status.ErrStorageAPI},
	} {
		testCase := toPin
		t.Run(testCase.Name, func(t *testing.T) {
			err := toSentinelErrors(testCase.Err)
			require.Error(t, err)
			assert.Truef(t, errors.Is(err, testCase.Expected), "got %v", err)
		})
	}

	require.NoError(t, toSentinelErrors(nil))
	plain := fmt.Errorf("plain")
	require.Equal(t, plain, toSentinelErrors(plain))
}

func TestNewWithPrefix(t *testing.T) {
	store, err := New(context.Background(), "assets-bucket/podbundle/", Endpoint("http://127.0.0.1:4443/storage/v1/"))
	require.NoError(t, err)
	assert.Equal(t, "gcs://assets-bucket/podbundle/", store.String())

	g := store.(*gcs)
	assert.Equal(t, "podbundle/feeds/abc.json", g.objectName("/feeds/abc.json"))

	bucket, prefix := splitBucket("plain")
	assert.Equal(t, "plain", bucket)
	assert.Empty(t, prefix)
}
