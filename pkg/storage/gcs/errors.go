package gcs

import (
	"net/http"
	"strings"

	gcsStorage "cloud.google.com/go/storage"
	"github.com/oneconcern/podbundle/pkg/errors"
	"github.com/oneconcern/podbundle/pkg/storage/status"
	"google.golang.org/api/googleapi"
)

func apiErrors(err *googleapi.Error) error {
	switch err.Code {
	case http.StatusBadRequest:
		if strings.Contains(err.Body, "bucket is not valid") || strings.Contains(err.Message, "Invalid bucket name") {
			return status.ErrInvalidResource.Wrap(err)
		}
		return status.ErrStorageAPI.Wrap(err)
	case http.StatusUnauthorized:
		return status.ErrUnauthorized.Wrap(err)
	case http.StatusForbidden:
		return status.ErrForbidden.Wrap(err)
	case http.StatusNotFound:
		return status.ErrNotFound.Wrap(err)
	case http.StatusPreconditionFailed:
		// a DoesNotExist precondition failed: the object is already there
		return status.ErrExists.Wrap(err)
	default:
		return status.ErrStorageAPI.Wrap(err)
	}
}

func toSentinelErrors(err error) error {
	// return sentinel errors defined by the status package
	if err == nil {
		return nil
	}
	if errors.Is(err, gcsStorage.ErrObjectNotExist) {
		return status.ErrNotExists.Wrap(err)
	}
	if errors.Is(err, gcsStorage.ErrBucketNotExist) {
		return status.ErrInvalidResource.Wrap(err)
	}
	var typedErr *googleapi.Error
	if errors.As(err, &typedErr) {
		return apiErrors(typedErr)
	}
	return err
}
