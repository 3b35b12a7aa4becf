// Package status exports errors produced by the build server.
//
// Every error returned by the core service and its components matches one of these
// sentinels with errors.Is. The HTTP binding maps them to status codes.
package status

import (
	"github.com/oneconcern/podbundle/pkg/errors"
)

var (
	// ErrNotFound indicates an unknown feed or bundle identity
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates a malformed publish payload. It is returned before any registry is touched.
	ErrValidation = errors.New("validation failed")

	// ErrTransform indicates that a source file could not be transformed. It fails the build of a single identity.
	ErrTransform = errors.New("transform failed")

	// ErrStorage indicates that the storage sink is unavailable or failed
	ErrStorage = errors.New("storage error")

	// ErrClosed indicates that the build pool has been shut down
	ErrClosed = errors.New("build pool closed")
)
