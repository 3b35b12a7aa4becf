// Copyright © 2018 One Concern

// Package storage provides interface to handle backend storage objects.
//
// This package supports the following backends:
//   - GCS (Google)
//   - S3 (AWS)
//   - local file system, or memory (for tests and ephemeral servers)
//
// Feeds, bundles and registry state are all written through this interface, so the
// build server never depends on which backend holds the bytes.
package storage
