// Package core implements the build server.
//
// The service wires the content store, the feed and instruction registries, the
// optimistic join engine, the worker dispatch pool and the transform pipeline
// over a single storage sink.
//
// Feeds are stored as JSON descriptors, bundle content is stored by content hash.
// A bundle identity becomes known once its manifest is written, either by the join
// engine or by an explicit build request. Bundle descriptors are written last: their
// presence marks a bundle as ready.
package core
