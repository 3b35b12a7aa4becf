// Package cafs provides a content-addressable store.
//
// All content is indexed by its blake2b-256 hash. Each object is stored on the
// backend store using the hash as an object reference to the storage resource.
//
// Storage is append-only: an existing key is never written again, and concurrent
// puts of the same content coalesce into at most one physical write.
package cafs
