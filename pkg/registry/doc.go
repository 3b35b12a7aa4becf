// Package registry tracks the latest published feed per podlet tag and the latest
// bundling instruction per layout.
//
// Registries are last-write-wins maps without history. Keys are spread over shards,
// each guarded by its own lock, so that publishes for unrelated keys do not contend.
// Every publish notifies the registered listeners once the new value is visible.
package registry
