// Package dispatch runs bundle builds off the request path, on a bounded pool of workers.
//
// Requests for the same bundle identity are coalesced: a single build runs and every
// waiter receives its outcome. Builds for different identities run concurrently up to
// the number of workers; excess builds wait in a FIFO queue.
//
// A build is never tied to the context of a caller: a caller giving up stops waiting,
// while the build keeps running for the other waiters.
package dispatch
