// Package wal provides a write-ahead log of publishes.
//
// The log keeps track of all changes to the registries, that is,
// which feed was published for which tag and which layout changed its instruction, and when.
//
// Entries are identified by K-sortable tokens (ksuid): listing the log from a token
// yields the entries written after it, in order.
package wal
