package registry

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// DefaultShards is the default number of lock shards of a registry
const DefaultShards = 64

type shard[V any] struct {
	mx     sync.RWMutex
	values map[string]V
}

// table is a sharded map with one lock per shard
type table[V any] struct {
	shards []*shard[V]
}

func newTable[V any](shards int) *table[V] {
	if shards < 1 {
		shards = 1
	}
	t := &table[V]{shards: make([]*shard[V], shards)}
	for i := range t.shards {
		t.shards[i] = &shard[V]{values: make(map[string]V)}
	}
	return t
}

func (t *table[V]) shardFor(key string) *shard[V] {
	return t.shards[xxhash.Sum64String(key)%uint64(len(t.shards))]
}

func (t *table[V]) get(key string) (V, bool) {
	s := t.shardFor(key)
	s.mx.RLock()
	defer s.mx.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// update sets a value under the shard lock, provided that commit succeeds first.
// It returns the previous value.
func (t *table[V]) update(key string, value V, commit func() error) (V, bool, error) {
	s := t.shardFor(key)
	s.mx.Lock()
	defer s.mx.Unlock()

	previous, had := s.values[key]
	if commit != nil {
		if err := commit(); err != nil {
			return previous, had, err
		}
	}
	s.values[key] = value
	return previous, had, nil
}

// rangeAll iterates over a snapshot of each shard
func (t *table[V]) rangeAll(fn func(string, V) bool) {
	for _, s := range t.shards {
		s.mx.RLock()
		snapshot := make(map[string]V, len(s.values))
		for k, v := range s.values {
			snapshot[k] = v
		}
		s.mx.RUnlock()

		for k, v := range snapshot {
			if !fn(k, v) {
				return
			}
		}
	}
}
