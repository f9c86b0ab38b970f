// Package locks provides a sharded per-key mutex used to serialize message
// handling per user. Two concurrent messages from the same user would
// otherwise race on the armed-gate check-then-clear sequence, letting one
// PIN confirmation consume a pending operation twice.
package locks

import (
	"hash/fnv"
	"sync"
)

const defaultShards = 256

// Keyed is a fixed pool of mutexes indexed by key hash. Distinct keys may
// share a shard; that only costs contention, never correctness.
type Keyed struct {
	shards []sync.Mutex
}

// NewKeyed creates a keyed lock pool. shards is rounded up to 1 when
// non-positive.
func NewKeyed(shards int) *Keyed {
	if shards <= 0 {
		shards = defaultShards
	}
	return &Keyed{shards: make([]sync.Mutex, shards)}
}

func (k *Keyed) shard(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &k.shards[int(h.Sum32())%len(k.shards)]
}

// Lock acquires the shard for key and returns its unlock func.
func (k *Keyed) Lock(key string) func() {
	m := k.shard(key)
	m.Lock()
	return m.Unlock
}
