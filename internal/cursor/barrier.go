package cursor

import "sync"

// CountBarrier implements the WITHCOUNT synchronization point: the
// consumer refuses to emit rows until every shard's first reply has
// arrived, accumulating totals atomically across shards.
type CountBarrier struct {
	mu               sync.Mutex
	numShards        int
	numResponded     int
	accumulatedTotal int64
	hasShardError    bool
	seen             map[int]bool
}

// NewCountBarrier creates a barrier awaiting numShards first replies.
func NewCountBarrier(numShards int) *CountBarrier {
	return &CountBarrier{numShards: numShards, seen: make(map[int]bool, numShards)}
}

// Notify records shardID's first reply. Only the first call for a given
// shardID counts; subsequent rounds from the same shard (additional
// cursor pages) do not double count its total.
func (b *CountBarrier) Notify(shardID int, total int64, isError bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.seen[shardID] {
		return
	}
	b.seen[shardID] = true
	b.numResponded++
	if isError {
		b.hasShardError = true
		return
	}
	b.accumulatedTotal += total
}

// Ready reports whether every shard has responded.
func (b *CountBarrier) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.numResponded == b.numShards
}

// HasShardError reports whether any shard's first reply was an error.
func (b *CountBarrier) HasShardError() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hasShardError
}

// Total returns the accumulated total across all shards that have
// responded successfully so far. Only meaningful once Ready() is true
// and HasShardError() is false.
func (b *CountBarrier) Total() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accumulatedTotal
}
