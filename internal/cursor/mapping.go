package cursor

// ShardCursorMapping pairs a shard with a cursor id already opened by a
// co-running producer, for hybrid/vsim pulls. The mappings come from a
// MappingSource, which the producer may invalidate.
type ShardCursorMapping struct {
	ShardID  int
	CursorID int64
}

// MappingSource is checked once, when StartFromMapping is called: if the
// source has been invalidated (ok is false) or holds no mappings,
// StartFromMapping returns nil without any shard dispatch.
type MappingSource interface {
	Mappings() ([]ShardCursorMapping, bool)
}

// StartFromMapping builds an Iterator whose initial round reads directly
// from cursors a co-running producer already opened, one per entry in
// src's mapping, using idxArg for the index name every round needs. If
// src has been invalidated, it returns nil and dispatches nothing.
func StartFromMapping(send ShardSender, idxArg []byte, src MappingSource, channelCapacity int) *Iterator {
	mappings, ok := src.Mappings()
	if !ok || len(mappings) == 0 {
		return nil
	}

	it := &Iterator{
		channel:  NewChannel(channelCapacity),
		send:     send,
		shards:   make([]*shardState, len(mappings)),
		pending:  len(mappings),
		refCount: 2,
	}
	for i, m := range mappings {
		it.shards[i] = &shardState{idxArg: idxArg, cursorID: m.CursorID, clusterShard: m.ShardID, started: true}
	}
	it.inProcess = len(mappings)
	for i := range it.shards {
		it.dispatchShard(i)
	}
	return it
}
