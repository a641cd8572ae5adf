package cursor

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dreamware/fanoutsearch/internal/resp"
)

// ShardSender dispatches cmd to the shard at shardIndex, invoking onReply
// exactly once with the decoded reply or a non-nil error. Supplied by the
// coordinator layer, which knows how to map a shard index to a
// Connection; this package stays free of any direct ioruntime/connpool
// dependency so it can be tested against a fake sender.
type ShardSender func(shardIndex int, cmd *resp.Command, onReply func(reply resp.Reply, err error))

// shardState tracks one shard's cursor id and depletion status across
// rounds. The first round sends initialCmd (the full rewritten
// FT.AGGREGATE, carrying WITHCURSOR and the query itself); every round
// after that is a synthesized "_FT.CURSOR READ idx cursor_id" (or, once
// torn down, "_FT.CURSOR DEL idx cursor_id") built from idxArg and the
// cursor id the shard returned last.
type shardState struct {
	initialCmd   *resp.Command
	idxArg       []byte
	cursorID     int64
	clusterShard int // shard index passed to ShardSender; may differ from this state's position for mapping-sourced iterators
	started      bool
	depleted     bool
}

// Iterator streams replies across all shards for cursor-based reads.
// Ref count starts at 2 (reader + writer collective) and the iterator
// frees only once both sides release.
type Iterator struct {
	channel *Channel
	send    ShardSender

	mu        sync.Mutex
	shards    []*shardState
	pending   int // shards not yet depleted
	inProcess int // commands currently in flight

	refCount int32
	timedOut atomic.Bool
}

// Start creates an Iterator over numShards shards, clones perShardCmd for
// each, and dispatches the first round concurrently via send.
func Start(send ShardSender, perShardCmd *resp.Command, numShards int, channelCapacity int) *Iterator {
	it := &Iterator{
		channel:  NewChannel(channelCapacity),
		send:     send,
		shards:   make([]*shardState, numShards),
		pending:  numShards,
		refCount: 2,
	}
	for i := range it.shards {
		clone := perShardCmd.Clone()
		clone.TargetShard = i
		var idx []byte
		if args := clone.Args(); len(args) > 1 {
			idx = args[1]
		}
		it.shards[i] = &shardState{initialCmd: clone, idxArg: idx, clusterShard: i}
	}
	it.inProcess = numShards
	for i := range it.shards {
		it.dispatchShard(i)
	}
	return it
}

// cursorCommand builds the shard-private "_FT.CURSOR READ|DEL idx
// cursor_id" form used for every round after the first.
func cursorCommand(idxArg []byte, cursorID int64, sub string) *resp.Command {
	return resp.New("_FT.CURSOR", []byte(sub), idxArg, []byte(strconv.FormatInt(cursorID, 10)))
}

// dispatchShard dispatches shard state at position i, over the cluster
// shard it.shards[i].clusterShard.
func (it *Iterator) dispatchShard(i int) {
	it.mu.Lock()
	st := it.shards[i]
	shardIndex := st.clusterShard
	var cmd *resp.Command
	switch {
	case !st.started:
		st.started = true
		cmd = st.initialCmd
	case it.timedOut.Load():
		cmd = cursorCommand(st.idxArg, st.cursorID, "DEL")
	default:
		cmd = cursorCommand(st.idxArg, st.cursorID, "READ")
	}
	cmd.TargetShard = shardIndex
	it.mu.Unlock()

	it.send(shardIndex, cmd, func(reply resp.Reply, err error) {
		it.onReply(i, reply, err)
	})
}

// dispatchTeardown sends an unconditional "_FT.CURSOR DEL idx cursor_id"
// for the shard state at position i, used by Release when the reader
// walks away before every shard is naturally depleted.
func (it *Iterator) dispatchTeardown(i int) {
	it.mu.Lock()
	st := it.shards[i]
	shardIndex := st.clusterShard
	cmd := cursorCommand(st.idxArg, st.cursorID, "DEL")
	cmd.TargetShard = shardIndex
	it.mu.Unlock()

	it.send(shardIndex, cmd, func(reply resp.Reply, err error) {
		it.onReply(i, reply, err)
	})
}

// onReply is invoked once per shard state per round, keyed by position
// (not cluster shard index — see shardState.clusterShard), on whatever
// goroutine the ShardSender delivers on (the owning IORuntime's reactor,
// per the connpool.ReplyFunc contract).
func (it *Iterator) onReply(i int, reply resp.Reply, err error) {
	it.channel.Push(Entry{ShardIndex: i, Reply: reply, Err: err})

	it.mu.Lock()
	st := it.shards[i]
	cursorID, found := extractCursorID(reply)
	if found {
		st.cursorID = cursorID
	}
	depleted := err != nil || (found && cursorID == 0)
	if depleted && !st.depleted {
		st.depleted = true
		it.pending--
	}
	it.inProcess--
	it.mu.Unlock()
	// inProcess reaching 0 is observed by the consumer through
	// MaybeTriggerNext, not signaled here — the channel stays open
	// across rounds and is only closed when the reference count drops
	// to zero (see release).
}

// extractCursorID pulls the trailing cursor id out of a decoded reply:
// RESP2 carries it as the reply's last array element; RESP3 carries it
// as the "cursor" key in the results map.
func extractCursorID(reply resp.Reply) (int64, bool) {
	if arr, ok := resp.AsArray(reply); ok && len(arr) >= 2 {
		if id, ok := resp.AsInt(arr[len(arr)-1]); ok {
			return id, true
		}
	}
	if m, ok := resp.AsMap(reply); ok {
		if id, ok := resp.AsInt(m["cursor"]); ok {
			return id, true
		}
	}
	return 0, false
}

// isCursorEOF reports whether a decoded reply's cursor id is 0.
func isCursorEOF(reply resp.Reply) bool {
	id, ok := extractCursorID(reply)
	return ok && id == 0
}

// Pop drains the next entry from the channel, respecting deadline.
func (it *Iterator) Pop(deadline time.Time) (Entry, bool, error) {
	return it.channel.Pop(deadline)
}

// SetTimedOut marks the iterator timed out; subsequent dispatch rounds
// issue CURSOR DEL instead of CURSOR READ for any shard still pending
// ("Timeout" behavior).
func (it *Iterator) SetTimedOut() {
	it.timedOut.Store(true)
}

// MaybeTriggerNext implements consumer-side pull
// protocol between channel pops:
//   - if any command is still in flight, there is nothing to do.
//   - else if the channel already holds more than threshold entries,
//     report that more data is coming without starting a new round.
//   - else if any shard is still pending, start one more round.
//   - else report whether the channel still has buffered entries.
func (it *Iterator) MaybeTriggerNext(threshold int) (moreComing bool) {
	it.mu.Lock()
	if it.inProcess > 0 {
		it.mu.Unlock()
		return true
	}
	if it.channel.Len() > threshold {
		it.mu.Unlock()
		return true
	}
	if it.pending == 0 {
		more := it.channel.Len() > 0
		it.mu.Unlock()
		return more
	}
	it.inProcess = it.pending
	atomic.AddInt32(&it.refCount, 1) // writer-side ref for this round
	toDispatch := make([]int, 0, it.pending)
	for i, st := range it.shards {
		if !st.depleted {
			toDispatch = append(toDispatch, i)
		}
	}
	it.mu.Unlock()

	for _, i := range toDispatch {
		it.dispatchShard(i)
	}
	it.release() // drop this round's write ref once dispatched; in-flight
	// replies hold the iterator alive via onReply's channel push, not via
	// refCount: refCount tracks reader+writer collective releases rather
	// than per-reply liveness.
	return true
}

// Release drops the reader's reference. If every shard is already
// depleted, the writer collective has nothing outstanding and its
// reference is dropped too, freeing the iterator. If pending shards
// remain, an unconditional CURSOR DEL round is dispatched for every
// undepleted shard under a fresh write ref; the iterator frees only once
// that ref, too, drops to zero.
func (it *Iterator) Release() {
	it.mu.Lock()
	if it.pending == 0 {
		it.mu.Unlock()
		it.release() // reader
		it.release() // writer collective
		return
	}
	toDispatch := make([]int, 0, it.pending)
	for i, st := range it.shards {
		if !st.depleted {
			toDispatch = append(toDispatch, i)
		}
	}
	it.inProcess = len(toDispatch)
	atomic.AddInt32(&it.refCount, 1)
	it.mu.Unlock()

	for _, i := range toDispatch {
		it.dispatchTeardown(i)
	}
	it.release()
}

// release drops one reference; at zero the channel is freed.
func (it *Iterator) release() {
	if atomic.AddInt32(&it.refCount, -1) == 0 {
		it.channel.Close()
	}
}

// RefCount reports the current reference count, used by tests asserting
// it never goes negative and reaches 0 exactly once.
func (it *Iterator) RefCount() int32 {
	return atomic.LoadInt32(&it.refCount)
}
