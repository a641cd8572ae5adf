// Package cursor implements the Channel and Iterator: the streaming-pull
// machinery behind FT.AGGREGATE's cursor reads, including DEL teardown
// and the cursor mapping used by hybrid/vsim pulls.
//
// The channel is a bounded MPSC queue: I/O callbacks running on
// IORuntime reactor goroutines are the producers, and the single
// goroutine draining an Iterator (typically the coordinator's reducer
// worker) is the consumer. The producer side never blocks — correctness
// relies on the fanout being bounded (one entry per shard per round), so
// the channel is always sized to at least numShards.
package cursor
