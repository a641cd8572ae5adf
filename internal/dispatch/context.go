package dispatch

import (
	"sync"

	"github.com/dreamware/fanoutsearch/internal/resp"
)

// ReplyEntry is one shard's contribution to a RequestContext's reply
// buffer, tagged with the shard index it came from (reducers need the
// index for per-shard accounting like WITHCOUNT's barrier).
type ReplyEntry struct {
	ShardIndex int
	Reply      resp.Reply
	Err        error
}

// ReducerFunc merges the accumulated replies of a completed (or
// zero-expected) RequestContext into a final reply.
type ReducerFunc func(ctx *Context) (resp.Reply, error)

// Context is the per-dispatched-request state: the reply slice grows by
// doubling as replies arrive rather than being pre-sized.
type Context struct {
	mu       sync.Mutex
	replies  []ReplyEntry
	expected int
	replied  int
	errored  int
	complete bool

	reducer ReducerFunc
	Private interface{}

	done   chan struct{}
	result resp.Reply
	err    error
}

// NewContext creates a Context bound to reducer. If expected is 0 at
// creation (e.g. a fanout against a zero-shard topology), the context
// completes immediately and invokes the reducer with an empty reply set
// — whether that yields an error is up to the reducer, not a special
// case in the unblock path.
func NewContext(expected int, reducer ReducerFunc) *Context {
	c := &Context{
		expected: expected,
		reducer:  reducer,
		done:     make(chan struct{}),
	}
	if expected == 0 {
		c.runReducer()
	}
	return c
}

// AddReply records one shard's reply or error. When replied+errored
// reaches expected, the reducer runs exactly once.
func (c *Context) AddReply(shardIndex int, reply resp.Reply, err error) {
	c.mu.Lock()
	if c.complete {
		c.mu.Unlock()
		return
	}
	c.replies = append(c.replies, ReplyEntry{ShardIndex: shardIndex, Reply: reply, Err: err})
	if err != nil {
		c.errored++
	} else {
		c.replied++
	}
	ready := c.replied+c.errored >= c.expected
	c.mu.Unlock()

	if ready {
		c.runReducer()
	}
}

// runReducer invokes the bound reducer exactly once and unblocks Wait.
func (c *Context) runReducer() {
	c.mu.Lock()
	if c.complete {
		c.mu.Unlock()
		return
	}
	c.complete = true
	c.mu.Unlock()

	result, err := c.reducer(c)
	c.mu.Lock()
	c.result = result
	c.err = err
	c.mu.Unlock()
	close(c.done)
}

// Done returns a channel closed once the reducer has run.
func (c *Context) Done() <-chan struct{} {
	return c.done
}

// Result returns the reducer's output. Only valid after Done is closed.
func (c *Context) Result() (resp.Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result, c.err
}

// Replies returns a snapshot of the reply entries accumulated so far.
// Reducers call this after Done closes, when no further writer can
// append.
func (c *Context) Replies() []ReplyEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ReplyEntry, len(c.replies))
	copy(out, c.replies)
	return out
}

// Expected returns the expected reply count fixed at construction.
func (c *Context) Expected() int {
	return c.expected
}
