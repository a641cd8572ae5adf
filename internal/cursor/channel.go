package cursor

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/dreamware/fanoutsearch/internal/resp"
)

// ErrPopTimeout is returned by Channel.Pop when the deadline elapses
// before an entry or close is observed.
var ErrPopTimeout = errors.New("cursor: pop deadline exceeded")

// Entry is one shard's contribution to a Channel, normalized so the
// consumer sees shard errors in order alongside successful rows: the
// Iterator folds shard errors into channel entries rather than
// surfacing them out of band.
type Entry struct {
	ShardIndex int
	Reply      resp.Reply
	Err        error
}

// Channel is a bounded MPSC buffer of Entries with a closed flag.
// Producers (I/O callbacks) never block on Push — correctness relies on
// the caller sizing the channel to the maximum possible in-flight fanout
// per round.
type Channel struct {
	ch     chan Entry
	closed atomic.Bool
}

// NewChannel creates a Channel buffered for capacity entries.
func NewChannel(capacity int) *Channel {
	if capacity < 1 {
		capacity = 1
	}
	return &Channel{ch: make(chan Entry, capacity)}
}

// Push enqueues e. It never blocks; if the channel is already closed the
// entry is dropped (the iterator only pushes from callbacks scheduled
// before Close, but a defensive drop avoids a panic on send-to-closed).
func (c *Channel) Push(e Entry) {
	if c.closed.Load() {
		return
	}
	select {
	case c.ch <- e:
	default:
		// Capacity was sized incorrectly by the caller; treated as a
		// programming error, not a runtime condition to recover from
		// gracefully, so the entry is dropped rather than blocking a
		// reactor goroutine.
	}
}

// Pop blocks until an entry is available, the channel closes, or
// deadline elapses. ok is false when the channel closed with nothing
// left to drain (err nil), or when the deadline elapsed first (err is
// ErrPopTimeout).
func (c *Channel) Pop(deadline time.Time) (e Entry, ok bool, err error) {
	var timer *time.Timer
	var timeoutCh <-chan time.Time
	if !deadline.IsZero() {
		d := time.Until(deadline)
		if d <= 0 {
			select {
			case e, ok = <-c.ch:
				return e, ok, nil
			default:
				return Entry{}, false, ErrPopTimeout
			}
		}
		timer = time.NewTimer(d)
		defer timer.Stop()
		timeoutCh = timer.C
	}
	select {
	case e, ok = <-c.ch:
		return e, ok, nil
	case <-timeoutCh:
		return Entry{}, false, ErrPopTimeout
	}
}

// Len reports the number of entries currently buffered, used by
// MaybeTriggerNext's threshold check.
func (c *Channel) Len() int {
	return len(c.ch)
}

// Close marks the channel closed; after Close, Pop drains any remaining
// buffered entries and then returns ok=false.
func (c *Channel) Close() {
	if c.closed.CompareAndSwap(false, true) {
		close(c.ch)
	}
}
