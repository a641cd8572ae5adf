package connpool

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/dreamware/fanoutsearch/internal/topology"
)

// Pool is a fixed-size round-robin pool of Connections to one node. Get
// returns the next Connection whose state is Connected, or nil if none
// currently is.
type Pool struct {
	nodeID   string
	conns    []*Connection
	rrCursor uint64
}

// NewPool creates size Connections to endpoint and starts them
// connecting immediately. size is typically CONN_PER_SHARD (default:
// worker threads + 1).
func NewPool(nodeID string, endpoint topology.Endpoint, size int, schedule func(func()), logger *zap.Logger) *Pool {
	p := &Pool{nodeID: nodeID, conns: make([]*Connection, size)}
	for i := range p.conns {
		p.conns[i] = New(Opts{
			Endpoint: endpoint,
			Logger:   logger,
			Schedule: schedule,
		})
	}
	return p
}

// NodeID returns the node this pool connects to.
func (p *Pool) NodeID() string {
	return p.nodeID
}

// Get returns the next Connected connection in round-robin order, or nil
// if the pool currently has none. Connections that are not yet Connected
// are skipped, not waited on.
func (p *Pool) Get() *Connection {
	n := len(p.conns)
	if n == 0 {
		return nil
	}
	start := atomic.AddUint64(&p.rrCursor, 1)
	for i := 0; i < n; i++ {
		idx := (int(start) + i) % n
		if p.conns[idx].State() == Connected {
			return p.conns[idx]
		}
	}
	return nil
}

// Ready reports whether at least one connection in the pool is Connected.
// IORuntime readiness gating requires this to hold for every master pool
// before the runtime marks itself ready.
func (p *Pool) Ready() bool {
	for _, c := range p.conns {
		if c.State() == Connected {
			return true
		}
	}
	return false
}

// Size returns the configured pool size.
func (p *Pool) Size() int {
	return len(p.conns)
}

// Stop tears down every connection in the pool, blocking until each
// reaches Freeing.
func (p *Pool) Stop() {
	for _, c := range p.conns {
		c.Stop()
	}
}
