// Package clusterio implements Cluster: a fixed pool
// of IORuntimes with round-robin request assignment, and topology
// broadcast to every runtime. Grounded on the fixed-worker-set wiring in
// johnjansen-torua's cmd/coordinator/main.go server struct, generalized
// from a single HTTP mux to a pool of reactor runtimes.
package clusterio

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dreamware/fanoutsearch/internal/ioruntime"
	"github.com/dreamware/fanoutsearch/internal/topology"
)

// Cluster owns a fixed-size set of IORuntimes, selected round-robin for
// each new request.
type Cluster struct {
	runtimes []*ioruntime.Runtime
	rrCursor uint64
	logger   *zap.Logger
}

// Config bundles the construction-time parameters for a Cluster.
type Config struct {
	NumRuntimes    int
	ConnPerShard   int
	MaxQueueLen    int
	FailureTimeout time.Duration // TOPOLOGY_VALIDATION_TIMEOUT; 0 = unlimited
	Logger         *zap.Logger
}

// New creates a Cluster with a fixed N = cfg.NumRuntimes runtimes. N never
// changes for the lifetime of the Cluster.
func New(cfg Config) *Cluster {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	c := &Cluster{
		runtimes: make([]*ioruntime.Runtime, cfg.NumRuntimes),
		logger:   cfg.Logger,
	}
	for i := range c.runtimes {
		c.runtimes[i] = ioruntime.New(ioruntime.Config{
			ID:             i,
			MaxQueueLen:    cfg.MaxQueueLen,
			ConnPerShard:   cfg.ConnPerShard,
			FailureTimeout: cfg.FailureTimeout,
			Logger:         cfg.Logger,
		})
	}
	return c
}

// NumRuntimes returns N, fixed at construction.
func (c *Cluster) NumRuntimes() int {
	return len(c.runtimes)
}

// Next selects the next IORuntime in round-robin order and advances the
// cursor modulo N.
func (c *Cluster) Next() *ioruntime.Runtime {
	idx := atomic.AddUint64(&c.rrCursor, 1) % uint64(len(c.runtimes))
	return c.runtimes[idx]
}

// Runtime returns the runtime at index i directly, used by tests and by
// components that need a stable runtime rather than round robin.
func (c *Cluster) Runtime(i int) *ioruntime.Runtime {
	return c.runtimes[i]
}

// Ready reports whether every runtime in the cluster is ready.
func (c *Cluster) Ready() bool {
	for _, rt := range c.runtimes {
		if !rt.Ready() {
			return false
		}
	}
	return true
}

// PublishTopology broadcasts t to every runtime concurrently: since
// *topology.Topology is immutable and garbage collected rather than
// reference-counted in Go, every runtime simply receives the same
// pointer; there is no ownership transfer to express. ApplyTopology never
// errors, so the errgroup here is purely a wait-group with a fixed
// concurrency shape matching Stop's.
func (c *Cluster) PublishTopology(t *topology.Topology) {
	var g errgroup.Group
	for _, rt := range c.runtimes {
		rt := rt
		g.Go(func() error {
			rt.ApplyTopology(t)
			return nil
		})
	}
	_ = g.Wait()
}

// Stop tears down every runtime in the cluster concurrently; each
// runtime's teardown disconnects its own set of shard connections
// independently of the others, so there is no reason to serialize it.
func (c *Cluster) Stop() {
	var g errgroup.Group
	for _, rt := range c.runtimes {
		rt := rt
		g.Go(func() error {
			rt.Stop()
			return nil
		})
	}
	_ = g.Wait()
}
