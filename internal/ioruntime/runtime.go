package ioruntime

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/fanoutsearch/internal/connmgr"
	"github.com/dreamware/fanoutsearch/internal/topology"
)

// connectivityPollInterval is the fixed re-poll period while a runtime is
// not yet ready: a timer re-polls connectivity on 1 ms intervals.
const connectivityPollInterval = time.Millisecond

// StateFlags tracks the monotone lazy-start sequence: !started ⇒
// !running ⇒ !ready.
type StateFlags struct {
	ThreadStarted atomic.Bool
	ThreadRunning atomic.Bool
	ThreadReady   atomic.Bool
}

// Runtime is one reactor thread plus its ConnectionManager, current
// Topology, and WorkQueue.
type Runtime struct {
	ID int

	flags StateFlags
	queue *WorkQueue
	conns *connmgr.Manager

	topo            atomic.Pointer[topology.Topology]
	pendingTopology atomic.Pointer[topology.Topology]

	failureTimeout time.Duration // TOPOLOGY_VALIDATION_TIMEOUT; 0 = unlimited

	parkMu  sync.Mutex
	parked  []func()

	startOnce sync.Once
	wakeCh    chan struct{}
	stopCh    chan struct{}

	logger *zap.Logger
}

// Config bundles the construction-time parameters for a Runtime.
type Config struct {
	ID             int
	MaxQueueLen    int
	ConnPerShard   int
	FailureTimeout time.Duration
	Logger         *zap.Logger
}

// New creates a Runtime. Its reactor goroutine does not start until the
// first Schedule call (lazy thread start).
func New(cfg Config) *Runtime {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runtime{
		ID:             cfg.ID,
		queue:          NewWorkQueue(cfg.MaxQueueLen),
		failureTimeout: cfg.FailureTimeout,
		wakeCh:         make(chan struct{}, 1),
		stopCh:         make(chan struct{}),
		logger:         logger.With(zap.Int("runtime_id", cfg.ID)),
	}
	r.conns = connmgr.New(cfg.ConnPerShard, r.Schedule, r.logger)
	return r
}

// ConnManager exposes the runtime's ConnectionManager for dispatch.
func (r *Runtime) ConnManager() *connmgr.Manager {
	return r.conns
}

// Topology returns the currently applied topology, or nil if none has
// been applied yet.
func (r *Runtime) Topology() *topology.Topology {
	return r.topo.Load()
}

// Ready reports whether this runtime has a Connected connection to every
// master in its current topology.
func (r *Runtime) Ready() bool {
	return r.flags.ThreadReady.Load()
}

// Schedule appends cb to the WorkQueue and starts the reactor goroutine
// if this is the first call. If the queue is at capacity, Push fails and
// the caller must retry; we spin a short retry loop here rather than
// surface backpressure to callers, since retry is meant to stay
// transparent from the scheduler's perspective.
func (r *Runtime) Schedule(cb func()) {
	r.startOnce.Do(r.start)
	for !r.queue.Push(cb) {
		if r.queue.Misses() > 0 && r.queue.Misses()%100 == 0 {
			r.logger.Warn("work queue repeatedly full", zap.Int("misses", r.queue.Misses()))
		}
		time.Sleep(time.Millisecond)
	}
	select {
	case r.wakeCh <- struct{}{}:
	default:
	}
}

func (r *Runtime) start() {
	r.flags.ThreadStarted.Store(true)
	go r.loop()
}

func (r *Runtime) loop() {
	r.flags.ThreadRunning.Store(true)
	pollTicker := time.NewTicker(connectivityPollInterval)
	defer pollTicker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-r.wakeCh:
			r.drainQueue()
		case <-pollTicker.C:
			r.maybeBecomeReady()
		}
	}
}

func (r *Runtime) drainQueue() {
	for {
		cb := r.queue.Pop()
		if cb == nil {
			return
		}
		cb()
	}
}

// ApplyTopology hands the runtime a new topology via an atomic handoff
// slot: the pending_topology slot always holds the latest write,
// dropping any intermediate topology nobody ever applied.
func (r *Runtime) ApplyTopology(t *topology.Topology) {
	r.pendingTopology.Store(t)
	r.Schedule(r.applyPendingTopology)
}

// applyPendingTopology runs on the reactor goroutine: exchange the
// pending slot, diff old vs new node sets, add/disconnect pools
// accordingly, and start the readiness-gating timers.
func (r *Runtime) applyPendingTopology() {
	next := r.pendingTopology.Swap(nil)
	if next == nil {
		return
	}
	r.flags.ThreadReady.Store(false)

	prev := r.topo.Load()
	added, removed := topology.Diff(prev, next)

	addSet := make(map[string]topology.Endpoint, len(added))
	for _, s := range next.Shards() {
		for _, id := range added {
			if s.NodeID == id {
				addSet[id] = s.Endpoint
			}
		}
	}
	r.conns.AddAll(addSet)
	r.conns.DisconnectAll(removed)

	r.topo.Store(next)

	if r.failureTimeout > 0 {
		time.AfterFunc(r.failureTimeout, r.forceReady)
	}
}

// maybeBecomeReady runs on every connectivity-poll tick; it promotes the
// runtime to ready once every master pool in the current topology has a
// Connected connection, and then flushes anything parked while !ready.
func (r *Runtime) maybeBecomeReady() {
	if r.flags.ThreadReady.Load() {
		return
	}
	t := r.topo.Load()
	if t == nil {
		return
	}
	if !r.conns.AllReady() {
		return
	}
	r.flags.ThreadReady.Store(true)
	r.flushParked()
}

// forceReady implements the failure-timer path: after
// TOPOLOGY_VALIDATION_TIMEOUT, parked work unblocks unconditionally even
// against an incomplete topology.
func (r *Runtime) forceReady() {
	if r.flags.ThreadReady.Load() {
		return
	}
	r.logger.Warn("topology validation timeout, unblocking parked work against incomplete topology")
	r.flags.ThreadReady.Store(true)
	r.flushParked()
}

// RunWhenReady schedules fn to run on the reactor once the runtime is
// ready. If already ready, it runs on the next loop tick like any other
// scheduled callback; otherwise it is parked and flushed on readiness or
// on failure-timer expiry.
func (r *Runtime) RunWhenReady(fn func()) {
	if r.Ready() {
		r.Schedule(fn)
		return
	}
	r.parkMu.Lock()
	r.parked = append(r.parked, fn)
	r.parkMu.Unlock()
}

func (r *Runtime) flushParked() {
	r.parkMu.Lock()
	items := r.parked
	r.parked = nil
	r.parkMu.Unlock()
	for _, fn := range items {
		r.Schedule(fn)
	}
}

// Stop halts the reactor goroutine and tears down all connections.
func (r *Runtime) Stop() {
	close(r.stopCh)
	for _, id := range r.conns.NodeIDs() {
		r.conns.Disconnect(id)
	}
}
