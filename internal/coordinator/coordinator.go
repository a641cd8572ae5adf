package coordinator

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/fanoutsearch/internal/clusterio"
	"github.com/dreamware/fanoutsearch/internal/config"
	"github.com/dreamware/fanoutsearch/internal/cursor"
	"github.com/dreamware/fanoutsearch/internal/ioruntime"
	"github.com/dreamware/fanoutsearch/internal/resp"
	"github.com/dreamware/fanoutsearch/internal/telemetry"
	"github.com/dreamware/fanoutsearch/internal/topology"
)

// Coordinator is the top-level object a RESP front-end drives: one call to
// Execute per client command.
type Coordinator struct {
	cluster *clusterio.Cluster
	cfg     config.Config
	metrics *telemetry.Metrics
	log     *zap.Logger

	topo atomic.Pointer[topology.Topology]
}

// New builds a Coordinator whose Cluster has cfg.SearchThreads IORuntimes,
// each with a cfg.ConnPerShard-sized connection pool per shard.
func New(cfg config.Config, metrics *telemetry.Metrics, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	cluster := clusterio.New(clusterio.Config{
		NumRuntimes:    cfg.SearchThreads,
		ConnPerShard:   cfg.ConnPerShard,
		FailureTimeout: cfg.TopologyValidationTimeout,
		Logger:         log,
	})
	return &Coordinator{cluster: cluster, cfg: cfg, metrics: metrics, log: log}
}

// ApplyTopology publishes t to every runtime in the cluster and records it
// as the Coordinator's own view, used to size fanouts and cursor iterators
// without first picking a runtime.
func (c *Coordinator) ApplyTopology(t *topology.Topology) {
	c.cluster.PublishTopology(t)
	c.topo.Store(t)
	if c.metrics != nil {
		c.metrics.TopologyEpoch.Inc()
	}
}

// Topology returns the Coordinator's current topology, or nil if none has
// ever been applied.
func (c *Coordinator) Topology() *topology.Topology {
	return c.topo.Load()
}

// Ready reports whether every runtime in the cluster has a Connected
// connection to every master in the current topology.
func (c *Coordinator) Ready() bool {
	return c.cluster.Ready()
}

// Stop tears down every runtime in the cluster.
func (c *Coordinator) Stop() {
	c.cluster.Stop()
}

// shardSender adapts rt's runtime-local connection manager into the
// cursor.ShardSender shape RunAggregate's Iterator needs: a shard index is
// resolved against rt's own topology view (not c.topo directly) since
// reads and writes to a runtime's ConnManager must stay on that runtime.
func (c *Coordinator) shardSender(rt *ioruntime.Runtime) cursor.ShardSender {
	return func(shardIndex int, cmd *resp.Command, onReply func(reply resp.Reply, err error)) {
		topo := rt.Topology()
		if topo == nil || shardIndex >= topo.NumShards() {
			onReply(nil, resp.ErrClusterDown)
			return
		}
		conn := rt.ConnManager().Get(topo.Shard(shardIndex).NodeID)
		if conn == nil {
			onReply(nil, resp.ErrClusterDown)
			return
		}
		if err := conn.Send(cmd, func(reply resp.Reply, err error, _ interface{}) {
			onReply(reply, err)
		}, nil); err != nil {
			onReply(nil, err)
		}
	}
}

// observe records fanout latency and, on error, bumps the reducer-error
// counter labelled by command and error kind.
func (c *Coordinator) observe(command string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	c.metrics.FanoutLatency.WithLabelValues(command).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.ReducerErrors.WithLabelValues(command, errorKind(err)).Inc()
	}
}

func errorKind(err error) string {
	switch err {
	case resp.ErrClusterDown:
		return "cluster_down"
	case resp.ErrWrongArity:
		return "wrong_arity"
	case resp.ErrParseError:
		return "parse_error"
	case resp.ErrTimeoutHard, resp.ErrTimeoutSoft:
		return "timeout"
	case resp.ErrOOM:
		return "oom"
	default:
		return "other"
	}
}
