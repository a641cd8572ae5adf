package coordinator

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dreamware/fanoutsearch/internal/cluster"
	"github.com/dreamware/fanoutsearch/internal/dispatch"
	"github.com/dreamware/fanoutsearch/internal/reduce"
	"github.com/dreamware/fanoutsearch/internal/resp"
	"github.com/dreamware/fanoutsearch/internal/topology"
)

// Execute routes one client command to its dispatch shape and returns the
// bound reducer's reply (command table). Each call is tagged with a
// request id purely for log correlation across the shards it fans out
// to; nothing downstream depends on it.
func (c *Coordinator) Execute(cmd *resp.Command) (resp.Reply, error) {
	verb := strings.ToUpper(cmd.Verb())
	reqID := uuid.NewString()
	if ce := c.log.Check(zap.DebugLevel, "executing command"); ce != nil {
		ce.Write(zap.String("request_id", reqID), zap.String("verb", verb))
	}
	switch verb {
	case "FT.SEARCH":
		return c.executeSearch(cmd)
	case "FT.AGGREGATE":
		return c.executeAggregate(cmd)
	case "FT.CURSOR":
		return c.executeCursorForward(cmd)
	case "FT.PROFILE":
		return c.executeProfile(cmd)
	case "FT.INFO":
		return c.executeFanout(verb, cmd, reduce.InfoReducer())
	case "FT.SPELLCHECK":
		return c.executeFanout(verb, cmd, reduce.SpellcheckReducer())
	case "FT.MGET":
		return c.executeFanout(verb, cmd, reduce.MGetReducer(len(cmd.Args())-2))
	case "FT.TAGVALS":
		return c.executeFanout(verb, cmd, reduce.TagvalsReducer())
	case "FT.CREATE", "FT.ALTER", "FT.DROPINDEX", "FT.DICTADD":
		return c.executeFanout(verb, cmd, reduce.AgreementReducer())
	default:
		if strings.HasSuffix(verb, ".CLUSTERSET") {
			return c.executeClusterSet(cmd)
		}
		if strings.HasSuffix(verb, ".CLUSTERREFRESH") {
			return c.executeClusterRefresh()
		}
		if strings.HasSuffix(verb, ".CLUSTERINFO") {
			return c.executeClusterInfo(), nil
		}
		return nil, resp.ErrParseError
	}
}

// rewritePlain clones cmd with its shard-private "_" prefix and nothing
// else rewritten, the shape every fanout-only command besides FT.SEARCH/
// FT.AGGREGATE needs (command-rewriting paragraph, generalized
// past the two commands with rewrite rules of their own).
func rewritePlain(cmd *resp.Command) *resp.Command {
	shard := cmd.Clone()
	shard.RewriteVerb("_" + cmd.Verb())
	return shard
}

// executeFanout runs a one-round all-shard fanout of cmd (rewritten to its
// shard-private verb) through reducer, blocking until the reducer runs.
func (c *Coordinator) executeFanout(label string, cmd *resp.Command, reducer dispatch.ReducerFunc) (resp.Reply, error) {
	start := time.Now()
	rt := c.cluster.Next()
	ctx := dispatch.Fanout(rt, rewritePlain(cmd), reducer)
	<-ctx.Done()
	result, err := ctx.Result()
	c.observe(label, start, err)
	return result, err
}

// executeSearch implements FT.SEARCH: rewrite, fanout, top-K merge.
func (c *Coordinator) executeSearch(cmd *resp.Command) (resp.Reply, error) {
	if len(cmd.Args()) < 3 {
		return nil, resp.ErrWrongArity
	}
	start := time.Now()
	flags, opts := parseSearchFlags(cmd.Args(), cmd.ProtocolVersion)
	shard, err := dispatch.RewriteSearch(cmd, flags)
	if err != nil {
		c.observe("FT.SEARCH", start, err)
		return nil, err
	}
	rt := c.cluster.Next()
	ctx := dispatch.Fanout(rt, shard, reduce.NewSearchReducer(opts))
	<-ctx.Done()
	result, err := ctx.Result()
	c.observe("FT.SEARCH", start, err)
	return result, err
}

// executeAggregate implements FT.AGGREGATE: rewrite, cursor-streaming
// fanout via RunAggregate, optional WITHCOUNT barrier.
func (c *Coordinator) executeAggregate(cmd *resp.Command) (resp.Reply, error) {
	start := time.Now()
	topo := c.Topology()
	if topo == nil || topo.NumShards() == 0 {
		err := resp.ErrClusterDown
		c.observe("FT.AGGREGATE", start, err)
		return nil, err
	}

	shard := dispatch.RewriteAggregate(cmd)
	rt := c.cluster.Next()
	opts := reduce.AggregateOptions{
		NumShards:      topo.NumShards(),
		ReplyThreshold: c.cfg.CursorReplyThreshold,
		WithCount:      hasToken(cmd.Args(), "WITHCOUNT"),
		Protocol:       cmd.ProtocolVersion,
	}
	deadline := time.Now().Add(c.requestTimeout(cmd))

	result, err := reduce.RunAggregate(c.shardSender(rt), shard, opts, deadline)
	c.observe("FT.AGGREGATE", start, err)
	if err != nil {
		return nil, err
	}
	return reduce.EmitAggregateReply(result, opts.Protocol), nil
}

// executeCursorForward implements FT.CURSOR READ|DEL as a thin forwarder,
// handled locally only when the topology is a single shard. This coordinator does
// not maintain a client-visible cursor-id-to-shard map for multi-shard
// topologies — that continuation is handled transparently inside
// RunAggregate's Iterator during the FT.AGGREGATE call that opened the
// cursor, never by a later, separate FT.CURSOR command against more than
// one shard.
func (c *Coordinator) executeCursorForward(cmd *resp.Command) (resp.Reply, error) {
	topo := c.Topology()
	if topo == nil || topo.NumShards() == 0 {
		return nil, resp.ErrClusterDown
	}
	if topo.NumShards() != 1 {
		return nil, resp.ErrParseError
	}
	start := time.Now()
	rt := c.cluster.Next()
	ctx := dispatch.Single(rt, rewritePlain(cmd), topo.Shard(0).NodeID)
	<-ctx.Done()
	result, err := ctx.Result()
	c.observe("FT.CURSOR", start, err)
	return result, err
}

// executeProfile implements FT.PROFILE idx SEARCH|AGGREGATE ...: runs the
// wrapped command as a single fanout round (never cursor-streaming, even
// for AGGREGATE — profiling a WITHCURSOR aggregate is not supported),
// then stitches each shard's profile payload onto the merged result.
func (c *Coordinator) executeProfile(cmd *resp.Command) (resp.Reply, error) {
	args := cmd.Args()
	if len(args) < 3 {
		return nil, resp.ErrWrongArity
	}
	sub := strings.ToUpper(string(args[2]))
	inner := resp.New("FT."+sub, args[3:]...)
	inner.ProtocolVersion = cmd.ProtocolVersion
	inner.ForProfiling = true

	profileOpts := reduce.ProfileOptions{Protocol: cmd.ProtocolVersion}
	start := time.Now()
	rt := c.cluster.Next()

	var ctx *dispatch.Context
	switch sub {
	case "SEARCH":
		if len(inner.Args()) < 2 {
			return nil, resp.ErrWrongArity
		}
		flags, sopts := parseSearchFlags(inner.Args(), cmd.ProtocolVersion)
		rewritten, err := dispatch.RewriteSearch(inner, flags)
		if err != nil {
			c.observe("FT.PROFILE", start, err)
			return nil, err
		}
		ctx = dispatch.Fanout(rt, rewritten, reduce.NewSearchReducer(sopts))
	case "AGGREGATE":
		aopts := reduce.AggregateOptions{Protocol: cmd.ProtocolVersion, Profiled: true}
		ctx = dispatch.Fanout(rt, dispatch.RewriteAggregate(inner), reduce.NewAggregateReducer(aopts))
	default:
		return nil, resp.ErrParseError
	}

	<-ctx.Done()
	result, err := ctx.Result()
	c.observe("FT.PROFILE", start, err)
	if err != nil {
		return nil, err
	}

	entries := ctx.Replies()
	shards := make([]reduce.ShardProfile, 0, len(entries))
	for _, e := range entries {
		if e.Err != nil {
			continue
		}
		shards = append(shards, reduce.ShardProfile{
			ShardIndex: e.ShardIndex,
			Payload:    reduce.ExtractShardProfile(e.Reply, profileOpts),
		})
	}
	coord := reduce.CoordinatorProfile{TotalElapsed: time.Since(start)}
	return reduce.EmitProfileReply(result, shards, coord, profileOpts), nil
}

// executeClusterSet rebuilds and applies a topology from an explicit
// CLUSTERSET control command: "<mod>.CLUSTERSET shard_count node_id host
// port slot_start slot_end [node_id host port slot_start slot_end ...]",
// whose arguments carry a fully specified topology.
func (c *Coordinator) executeClusterSet(cmd *resp.Command) (resp.Reply, error) {
	args := cmd.Args()
	if len(args) < 2 {
		return nil, resp.ErrWrongArity
	}
	const fieldsPerShard = 5
	rest := args[2:]
	if len(rest) == 0 || len(rest)%fieldsPerShard != 0 {
		return nil, resp.ErrWrongArity
	}

	b := topology.NewBuilder()
	for i := 0; i+fieldsPerShard <= len(rest); i += fieldsPerShard {
		nodeID := string(rest[i])
		host := string(rest[i+1])
		port, err := strconv.Atoi(string(rest[i+2]))
		if err != nil {
			return nil, resp.ErrParseError
		}
		start, err := strconv.Atoi(string(rest[i+3]))
		if err != nil {
			return nil, resp.ErrParseError
		}
		end, err := strconv.Atoi(string(rest[i+4]))
		if err != nil {
			return nil, resp.ErrParseError
		}
		b.AddShard(nodeID, topology.Endpoint{Host: host, Port: port}, []topology.SlotRange{{Start: start, End: end}})
	}

	c.ApplyTopology(b.Build())
	return "OK", nil
}

// executeClusterRefresh re-fetches the topology from the configured
// topology source and applies it, the CLUSTERREFRESH control command.
// With no source configured, CLUSTERREFRESH is a no-op:
// not every deployment pulls topology from an external source, some
// only ever receive it via CLUSTERSET.
func (c *Coordinator) executeClusterRefresh() (resp.Reply, error) {
	if c.cfg.TopologySourceURL == "" {
		return "OK", nil
	}
	ctx := context.Background()
	if c.cfg.TopologyValidationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.TopologyValidationTimeout)
		defer cancel()
	}

	topo, err := cluster.FetchTopology(ctx, c.cfg.TopologySourceURL)
	if err != nil {
		return nil, resp.ErrClusterDown
	}
	c.ApplyTopology(topo)
	return "OK", nil
}

// executeClusterInfo reports the coordinator's current topology size and
// readiness, the CLUSTERINFO control command's reply.
func (c *Coordinator) executeClusterInfo() resp.Reply {
	topo := c.Topology()
	numShards := 0
	if topo != nil {
		numShards = topo.NumShards()
	}
	ready := int64(0)
	if c.Ready() {
		ready = 1
	}
	return []interface{}{
		"num_shards", int64(numShards),
		"ready", ready,
	}
}

// requestTimeout returns the deadline a command should run under: a
// client-supplied TIMEOUT argument in milliseconds if present, else the
// Coordinator's configured default.
func (c *Coordinator) requestTimeout(cmd *resp.Command) time.Duration {
	args := cmd.Args()
	for i := 1; i+1 < len(args); i++ {
		if strings.EqualFold(string(args[i]), "TIMEOUT") {
			if ms, err := strconv.Atoi(string(args[i+1])); err == nil {
				return time.Duration(ms) * time.Millisecond
			}
		}
	}
	return c.cfg.Timeout
}
