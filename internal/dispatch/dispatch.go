package dispatch

import (
	"strconv"
	"strings"

	"github.com/dreamware/fanoutsearch/internal/connpool"
	"github.com/dreamware/fanoutsearch/internal/ioruntime"
	"github.com/dreamware/fanoutsearch/internal/resp"
	"github.com/dreamware/fanoutsearch/internal/topology"
)

// singleReply is the reducer bound to a single-shard dispatch: it simply
// forwards the one raw reply.
func singleReply(ctx *Context) (resp.Reply, error) {
	entries := ctx.Replies()
	if len(entries) == 0 {
		return nil, resp.ErrClusterDown
	}
	e := entries[0]
	return e.Reply, e.Err
}

// Single dispatches cmd to a Connected connection of the node named by
// shardNodeID, returning a Context that completes when that shard's reply
// (or send failure) arrives. With no Connected connection the Context
// has expected == 0.
func Single(rt *ioruntime.Runtime, cmd *resp.Command, shardNodeID string) *Context {
	conn := rt.ConnManager().Get(shardNodeID)
	if conn == nil {
		ctx := NewContext(0, singleReply)
		return ctx
	}
	ctx := NewContext(1, singleReply)
	err := conn.Send(cmd, func(reply resp.Reply, err error, _ interface{}) {
		ctx.AddReply(0, reply, err)
	}, nil)
	if err != nil {
		ctx.AddReply(0, nil, err)
	}
	return ctx
}

// Fanout clones baseCmd once per shard in the runtime's current topology,
// injects that shard's slot range, and sends concurrently. expected
// counts every shard that has a Connected connection at dispatch time —
// shards with none are silently skipped, not counted as errors, so a
// completely down cluster yields expected == 0 and an immediate reducer
// invocation. A send that fails to enqueue stays counted: its error is
// recorded as that shard's reply.
func Fanout(rt *ioruntime.Runtime, baseCmd *resp.Command, reducer ReducerFunc) *Context {
	topo := rt.Topology()
	if topo == nil || topo.NumShards() == 0 {
		return NewContext(0, reducer)
	}

	type attempt struct {
		shardIndex int
		conn       *connpool.Connection
		cmd        *resp.Command
	}
	var attempts []attempt
	for i := 0; i < topo.NumShards(); i++ {
		shard := topo.Shard(i)
		conn := rt.ConnManager().Get(shard.NodeID)
		if conn == nil {
			continue
		}
		clone := baseCmd.Clone()
		clone.TargetShard = i
		if len(shard.SlotRanges) > 0 {
			clone.InjectSlotRange(encodeSlotRanges(shard.SlotRanges))
		}
		attempts = append(attempts, attempt{shardIndex: i, conn: conn, cmd: clone})
	}

	ctx := NewContext(len(attempts), reducer)
	for _, a := range attempts {
		a := a
		err := a.conn.Send(a.cmd, func(reply resp.Reply, err error, _ interface{}) {
			ctx.AddReply(a.shardIndex, reply, err)
		}, nil)
		if err != nil {
			ctx.AddReply(a.shardIndex, nil, err)
		}
	}
	return ctx
}

// encodeSlotRanges renders a shard's slot ranges as the comma-separated
// "start-end" form the shard-private command argument expects.
func encodeSlotRanges(ranges []topology.SlotRange) []byte {
	parts := make([]string, len(ranges))
	for i, r := range ranges {
		parts[i] = strconv.Itoa(r.Start) + "-" + strconv.Itoa(r.End)
	}
	return []byte(strings.Join(parts, ","))
}
