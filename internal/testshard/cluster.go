package testshard

import "github.com/dreamware/fanoutsearch/internal/resp"

// Cluster is a fixed set of in-memory fake shards wired together behind a
// single Send method, giving reducer/dispatch tests a ShardSender without
// any real connpool/ioruntime plumbing.
type Cluster struct {
	Shards []*Shard
}

// NewCluster creates n empty fake shards.
func NewCluster(n int) *Cluster {
	c := &Cluster{Shards: make([]*Shard, n)}
	for i := range c.Shards {
		c.Shards[i] = New()
	}
	return c
}

// Send dispatches cmd to the shard at shardIndex and invokes onReply
// synchronously, matching the cursor.ShardSender/dispatch shapes so a
// Cluster can stand in for a real fanout in package-level tests.
func (c *Cluster) Send(shardIndex int, cmd *resp.Command, onReply func(reply resp.Reply, err error)) {
	reply, err := c.Shards[shardIndex].Handle(cmd)
	onReply(reply, err)
}
