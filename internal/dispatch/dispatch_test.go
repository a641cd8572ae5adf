package dispatch

import (
	"testing"

	"github.com/dreamware/fanoutsearch/internal/ioruntime"
	"github.com/dreamware/fanoutsearch/internal/resp"
	"github.com/dreamware/fanoutsearch/internal/topology"
)

func newTestRuntime() *ioruntime.Runtime {
	return ioruntime.New(ioruntime.Config{ID: 1, MaxQueueLen: 64, ConnPerShard: 1})
}

func TestSingleUnknownShardReturnsClusterDown(t *testing.T) {
	rt := newTestRuntime()
	defer rt.Stop()

	ctx := Single(rt, resp.New("_FT.SEARCH", []byte("idx")), "never-added-node")
	<-ctx.Done()
	_, err := ctx.Result()
	if err != resp.ErrClusterDown {
		t.Errorf("Result() err = %v, want ErrClusterDown", err)
	}
}

func TestFanoutNilTopologyIsClusterDown(t *testing.T) {
	rt := newTestRuntime()
	defer rt.Stop()

	ctx := Fanout(rt, resp.New("_FT.SEARCH", []byte("idx")), func(c *Context) (resp.Reply, error) {
		if c.Expected() != 0 {
			t.Errorf("reducer saw expected=%d, want 0", c.Expected())
		}
		return nil, resp.ErrClusterDown
	})
	<-ctx.Done()
	_, err := ctx.Result()
	if err != resp.ErrClusterDown {
		t.Errorf("Result() err = %v, want ErrClusterDown", err)
	}
}

func TestFanoutSkipsShardsWithNoConnection(t *testing.T) {
	rt := newTestRuntime()
	defer rt.Stop()

	topo := topology.NewBuilder().
		AddShard("node-1", topology.Endpoint{Host: "127.0.0.1", Port: 1}, nil).
		AddShard("node-2", topology.Endpoint{Host: "127.0.0.1", Port: 2}, nil).
		Build()
	rt.ApplyTopology(topo)

	// No pools were ever added to the runtime's ConnManager, so every
	// shard is skipped and the fanout completes with expected == 0.
	ctx := Fanout(rt, resp.New("_FT.SEARCH", []byte("idx")), func(c *Context) (resp.Reply, error) {
		return len(c.Replies()), nil
	})
	<-ctx.Done()
	reply, err := ctx.Result()
	if err != nil {
		t.Fatalf("Result() err = %v", err)
	}
	if reply != 0 {
		t.Errorf("reducer saw %v replies, want 0", reply)
	}
}

func TestEncodeSlotRanges(t *testing.T) {
	ranges := []topology.SlotRange{{Start: 0, End: 100}, {Start: 200, End: 300}}
	got := string(encodeSlotRanges(ranges))
	if got != "0-100,200-300" {
		t.Errorf("encodeSlotRanges() = %q, want 0-100,200-300", got)
	}
}

func TestEncodeSlotRangesEmpty(t *testing.T) {
	if got := string(encodeSlotRanges(nil)); got != "" {
		t.Errorf("encodeSlotRanges(nil) = %q, want empty string", got)
	}
}
