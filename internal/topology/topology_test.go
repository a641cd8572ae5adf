package topology

import "testing"

func TestSlotRangeContains(t *testing.T) {
	r := SlotRange{Start: 100, End: 200}
	cases := []struct {
		slot int
		want bool
	}{
		{99, false},
		{100, true},
		{150, true},
		{200, true},
		{201, false},
	}
	for _, tc := range cases {
		if got := r.Contains(tc.slot); got != tc.want {
			t.Errorf("Contains(%d) = %v, want %v", tc.slot, got, tc.want)
		}
	}
}

func TestEndpointString(t *testing.T) {
	tcp := Endpoint{Host: "10.0.0.1", Port: 6380}
	if got := tcp.String(); got != "10.0.0.1:6380" {
		t.Errorf("String() = %q, want 10.0.0.1:6380", got)
	}

	unix := Endpoint{UnixSocket: "/tmp/shard.sock", Host: "ignored", Port: 1}
	if got := unix.String(); got != "/tmp/shard.sock" {
		t.Errorf("String() = %q, want /tmp/shard.sock", got)
	}
}

func TestBuilderBuildsImmutableTopology(t *testing.T) {
	b := NewBuilder()
	b.AddShard("node-1", Endpoint{Host: "h1", Port: 1}, []SlotRange{{Start: 0, End: 8191}})
	b.AddShard("node-2", Endpoint{Host: "h2", Port: 2}, []SlotRange{{Start: 8192, End: 16383}})
	topo := b.Build()

	if topo.NumShards() != 2 {
		t.Fatalf("NumShards() = %d, want 2", topo.NumShards())
	}
	if topo.Shard(0).NodeID != "node-1" {
		t.Errorf("Shard(0).NodeID = %q, want node-1", topo.Shard(0).NodeID)
	}

	// Further mutation of the builder must not leak into the built Topology.
	b.AddShard("node-3", Endpoint{Host: "h3", Port: 3}, nil)
	if topo.NumShards() != 2 {
		t.Errorf("NumShards() = %d after builder mutation, want 2", topo.NumShards())
	}
}

func TestNilTopologyNumShardsIsZero(t *testing.T) {
	var topo *Topology
	if got := topo.NumShards(); got != 0 {
		t.Errorf("NumShards() on nil = %d, want 0", got)
	}
}

func TestDiffAddedAndRemoved(t *testing.T) {
	prev := NewBuilder().
		AddShard("a", Endpoint{Host: "h1", Port: 1}, nil).
		AddShard("b", Endpoint{Host: "h2", Port: 2}, nil).
		Build()
	next := NewBuilder().
		AddShard("b", Endpoint{Host: "h2", Port: 2}, nil).
		AddShard("c", Endpoint{Host: "h3", Port: 3}, nil).
		Build()

	added, removed := Diff(prev, next)
	if len(added) != 1 || added[0] != "c" {
		t.Errorf("added = %v, want [c]", added)
	}
	if len(removed) != 1 || removed[0] != "a" {
		t.Errorf("removed = %v, want [a]", removed)
	}
}

func TestDiffNilPrevTreatsAllAsAdded(t *testing.T) {
	next := NewBuilder().AddShard("a", Endpoint{Host: "h1", Port: 1}, nil).Build()
	added, removed := Diff(nil, next)
	if len(added) != 1 || added[0] != "a" {
		t.Errorf("added = %v, want [a]", added)
	}
	if len(removed) != 0 {
		t.Errorf("removed = %v, want empty", removed)
	}
}

func TestDiffNoChange(t *testing.T) {
	topo := NewBuilder().AddShard("a", Endpoint{Host: "h1", Port: 1}, nil).Build()
	added, removed := Diff(topo, topo)
	if len(added) != 0 || len(removed) != 0 {
		t.Errorf("Diff(topo, topo) = added=%v removed=%v, want both empty", added, removed)
	}
}
