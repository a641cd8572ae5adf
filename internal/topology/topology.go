package topology

import "fmt"

// SlotRange is an inclusive [Start, End] pair. Ranges across shards in a
// single Topology are disjoint.
type SlotRange struct {
	Start int
	End   int
}

// Contains reports whether slot falls within this range.
func (r SlotRange) Contains(slot int) bool {
	return slot >= r.Start && slot <= r.End
}

// Endpoint is a shard connection address, cloned onto each Connection at
// creation so the Topology that produced it can be released
// independently.
type Endpoint struct {
	Host       string
	Port       int
	AuthToken  string
	UnixSocket string
}

func (e Endpoint) String() string {
	if e.UnixSocket != "" {
		return e.UnixSocket
	}
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// Shard describes one shard's owning node, its endpoint, and the slot
// ranges it currently serves.
type Shard struct {
	NodeID     string
	Endpoint   Endpoint
	SlotRanges []SlotRange
}

// Topology is the coordinator's full shard-to-node snapshot. It is built
// once (via Builder) and never mutated after Build; replacement happens
// by publishing an entirely new *Topology.
type Topology struct {
	numShards int
	shards    []Shard
}

// NumShards returns the shard count this topology was built with.
func (t *Topology) NumShards() int {
	if t == nil {
		return 0
	}
	return t.numShards
}

// Shard returns the shard descriptor for index i. Panics if out of
// range — callers must only index within [0, NumShards).
func (t *Topology) Shard(i int) Shard {
	return t.shards[i]
}

// Shards returns the full shard slice. Callers must treat it as
// read-only: a Topology is immutable once published.
func (t *Topology) Shards() []Shard {
	return t.shards
}

// nodeSet returns the set of distinct node ids participating in this
// topology, used by Diff to compute added/removed nodes on publish.
func (t *Topology) nodeSet() map[string]struct{} {
	if t == nil {
		return map[string]struct{}{}
	}
	set := make(map[string]struct{}, len(t.shards))
	for _, s := range t.shards {
		set[s.NodeID] = struct{}{}
	}
	return set
}

// Diff computes which node ids are newly present in next but absent from
// prev (added) and which were present in prev but absent from next
// (removed). prev may be nil (first topology ever applied).
func Diff(prev, next *Topology) (added, removed []string) {
	oldSet := prev.nodeSet()
	newSet := next.nodeSet()
	for id := range newSet {
		if _, ok := oldSet[id]; !ok {
			added = append(added, id)
		}
	}
	for id := range oldSet {
		if _, ok := newSet[id]; !ok {
			removed = append(removed, id)
		}
	}
	return added, removed
}

// Builder assembles a Topology from CLUSTER SHARDS-style input or from an
// explicit CLUSTERSET control command. It is not itself thread-safe;
// build once on the thread parsing the wire reply, then publish the
// resulting *Topology by reference.
type Builder struct {
	shards []Shard
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddShard appends one shard's assignment to the topology under
// construction. Masters only — replica endpoints are not tracked by this
// coordinator.
func (b *Builder) AddShard(nodeID string, ep Endpoint, ranges []SlotRange) *Builder {
	b.shards = append(b.shards, Shard{NodeID: nodeID, Endpoint: ep, SlotRanges: ranges})
	return b
}

// Build freezes the accumulated shards into an immutable Topology.
func (b *Builder) Build() *Topology {
	shards := make([]Shard, len(b.shards))
	copy(shards, b.shards)
	return &Topology{numShards: len(shards), shards: shards}
}
