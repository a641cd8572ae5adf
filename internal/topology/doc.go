// Package topology holds the coordinator's snapshot of the shard set:
// which node owns each shard, its connection endpoint, and its slot
// ranges. A Topology is immutable once published — IORuntimes hold a
// strong reference to the current one and swap to a new one atomically,
// never mutating in place.
//
// # Architecture
//
// This package is adapted from torua's shard registry (its
// internal/coordinator/shard_registry.go): the same "assignment table
// behind a small, locked accessor struct" shape, but generalized from a
// single node-per-key hash table into an ordered, versioned snapshot of
// node/endpoint/slot-range triples that can be diffed wholesale when a
// new one is published.
//
//	┌────────────────────────────────────────────┐
//	│                 Topology                    │
//	│  numShards int                              │
//	│  shards  []Shard  (node_id, endpoint,       │
//	│                     slot ranges)             │
//	└────────────────────────────────────────────┘
//	        ▲ published atomically, read-only
//	        │
//	   Diff(old, new) → added nodes, removed nodes
package topology
