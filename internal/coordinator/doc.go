// Package coordinator wires every component package into the single
// Execute entrypoint a RESP front-end calls per client command: Cluster
// (internal/clusterio), Topology (internal/topology), the dispatch and
// cursor packages, and the reducers in internal/reduce, instrumented with
// internal/telemetry.
//
// # Overview
//
// Coordinator owns no domain logic of its own. It is the thinnest layer
// that can still answer "given this client command and this topology,
// which shards get asked, and which reducer turns their replies into one
// answer." Everything else — the connection state machine, the top-K
// merge, the cursor pull protocol — is implemented in the packages it
// wires together.
//
// # Architecture
//
//	┌───────────────────────────────────────────────┐
//	│                COORDINATOR                     │
//	├───────────────────────────────────────────────┤
//	│                                                 │
//	│  ┌───────────────────────────────────────┐    │
//	│  │   Command table (commands.go)          │    │
//	│  │   - FT.SEARCH / FT.AGGREGATE           │    │
//	│  │   - FT.CURSOR READ|DEL                 │    │
//	│  │   - FT.INFO / FT.PROFILE               │    │
//	│  │   - FT.SPELLCHECK / MGET / TAGVALS     │    │
//	│  │   - FT.CREATE|ALTER|DROPINDEX|DICTADD  │    │
//	│  │   - CLUSTERSET / CLUSTERREFRESH        │    │
//	│  └───────────────────────────────────────┘    │
//	│                                                 │
//	│  ┌───────────────────────────────────────┐    │
//	│  │   Cluster (clusterio.Cluster)          │    │
//	│  │   - N fixed IORuntimes, round robin    │    │
//	│  │   - topology broadcast                 │    │
//	│  └───────────────────────────────────────┘    │
//	│                                                 │
//	│  ┌───────────────────────────────────────┐    │
//	│  │   Dispatch (dispatch.Single/Fanout)    │    │
//	│  │   + reducers (reduce.*)                │    │
//	│  └───────────────────────────────────────┘    │
//	│                                                 │
//	└───────────────────────────────────────────────┘
//
// # Command routing
//
// Every client verb maps to one of three shapes:
//
//  1. Single-shard forward: the command already names its target shard
//     (FT.CURSOR READ|DEL against a one-shard topology); dispatch.Single
//     picks the one connection and returns its raw reply.
//  2. One-round fanout: the command is cloned onto every shard and merged
//     by a reducer once every shard has replied or errored
//     (FT.SEARCH, FT.INFO, FT.SPELLCHECK, FT.MGET, FT.TAGVALS,
//     FT.CREATE/ALTER/DROPINDEX/DICTADD, FT.PROFILE).
//  3. Cursor-streaming fanout: the command opens an Iterator that pulls
//     rounds from every shard until all are exhausted or the deadline
//     passes (FT.AGGREGATE).
//
// # Topology and readiness
//
// ApplyTopology publishes a new topology to every runtime in the cluster
// and records it locally so Execute can size fanouts without picking a
// runtime first. Each runtime tracks its own readiness inside
// internal/ioruntime: ready once its connection manager reports every
// master Connected, or once TOPOLOGY_VALIDATION_TIMEOUT forces it ready
// against a partial set. Execute does not wait for readiness: a command
// issued before it is dispatched at once, and shards that have no
// Connected connection yet are skipped.
//
// # Error surface
//
// Execute returns exactly what the bound reducer returns: a value reply,
// "OK", or one of the typed errors in internal/resp (ErrClusterDown,
// ErrWrongArity, ErrParseError, ErrTimeoutHard, …). Outside the reducers,
// Coordinator's own routing returns ErrParseError for an unknown verb,
// ErrWrongArity for a malformed command, and ErrClusterDown when
// CLUSTERREFRESH cannot fetch a topology.
package coordinator
