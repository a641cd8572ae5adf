// Package testshard implements a minimal RESP-speaking fake shard, a
// test double standing in for a real single-shard search engine. Its
// in-memory document map and mutex-guarded access pattern mirror a
// plain storage.MemoryStore; its command surface is deliberately tiny —
// just enough FT.SEARCH, FT.AGGREGATE, and FT.CURSOR handling to drive
// coordinator-level tests without a real search engine on the other end
// of a Connection.
package testshard
