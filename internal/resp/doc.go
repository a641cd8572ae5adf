// Package resp implements the coordinator's view of a shard command: an
// immutable vector of argument byte strings plus the routing and protocol
// metadata the rest of the coordinator needs to dispatch it, and the
// RESP2/RESP3 wire encode/decode used to talk to a shard connection.
//
// # Overview
//
// A Command never holds interpreted state once queued on a Connection —
// its argument bytes are frozen at construction (or at the last Clone) and
// only ever read by the wire encoder. Replies are decoded into a generic
// Go value tree (nested []interface{} / map[string]interface{}) rather
// than into typed structs, because the shape of a reply depends on the
// negotiated protocol version and on the command itself; reducers in
// internal/reduce walk this tree directly.
//
// # Wire format
//
// Outgoing commands are always encoded as a RESP2-style array of bulk
// strings — Redis-protocol clients never send RESP3-framed requests, only
// negotiate RESP3-framed *replies* via HELLO. Decoding a reply dispatches
// on the connection's negotiated protocol version: RESP2 replies come back
// as arrays, RESP3 replies may be arrays or maps depending on the command.
package resp
