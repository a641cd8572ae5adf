// Package dispatch implements the per-dispatched-request state (reply
// buffer, expected/replied/errored counters, reducer binding) plus the
// single-shard and fanout dispatch paths and the client-facing command
// rewriting that turns FT.SEARCH/FT.AGGREGATE into their shard-private
// forms.
package dispatch
