package resp

import "errors"

// Errors below are plain sentinel errors. Errors across shards are not
// aggregated: a reducer returns the first shard error it meets.
var (
	// ErrClusterDown is returned immediately when numShards == 0: no
	// topology has ever been established.
	ErrClusterDown = errors.New("CLUSTERDOWN no topology established")

	// ErrWrongArity is returned when a client command's argument count
	// falls outside the command's accepted range.
	ErrWrongArity = errors.New("ERR wrong number of arguments")

	// ErrBlockingDenied is returned when the host execution context
	// forbids blocking (e.g. called from a Lua script or MULTI).
	ErrBlockingDenied = errors.New("ERR blocking is not allowed in this context")

	// ErrTimeoutSoft marks a deadline reached under the relaxed timeout
	// policy; callers emit partial results with a warning, not this
	// error, but reducers use it to decide which path to take.
	ErrTimeoutSoft = errors.New("TIMEOUT query deadline reached (partial results returned)")

	// ErrTimeoutHard is returned verbatim to the client when a deadline
	// is reached under the strict timeout policy.
	ErrTimeoutHard = errors.New("TIMEOUT query deadline reached")

	// ErrParseError is returned when a reducer cannot interpret a
	// shard's reply shape.
	ErrParseError = errors.New("ERR bad reply returned")

	// ErrOOM marks a shard-reported out-of-memory condition; policy then
	// decides whether it propagates or becomes a warning.
	ErrOOM = errors.New("OOM shard reports out of memory")
)

// shardTimeoutMessage is the exact shard-side string that, under relaxed
// policy, a fanout short-circuit must NOT treat as a hard shard error.
const shardTimeoutMessage = "Timeout limit was reached"

// IsShardTimeout reports whether a shard error message is the
// shard-local timeout string that relaxed policy tolerates instead of
// short-circuiting the whole fanout.
func IsShardTimeout(msg string) bool {
	return msg == shardTimeoutMessage
}
