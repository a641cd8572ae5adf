// Package connpool implements a single asynchronous shard connection
// (Connection) and the round-robin pool of connections to one node
// (ConnectionPool).
//
// # Architecture
//
// The implementation is adapted from etsangsplk-redispipe/redisconn.Connection:
// a dial-retry control loop plus dedicated writer/reader goroutines,
// futures correlating in-flight sends to their replies in FIFO order.
// Two changes generalize it to this coordinator's model:
//
//   - State machine: redisconn's connDisconnected/connConnecting/
//     connConnected three-state machine gains a ReAuth state, and loses
//     redisconn's "closed is terminal after N consecutive failures"
//     policy — this coordinator's failures are always transient and
//     retried indefinitely; only an explicit Stop reaches the terminal
//     Freeing state.
//   - Reply delivery: redisconn delivers replies directly on its own
//     reader goroutine. Here, on_reply is marshaled onto the owning
//     IORuntime's WorkQueue via a schedule callback, so replies always
//     arrive on the same reactor thread even though the socket I/O
//     itself runs on dedicated goroutines outside that thread.
//
//	Connecting --ok, no auth--> Connected
//	Connecting --ok, auth set--> ReAuth --auth ok--> Connected
//	any        --error--------> Connecting (after backoff)
//	any        --Stop()-------> Freeing (terminal)
package connpool
