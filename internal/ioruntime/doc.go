// Package ioruntime implements the WorkQueue and IORuntime: one reactor
// goroutine, its ConnectionManager, its current Topology, and the
// bounded callback queue that feeds it.
//
// # Architecture
//
// Adapted from torua's health_monitor.go — that file's ticker-driven
// Start(ctx, ...) loop with a consecutive-failure counter is generalized
// here into a readiness-gating poller: instead of polling node health
// over HTTP, the runtime polls its own ConnectionManager for "a
// Connected connection to every master," and instead of a
// failure-count threshold it runs a one-shot failure timer that
// force-unblocks parked work.
//
//	┌───────────────────────────────────────────┐
//	│               IORuntime                    │
//	│                                            │
//	│  WorkQueue (bounded, lock-guarded)          │
//	│        │                                   │
//	│        ▼                                   │
//	│   reactor loop ── applies pending_topology  │
//	│        │          ── parks work while       │
//	│        │             !ready                 │
//	│        ▼                                   │
//	│   ConnectionManager (this runtime's conns)  │
//	└───────────────────────────────────────────┘
//
// Lazy thread start: the reactor goroutine is spawned on the runtime's
// first Schedule call; anything scheduled before that point is queued and
// drained once the loop starts.
package ioruntime
