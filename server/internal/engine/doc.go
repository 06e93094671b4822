// Package engine implements the fleet simulation behind the netpulse dashboard.
//
// An Engine owns a fixed set of nodes created by New. Each tick it walks the
// nodes in creation order and, per node:
//
//  1. resamples the status with probability 0.10 (NODE_STATUS_CHANGE on change)
//  2. drifts latency by [-50, +50), clamped to [50, 500]; changes above 10ms
//     are committed (LATENCY_UPDATE, plus a warning ALARM above 300ms)
//  3. drifts connections by [-10, +10), floored at 0 (CONNECTION_CHANGE, plus
//     an info ALARM below 50)
//  4. appends the current latency to the bounded history
//  5. raises a critical ALARM on every tick the node is offline
//
// Events are delivered synchronously to every Subscriber in registration
// order. A failing subscriber is logged and skipped; it cannot affect node
// state or other subscribers.
//
// Start and Stop drive ticks from a single ticker and are idempotent. Nodes
// and Node return copies, so readers never race the tick goroutine.
package engine
