// Package ws implements the WebSocket hub for the netpulse server.
//
// Hub manages a set of connected clients. It broadcasts the full dashboard
// snapshot on a configurable interval (server.broadcast_interval, default 5s)
// and, as an engine subscriber, pushes every engine event the moment it is
// emitted.
//
// New(sources, interval) creates a Hub.
// Hub.Run(ctx) starts the broadcast ticker: blocks until ctx is cancelled,
// then closes all active connections.
// Hub.ServeHTTP upgrades an HTTP connection to WebSocket, sends the current
// snapshot immediately on connect, then streams snapshots and events.
//
// Messages sent to clients:
//
//	{"event": "snapshot", "data": { /* same schema as GET /api/v1/snapshot */ }}
//	{"event": "event",    "data": { "id": "…", "type": "ALARM", "nodeId": "…", … }}
//
// The upgrader accepts all origins. Apply CORS restrictions at the reverse
// proxy level. The endpoint is mounted at /ws/stream by the server.
package ws
