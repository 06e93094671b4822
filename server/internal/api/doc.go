// Package api implements the HTTP REST API for the netpulse server.
//
// New(sources) returns an http.Handler that serves:
//
//	GET  /api/v1/health            fleet score, state, per-status counts
//	GET  /api/v1/nodes             all nodes in creation order
//	GET  /api/v1/nodes/{id}        single node; 404 if unknown
//	GET  /api/v1/events?limit=N    recent events, newest first
//	GET  /api/v1/alarms            firing and recently resolved alarms
//	GET  /api/v1/stats             dashboard summary tiles
//	GET  /api/v1/snapshot          everything above in one document
//	GET  /api/v1/simulation        ticking state
//	POST /api/v1/simulation/start  start ticking (idempotent)
//	POST /api/v1/simulation/stop   stop ticking (idempotent)
//
// All endpoints respond with Content-Type: application/json and return 405
// for the wrong method. JSON types are defined in types.go.
package api
