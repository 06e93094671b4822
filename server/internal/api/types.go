package api

import (
	"github.com/netpulse/netpulse/server/internal/alerts"
	"github.com/netpulse/netpulse/server/internal/engine"
	"github.com/netpulse/netpulse/server/internal/health"
)

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	health.Output
	NodeCount     int  `json:"node_count"`
	OnlineCount   int  `json:"online_count"`
	DegradedCount int  `json:"degraded_count"`
	OfflineCount  int  `json:"offline_count"`
	AlertCount    int  `json:"alert_count"`
	Running       bool `json:"running"`
}

// StatsResponse is the payload for GET /api/v1/stats: the dashboard's four
// summary tiles.
type StatsResponse struct {
	ActiveNodes      int `json:"active_nodes"`
	TotalNodes       int `json:"total_nodes"`
	AvgLatencyMs     int `json:"avg_latency_ms"` // online nodes only, rounded
	TotalConnections int `json:"total_connections"`
	CriticalAlarms   int `json:"critical_alarms"` // nodes currently offline
}

// SimulationResponse is the payload for GET /api/v1/simulation and the
// start/stop endpoints.
type SimulationResponse struct {
	Running        bool   `json:"running"`
	TickIntervalMs int64  `json:"tick_interval_ms"`
	Ticks          uint64 `json:"ticks"`
}

// SnapshotResponse is the payload for GET /api/v1/snapshot and the
// WebSocket "snapshot" broadcast.
type SnapshotResponse struct {
	Nodes       []engine.Node   `json:"nodes"`
	Stats       StatsResponse   `json:"stats"`
	Health      health.Output   `json:"health"`
	Events      []engine.Event  `json:"events"`
	Alarms      []*alerts.Alert `json:"alarms"`
	Running     bool            `json:"running"`
	GeneratedAt string          `json:"generated_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
