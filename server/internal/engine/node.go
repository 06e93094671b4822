package engine

import "time"

// Status is the reachability state of a simulated node.
type Status string

// Node statuses.
const (
	StatusOnline   Status = "online"
	StatusDegraded Status = "degraded"
	StatusOffline  Status = "offline"
)

// statuses is the fixed candidate order used when resampling a status.
var statuses = []Status{StatusOnline, StatusOffline, StatusDegraded}

// Latency bounds in milliseconds. Every committed latency lies in
// [MinLatency, MaxLatency].
const (
	MinLatency = 50
	MaxLatency = 500
)

// LatencyPoint is one sample in a node's latency history.
type LatencyPoint struct {
	Time    time.Time `json:"time"`
	Latency int       `json:"latency"`
}

// Node is one simulated network endpoint.
//
// ID and Name are fixed at creation. The remaining fields are mutated only by
// the engine during a tick; values handed out by Engine.Nodes and Engine.Node
// are copies and never observe later mutations.
type Node struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Status         Status         `json:"status"`
	Connections    int            `json:"connections"`
	Latency        int            `json:"latency"`
	LastUpdate     time.Time      `json:"lastUpdate"`
	LatencyHistory []LatencyPoint `json:"latencyHistory"`
}

// clone returns a deep copy of n.
func (n *Node) clone() Node {
	cp := *n
	cp.LatencyHistory = make([]LatencyPoint, len(n.LatencyHistory))
	copy(cp.LatencyHistory, n.LatencyHistory)
	return cp
}

// appendHistory records p, evicting the oldest point once depth is reached.
func (n *Node) appendHistory(p LatencyPoint, depth int) {
	if len(n.LatencyHistory) < depth {
		n.LatencyHistory = append(n.LatencyHistory, p)
		return
	}
	copy(n.LatencyHistory, n.LatencyHistory[1:])
	n.LatencyHistory[len(n.LatencyHistory)-1] = p
}
