package engine

import (
	"fmt"
	"math"
	"time"
)

// Transition rule constants.
const (
	// statusChangeProbability is the per-tick chance that a node's status is resampled.
	statusChangeProbability = 0.10

	// recoverProbability is the chance a resampled non-online node returns online.
	recoverProbability = 0.70

	// maxLatencyDrift bounds the per-tick latency delta to [-max, +max).
	maxLatencyDrift = 50

	// latencyChangeThreshold is the magnitude a latency change must exceed
	// to be committed and reported.
	latencyChangeThreshold = 10

	// maxConnectionDrift bounds the per-tick connection delta to [-max, +max).
	maxConnectionDrift = 10
)

// Alarm thresholds.
const (
	// HighLatencyThreshold raises a warning alarm when a committed latency exceeds it.
	HighLatencyThreshold = 300

	// LowConnectionsThreshold raises an info alarm when a committed count falls below it.
	LowConnectionsThreshold = 50
)

// transition applies the per-tick rules to a node. It draws from rand and
// stamps events with ids from newID.
type transition struct {
	rand  Rand
	depth int
	newID func() string
}

// step accumulates the events produced while advancing one node.
type step struct {
	node   *Node
	now    time.Time
	newID  func() string
	events []Event
}

func (s *step) emit(p Payload) {
	s.events = append(s.events, Event{
		ID:        s.newID(),
		Timestamp: s.now,
		NodeID:    s.node.ID,
		Payload:   p,
	})
}

func (s *step) alarm(sev Severity, msg string) {
	s.emit(Alarm{Severity: sev, Message: msg})
}

// advance runs every rule against n in fixed order and returns the events
// produced, in emission order.
func (t *transition) advance(n *Node, now time.Time) []Event {
	s := &step{node: n, now: now, newID: t.newID}

	if t.rand.Float64() < statusChangeProbability {
		s.applyStatus(t.resample(n.Status))
	}
	s.applyLatency((t.rand.Float64() - 0.5) * 2 * maxLatencyDrift)
	s.applyConnections(int(math.Floor((t.rand.Float64() - 0.5) * 2 * maxConnectionDrift)))
	n.appendHistory(LatencyPoint{Time: now, Latency: n.Latency}, t.depth)
	if n.Status == StatusOffline {
		s.alarm(SeverityCritical, fmt.Sprintf("node %s is offline", n.Name))
	}
	n.LastUpdate = now

	return s.events
}

// resample picks the next status for a node currently in cur. A node that is
// not online recovers with recoverProbability; otherwise the next status is
// drawn uniformly from the statuses other than cur.
func (t *transition) resample(cur Status) Status {
	if cur != StatusOnline && t.rand.Float64() < recoverProbability {
		return StatusOnline
	}
	others := make([]Status, 0, len(statuses)-1)
	for _, st := range statuses {
		if st != cur {
			others = append(others, st)
		}
	}
	return others[int(t.rand.Float64()*float64(len(others)))]
}

func (s *step) applyStatus(next Status) {
	prev := s.node.Status
	s.node.Status = next
	if next != prev {
		s.emit(StatusChange{Previous: prev, New: next})
	}
}

// applyLatency commits current+delta, clamped to the latency bounds, only when
// the clamped change exceeds latencyChangeThreshold.
func (s *step) applyLatency(delta float64) {
	cur := float64(s.node.Latency)
	next := clamp(cur+delta, MinLatency, MaxLatency)
	if math.Abs(next-cur) <= latencyChangeThreshold {
		return
	}
	s.node.Latency = int(math.Round(next))
	s.emit(LatencyUpdate{Latency: s.node.Latency})
	if s.node.Latency > HighLatencyThreshold {
		s.alarm(SeverityWarning, fmt.Sprintf("high latency detected: %dms", s.node.Latency))
	}
}

// applyConnections commits current+delta, floored at zero, when it differs
// from the current count.
func (s *step) applyConnections(delta int) {
	next := s.node.Connections + delta
	if next < 0 {
		next = 0
	}
	if next == s.node.Connections {
		return
	}
	s.node.Connections = next
	s.emit(ConnectionChange{Connections: next})
	if next < LowConnectionsThreshold {
		s.alarm(SeverityInfo, fmt.Sprintf("low connections: %d", next))
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
