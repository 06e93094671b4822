package health

import "github.com/netpulse/netpulse/server/internal/engine"

// Weight constants for the fleet score formula.
// They must sum to 1.0.
const (
	weightAvailability = 0.50
	weightLatency      = 0.30
	weightStability    = 0.20
)

// State constants returned by the score calculator.
const (
	StateHealthy  = "healthy"
	StateDegraded = "degraded"
	StateCritical = "critical"
	StateUnknown  = "unknown"
)

// Thresholds that map a score to a health state.
const (
	ThresholdHealthy  = 85.0
	ThresholdDegraded = 60.0
)

// Input holds the fleet counts fed into the score formula.
type Input struct {
	Total    int
	Online   int
	Degraded int
	Offline  int

	// AvgLatencyMs is the mean latency of online nodes. Ignored when Online is 0.
	AvgLatencyMs float64
}

// Output is the result of the fleet score calculation.
type Output struct {
	// Score is the composite health score in the range 0–100.
	Score float64 `json:"score"`

	// State is one of: "healthy", "degraded", "critical", "unknown".
	State string `json:"state"`

	AvailabilityFactor float64 `json:"availability_factor"`
	LatencyFactor      float64 `json:"latency_factor"`
	StabilityFactor    float64 `json:"stability_factor"`
}

// Compute calculates the fleet health score:
//
//	score = (
//	    online/total                  * 0.50  +
//	    (1 - avg_latency/500)         * 0.30  +
//	    (1 - degraded/total)          * 0.20
//	) * 100
//
// An empty fleet is "unknown". With no online nodes the latency factor is 0.
func Compute(in Input) Output {
	if in.Total <= 0 {
		return Output{State: StateUnknown}
	}
	total := float64(in.Total)

	availability := clamp01(float64(in.Online) / total)

	latency := 0.0
	if in.Online > 0 {
		latency = 1 - clamp01(in.AvgLatencyMs/engine.MaxLatency)
	}

	stability := 1 - clamp01(float64(in.Degraded)/total)

	score := (availability*weightAvailability +
		latency*weightLatency +
		stability*weightStability) * 100

	return Output{
		Score:              score,
		State:              stateFromScore(score),
		AvailabilityFactor: availability,
		LatencyFactor:      latency,
		StabilityFactor:    stability,
	}
}

// FromNodes tallies a fleet snapshot into an Input.
func FromNodes(nodes []engine.Node) Input {
	in := Input{Total: len(nodes)}
	latencySum := 0
	for _, n := range nodes {
		switch n.Status {
		case engine.StatusOnline:
			in.Online++
			latencySum += n.Latency
		case engine.StatusDegraded:
			in.Degraded++
		case engine.StatusOffline:
			in.Offline++
		}
	}
	if in.Online > 0 {
		in.AvgLatencyMs = float64(latencySum) / float64(in.Online)
	}
	return in
}

// stateFromScore maps a numeric score to a named health state.
func stateFromScore(score float64) string {
	switch {
	case score >= ThresholdHealthy:
		return StateHealthy
	case score >= ThresholdDegraded:
		return StateDegraded
	default:
		return StateCritical
	}
}

// clamp01 restricts v to the range [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
