package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/netpulse/netpulse/server/internal/engine"
)

type staticFleet []engine.Node

func (f staticFleet) Nodes() []engine.Node { return f }

// gather returns the registry's families keyed by name.
func gather(t *testing.T, m *Metrics) map[string]*dto.MetricFamily {
	t.Helper()
	mfs, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(mfs))
	for _, mf := range mfs {
		out[mf.GetName()] = mf
	}
	return out
}

// valueWith returns the value of the first metric in mf whose labels include
// all of want.
func valueWith(mf *dto.MetricFamily, want map[string]string) (float64, bool) {
	if mf == nil {
		return 0, false
	}
	for _, m := range mf.GetMetric() {
		labels := map[string]string{}
		for _, lp := range m.GetLabel() {
			labels[lp.GetName()] = lp.GetValue()
		}
		match := true
		for k, v := range want {
			if labels[k] != v {
				match = false
				break
			}
		}
		if !match {
			continue
		}
		switch {
		case m.Counter != nil:
			return m.Counter.GetValue(), true
		case m.Gauge != nil:
			return m.Gauge.GetValue(), true
		}
	}
	return 0, false
}

func TestEventEmitted_CountsByTypeAndSeverity(t *testing.T) {
	m := New()
	m.EventEmitted(engine.Event{Payload: engine.LatencyUpdate{Latency: 120}})
	m.EventEmitted(engine.Event{Payload: engine.Alarm{Severity: engine.SeverityCritical}})
	m.EventEmitted(engine.Event{Payload: engine.Alarm{Severity: engine.SeverityCritical}})

	mfs := gather(t, m)
	if v, _ := valueWith(mfs["netpulse_events_total"], map[string]string{"type": "ALARM"}); v != 2 {
		t.Errorf("events_total{type=ALARM}: got %v, want 2", v)
	}
	if v, _ := valueWith(mfs["netpulse_events_total"], map[string]string{"type": "LATENCY_UPDATE"}); v != 1 {
		t.Errorf("events_total{type=LATENCY_UPDATE}: got %v, want 1", v)
	}
	if v, _ := valueWith(mfs["netpulse_alarms_total"], map[string]string{"severity": "critical"}); v != 2 {
		t.Errorf("alarms_total{severity=critical}: got %v, want 2", v)
	}
}

func TestTickCompleted(t *testing.T) {
	m := New()
	m.TickCompleted(3 * time.Millisecond)
	m.TickCompleted(time.Millisecond)

	mfs := gather(t, m)
	if v, _ := valueWith(mfs["netpulse_ticks_total"], nil); v != 2 {
		t.Errorf("ticks_total: got %v, want 2", v)
	}
	h := mfs["netpulse_tick_duration_seconds"]
	if h == nil || h.GetMetric()[0].GetHistogram().GetSampleCount() != 2 {
		t.Errorf("tick_duration_seconds: expected 2 samples")
	}
}

func TestSubscriberFailed(t *testing.T) {
	m := New()
	m.SubscriberFailed()
	if v, _ := valueWith(gather(t, m)["netpulse_subscriber_failures_total"], nil); v != 1 {
		t.Errorf("subscriber_failures_total: got %v, want 1", v)
	}
}

func TestTrackFleet_ExportsNodeGauges(t *testing.T) {
	m := New()
	m.TrackFleet(staticFleet{
		{ID: "node-1", Name: "east", Status: engine.StatusOnline, Latency: 120, Connections: 80},
		{ID: "node-2", Name: "west", Status: engine.StatusOffline, Latency: 410, Connections: 12},
	})

	mfs := gather(t, m)
	if v, _ := valueWith(mfs["netpulse_node_latency_milliseconds"], map[string]string{"node": "node-2"}); v != 410 {
		t.Errorf("node latency: got %v, want 410", v)
	}
	if v, _ := valueWith(mfs["netpulse_node_connections"], map[string]string{"node": "node-1"}); v != 80 {
		t.Errorf("node connections: got %v, want 80", v)
	}
	if v, _ := valueWith(mfs["netpulse_node_status"], map[string]string{"node": "node-2", "status": "offline"}); v != 1 {
		t.Errorf("node-2 offline: got %v, want 1", v)
	}
	if v, _ := valueWith(mfs["netpulse_node_status"], map[string]string{"node": "node-2", "status": "online"}); v != 0 {
		t.Errorf("node-2 online: got %v, want 0", v)
	}
}

func TestTrackClients(t *testing.T) {
	m := New()
	n := 3
	m.TrackClients(func() int { return n })

	if v, _ := valueWith(gather(t, m)["netpulse_ws_clients"], nil); v != 3 {
		t.Errorf("ws_clients: got %v, want 3", v)
	}
	n = 1
	if v, _ := valueWith(gather(t, m)["netpulse_ws_clients"], nil); v != 1 {
		t.Errorf("ws_clients after change: got %v, want 1", v)
	}
}

func TestHandler_ServesTextExposition(t *testing.T) {
	m := New()
	m.TrackFleet(staticFleet{{ID: "node-1", Name: "east", Status: engine.StatusDegraded, Latency: 99}})
	m.TickCompleted(time.Millisecond)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}

	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(rr.Body)
	if err != nil {
		t.Fatalf("parse exposition: %v", err)
	}
	if v, _ := valueWith(mfs["netpulse_ticks_total"], nil); v != 1 {
		t.Errorf("ticks_total: got %v, want 1", v)
	}
	if v, _ := valueWith(mfs["netpulse_node_status"], map[string]string{"status": "degraded"}); v != 1 {
		t.Errorf("node_status{degraded}: got %v, want 1", v)
	}
	if _, ok := mfs["go_goroutines"]; !ok {
		t.Error("go_goroutines: missing runtime collector")
	}
}
