package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/netpulse/netpulse/server/internal/alerts"
	"github.com/netpulse/netpulse/server/internal/api"
	"github.com/netpulse/netpulse/server/internal/config"
	"github.com/netpulse/netpulse/server/internal/engine"
	"github.com/netpulse/netpulse/server/internal/store"
)

// --- test helpers -----------------------------------------------------------

// fakeFleet is a fixed fleet with a controllable running flag.
type fakeFleet struct {
	nodes   []engine.Node
	running bool
}

func (f *fakeFleet) Nodes() []engine.Node { return f.nodes }
func (f *fakeFleet) Node(id string) (engine.Node, bool) {
	for _, n := range f.nodes {
		if n.ID == id {
			return n, true
		}
	}
	return engine.Node{}, false
}
func (f *fakeFleet) Start()                  { f.running = true }
func (f *fakeFleet) Stop()                   { f.running = false }
func (f *fakeFleet) Running() bool           { return f.running }
func (f *fakeFleet) Interval() time.Duration { return 2 * time.Second }
func (f *fakeFleet) Ticks() uint64           { return 7 }

func node(id string, status engine.Status, latency, conns int) engine.Node {
	return engine.Node{ID: id, Name: "Node-" + id, Status: status, Latency: latency, Connections: conns}
}

func mixedFleet() *fakeFleet {
	return &fakeFleet{nodes: []engine.Node{
		node("node-1", engine.StatusOnline, 100, 120),
		node("node-2", engine.StatusOnline, 151, 80),
		node("node-3", engine.StatusDegraded, 400, 30),
		node("node-4", engine.StatusOffline, 250, 60),
	}}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func post(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, path, nil))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

// --- /api/v1/health ---------------------------------------------------------

func TestHealth_MixedFleet(t *testing.T) {
	h := api.New(api.Sources{Fleet: mixedFleet()})
	rr := get(t, h, "/api/v1/health")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp map[string]interface{}
	decode(t, rr, &resp)

	for key, want := range map[string]float64{
		"node_count": 4, "online_count": 2, "degraded_count": 1, "offline_count": 1, "alert_count": 0,
	} {
		if resp[key].(float64) != want {
			t.Errorf("%s: got %v, want %v", key, resp[key], want)
		}
	}
	if resp["state"] == "" || resp["score"] == nil {
		t.Errorf("missing score/state: %v", resp)
	}
}

func TestHealth_CountsFiringAlarms(t *testing.T) {
	tr := alerts.New(config.AlertsConfig{})
	tr.HandleEvent(engine.Event{NodeID: "node-4", Payload: engine.Alarm{Severity: engine.SeverityCritical, Message: "node x is offline"}}) //nolint:errcheck

	h := api.New(api.Sources{Fleet: mixedFleet(), Alarms: tr})
	var resp api.HealthResponse
	decode(t, get(t, h, "/api/v1/health"), &resp)
	if resp.AlertCount != 1 {
		t.Errorf("alert_count: got %d, want 1", resp.AlertCount)
	}
}

func TestHealth_MethodNotAllowed(t *testing.T) {
	h := api.New(api.Sources{Fleet: mixedFleet()})
	if rr := post(t, h, "/api/v1/health"); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}

// --- /api/v1/nodes ----------------------------------------------------------

func TestListNodes_CreationOrder(t *testing.T) {
	h := api.New(api.Sources{Fleet: mixedFleet()})
	rr := get(t, h, "/api/v1/nodes")

	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}
	var resp []map[string]interface{}
	decode(t, rr, &resp)
	if len(resp) != 4 {
		t.Fatalf("len: got %d, want 4", len(resp))
	}
	for i, want := range []string{"node-1", "node-2", "node-3", "node-4"} {
		if resp[i]["id"] != want {
			t.Errorf("nodes[%d].id: got %v, want %s", i, resp[i]["id"], want)
		}
	}
	if _, ok := resp[0]["latencyHistory"]; !ok {
		t.Error("node JSON missing latencyHistory")
	}
}

func TestGetNode_Found(t *testing.T) {
	h := api.New(api.Sources{Fleet: mixedFleet()})
	rr := get(t, h, "/api/v1/nodes/node-3")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var n engine.Node
	decode(t, rr, &n)
	if n.Status != engine.StatusDegraded || n.Latency != 400 {
		t.Errorf("node-3: got %+v", n)
	}
}

func TestGetNode_NotFound(t *testing.T) {
	h := api.New(api.Sources{Fleet: mixedFleet()})
	rr := get(t, h, "/api/v1/nodes/node-99")

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rr.Code)
	}
	var resp map[string]string
	decode(t, rr, &resp)
	if resp["error"] == "" {
		t.Error("expected error message in body")
	}
}

func TestGetNode_BareSlashLists(t *testing.T) {
	h := api.New(api.Sources{Fleet: mixedFleet()})
	var resp []interface{}
	decode(t, get(t, h, "/api/v1/nodes/"), &resp)
	if len(resp) != 4 {
		t.Errorf("len: got %d, want 4", len(resp))
	}
}

// --- /api/v1/events ---------------------------------------------------------

func TestEvents_NewestFirstWithLimit(t *testing.T) {
	st := store.New(10, 0)
	for _, id := range []string{"e1", "e2", "e3"} {
		st.HandleEvent(engine.Event{ID: id, NodeID: "node-1", Payload: engine.LatencyUpdate{Latency: 120}}) //nolint:errcheck
	}
	h := api.New(api.Sources{Fleet: mixedFleet(), Events: st})

	var all []map[string]interface{}
	decode(t, get(t, h, "/api/v1/events"), &all)
	if len(all) != 3 || all[0]["id"] != "e3" {
		t.Fatalf("events: got %v, want e3 first of 3", all)
	}
	if all[0]["type"] != "LATENCY_UPDATE" {
		t.Errorf("type: got %v, want LATENCY_UPDATE", all[0]["type"])
	}

	var two []map[string]interface{}
	decode(t, get(t, h, "/api/v1/events?limit=2"), &two)
	if len(two) != 2 || two[1]["id"] != "e2" {
		t.Errorf("limit=2: got %v", two)
	}
}

func TestEvents_BadLimit(t *testing.T) {
	h := api.New(api.Sources{Fleet: mixedFleet(), Events: store.New(5, 0)})
	for _, q := range []string{"abc", "0", "-3"} {
		if rr := get(t, h, "/api/v1/events?limit="+q); rr.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: got %d, want 400", q, rr.Code)
		}
	}
}

func TestEvents_NoLogConfigured(t *testing.T) {
	h := api.New(api.Sources{Fleet: mixedFleet()})
	rr := get(t, h, "/api/v1/events")
	if body := rr.Body.String(); body != "[]\n" {
		t.Errorf("body: got %q, want empty array", body)
	}
}

// --- /api/v1/alarms ---------------------------------------------------------

func TestAlarms(t *testing.T) {
	tr := alerts.New(config.AlertsConfig{})
	tr.HandleEvent(engine.Event{NodeID: "node-2", Payload: engine.Alarm{Severity: engine.SeverityWarning, Message: "high latency detected: 320ms"}}) //nolint:errcheck

	h := api.New(api.Sources{Fleet: mixedFleet(), Alarms: tr})
	var resp []map[string]interface{}
	decode(t, get(t, h, "/api/v1/alarms"), &resp)
	if len(resp) != 1 {
		t.Fatalf("len: got %d, want 1", len(resp))
	}
	if resp[0]["node_id"] != "node-2" || resp[0]["state"] != "firing" {
		t.Errorf("alarm: got %v", resp[0])
	}
}

// --- /api/v1/stats ----------------------------------------------------------

func TestStats(t *testing.T) {
	h := api.New(api.Sources{Fleet: mixedFleet()})
	var resp api.StatsResponse
	decode(t, get(t, h, "/api/v1/stats"), &resp)

	want := api.StatsResponse{
		ActiveNodes:      2,
		TotalNodes:       4,
		AvgLatencyMs:     126, // (100+151)/2 = 125.5 rounds half up
		TotalConnections: 200,
		CriticalAlarms:   1,
	}
	if resp != want {
		t.Errorf("stats: got %+v, want %+v", resp, want)
	}
}

func TestComputeStats_NoneOnline(t *testing.T) {
	got := api.ComputeStats([]engine.Node{node("a", engine.StatusOffline, 300, 90)})
	if got.AvgLatencyMs != 0 || got.TotalConnections != 0 || got.CriticalAlarms != 1 {
		t.Errorf("ComputeStats: got %+v", got)
	}
}

// --- /api/v1/snapshot -------------------------------------------------------

func TestSnapshot(t *testing.T) {
	h := api.New(api.Sources{Fleet: mixedFleet(), Events: store.New(5, 0)})
	rr := get(t, h, "/api/v1/snapshot")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp map[string]interface{}
	decode(t, rr, &resp)

	for _, key := range []string{"nodes", "stats", "health", "events", "alarms", "running", "generated_at"} {
		if _, ok := resp[key]; !ok {
			t.Errorf("snapshot missing %q", key)
		}
	}
	if _, err := time.Parse(time.RFC3339, resp["generated_at"].(string)); err != nil {
		t.Errorf("generated_at not RFC3339: %v", resp["generated_at"])
	}
}

// --- /api/v1/simulation -----------------------------------------------------

func TestSimulation_StartStop(t *testing.T) {
	fleet := mixedFleet()
	h := api.New(api.Sources{Fleet: fleet})

	var resp api.SimulationResponse
	decode(t, post(t, h, "/api/v1/simulation/start"), &resp)
	if !resp.Running || !fleet.running {
		t.Error("start: expected running")
	}
	if resp.TickIntervalMs != 2000 || resp.Ticks != 7 {
		t.Errorf("start: got %+v", resp)
	}

	decode(t, post(t, h, "/api/v1/simulation/stop"), &resp)
	if resp.Running || fleet.running {
		t.Error("stop: expected stopped")
	}

	decode(t, get(t, h, "/api/v1/simulation"), &resp)
	if resp.Running {
		t.Error("GET simulation: expected stopped")
	}
}

func TestSimulation_WrongMethods(t *testing.T) {
	h := api.New(api.Sources{Fleet: mixedFleet()})
	if rr := get(t, h, "/api/v1/simulation/start"); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET start: got %d, want 405", rr.Code)
	}
	if rr := get(t, h, "/api/v1/simulation/stop"); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET stop: got %d, want 405", rr.Code)
	}
	if rr := post(t, h, "/api/v1/simulation"); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST simulation: got %d, want 405", rr.Code)
	}
}

func TestSimulation_RealEngine(t *testing.T) {
	e, err := engine.New(engine.Options{Clock: clock.NewMock()})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	h := api.New(api.Sources{Fleet: e})

	var resp api.SimulationResponse
	decode(t, post(t, h, "/api/v1/simulation/start"), &resp)
	if !resp.Running {
		t.Error("start: expected running")
	}
	decode(t, post(t, h, "/api/v1/simulation/start"), &resp)
	if !resp.Running {
		t.Error("second start: expected still running")
	}
	decode(t, post(t, h, "/api/v1/simulation/stop"), &resp)
	if resp.Running || e.Running() {
		t.Error("stop: expected stopped")
	}
}
