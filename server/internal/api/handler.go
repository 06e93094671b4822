package api

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/netpulse/netpulse/server/internal/alerts"
	"github.com/netpulse/netpulse/server/internal/engine"
	"github.com/netpulse/netpulse/server/internal/health"
)

// defaultEventLimit matches the dashboard's event log length.
const defaultEventLimit = 50

// Fleet is the engine surface the API reads and controls.
type Fleet interface {
	Nodes() []engine.Node
	Node(id string) (engine.Node, bool)
	Start()
	Stop()
	Running() bool
	Interval() time.Duration
	Ticks() uint64
}

// EventLog serves the recent event history.
type EventLog interface {
	Recent(limit int) []engine.Event
}

// AlarmSource serves the tracked alarms.
type AlarmSource interface {
	Active() []*alerts.Alert
}

// Sources bundles what the API reads. Events and Alarms may be nil, in which
// case their endpoints return empty lists.
type Sources struct {
	Fleet  Fleet
	Events EventLog
	Alarms AlarmSource
}

func (s Sources) events(limit int) []engine.Event {
	if s.Events == nil {
		return []engine.Event{}
	}
	return s.Events.Recent(limit)
}

func (s Sources) alarms() []*alerts.Alert {
	if s.Alarms == nil {
		return []*alerts.Alert{}
	}
	return s.Alarms.Active()
}

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	src Sources
	mux *http.ServeMux
}

// New creates a Handler wired to the given sources and registers all routes.
func New(src Sources) http.Handler {
	h := &Handler{src: src, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/nodes", h.listNodes)
	h.mux.HandleFunc("/api/v1/nodes/", h.getNode) // subtree: extracts {id}
	h.mux.HandleFunc("/api/v1/events", h.events)
	h.mux.HandleFunc("/api/v1/alarms", h.alarms)
	h.mux.HandleFunc("/api/v1/stats", h.stats)
	h.mux.HandleFunc("/api/v1/snapshot", h.snapshot)
	h.mux.HandleFunc("/api/v1/simulation", h.simulation)
	h.mux.HandleFunc("/api/v1/simulation/start", h.startSimulation)
	h.mux.HandleFunc("/api/v1/simulation/stop", h.stopSimulation)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health: fleet score and per-status counts.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	in := health.FromNodes(h.src.Fleet.Nodes())
	alertCount := 0
	for _, a := range h.src.alarms() {
		if a.State == alerts.StateFiring {
			alertCount++
		}
	}
	jsonResp(w, http.StatusOK, HealthResponse{
		Output:        health.Compute(in),
		NodeCount:     in.Total,
		OnlineCount:   in.Online,
		DegradedCount: in.Degraded,
		OfflineCount:  in.Offline,
		AlertCount:    alertCount,
		Running:       h.src.Fleet.Running(),
	})
}

// listNodes returns GET /api/v1/nodes: every node in creation order.
func (h *Handler) listNodes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.src.Fleet.Nodes())
}

// getNode returns GET /api/v1/nodes/{id}: a single node.
func (h *Handler) getNode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/nodes/")
	if id == "" {
		h.listNodes(w, r)
		return
	}

	n, ok := h.src.Fleet.Node(id)
	if !ok {
		jsonErr(w, http.StatusNotFound, "node not found")
		return
	}
	jsonResp(w, http.StatusOK, n)
}

// events returns GET /api/v1/events?limit=N: recent events, newest first.
func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			jsonErr(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	jsonResp(w, http.StatusOK, h.src.events(limit))
}

// alarms returns GET /api/v1/alarms: firing plus recently resolved alarms.
func (h *Handler) alarms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.src.alarms())
}

// stats returns GET /api/v1/stats: the dashboard summary tiles.
func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, ComputeStats(h.src.Fleet.Nodes()))
}

// snapshot returns GET /api/v1/snapshot: the full dashboard document.
func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, BuildSnapshot(h.src))
}

// simulation returns GET /api/v1/simulation: whether the engine is ticking.
func (h *Handler) simulation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.simulationState())
}

func (h *Handler) startSimulation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	h.src.Fleet.Start()
	jsonResp(w, http.StatusOK, h.simulationState())
}

func (h *Handler) stopSimulation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	h.src.Fleet.Stop()
	jsonResp(w, http.StatusOK, h.simulationState())
}

func (h *Handler) simulationState() SimulationResponse {
	return SimulationResponse{
		Running:        h.src.Fleet.Running(),
		TickIntervalMs: h.src.Fleet.Interval().Milliseconds(),
		Ticks:          h.src.Fleet.Ticks(),
	}
}

// --- shared builders --------------------------------------------------------

// ComputeStats derives the summary tiles from a fleet snapshot. Latency and
// connections count online nodes only; offline nodes count as critical.
func ComputeStats(nodes []engine.Node) StatsResponse {
	st := StatsResponse{TotalNodes: len(nodes)}
	latencySum := 0
	for _, n := range nodes {
		switch n.Status {
		case engine.StatusOnline:
			st.ActiveNodes++
			latencySum += n.Latency
			st.TotalConnections += n.Connections
		case engine.StatusOffline:
			st.CriticalAlarms++
		}
	}
	if st.ActiveNodes > 0 {
		st.AvgLatencyMs = int(math.Floor(float64(latencySum)/float64(st.ActiveNodes) + 0.5))
	}
	return st
}

// BuildSnapshot assembles the full dashboard document from src.
func BuildSnapshot(src Sources) SnapshotResponse {
	nodes := src.Fleet.Nodes()
	return SnapshotResponse{
		Nodes:       nodes,
		Stats:       ComputeStats(nodes),
		Health:      health.Compute(health.FromNodes(nodes)),
		Events:      src.events(defaultEventLimit),
		Alarms:      src.alarms(),
		Running:     src.Fleet.Running(),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
