package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"

	"github.com/netpulse/netpulse/server/internal/api"
	"github.com/netpulse/netpulse/server/internal/engine"
	"github.com/netpulse/netpulse/server/internal/store"
	wsHub "github.com/netpulse/netpulse/server/internal/ws"
)

const testInterval = 20 * time.Millisecond

// --- helpers ----------------------------------------------------------------

func newEngine(t *testing.T, names ...string) *engine.Engine {
	t.Helper()
	e, err := engine.New(engine.Options{Nodes: names, Rand: engine.NewRand(5), Clock: clock.NewMock()})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return e
}

// startHub starts a test HTTP server with the hub as its handler.
// The hub's Run loop is started with a cancellable context.
// Returns the ws:// URL, the hub, and a cleanup function.
func startHub(t *testing.T, src api.Sources) (wsURL string, hub *wsHub.Hub, cancel func()) {
	t.Helper()

	hub = wsHub.New(src, testInterval)
	ctx, cancelFn := context.WithCancel(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancelFn()
		srv.Close()
	})

	wsURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	return wsURL, hub, cancelFn
}

// dial connects a WebSocket client to wsURL and returns the connection.
func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readMessage reads one message from conn with a short deadline.
func readMessage(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(msg, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return m
}

// readUntil reads messages until one has the given event name.
func readUntil(t *testing.T, conn *websocket.Conn, event string) map[string]interface{} {
	t.Helper()
	for i := 0; i < 200; i++ {
		if m := readMessage(t, conn); m["event"] == event {
			return m
		}
	}
	t.Fatalf("no %q message received", event)
	return nil
}

// --- tests ------------------------------------------------------------------

func TestHub_Connect_ReceivesImmediateSnapshot(t *testing.T) {
	wsURL, _, _ := startHub(t, api.Sources{Fleet: newEngine(t, "a", "b")})

	conn := dial(t, wsURL)
	m := readMessage(t, conn)

	if m["event"] != "snapshot" {
		t.Errorf("event: got %v, want snapshot", m["event"])
	}
	data, ok := m["data"].(map[string]interface{})
	if !ok {
		t.Fatal("data: missing or wrong type")
	}
	if data["generated_at"] == nil || data["generated_at"] == "" {
		t.Error("generated_at: missing")
	}
	nodes, ok := data["nodes"].([]interface{})
	if !ok || len(nodes) != 2 {
		t.Errorf("nodes: got %v, want 2 nodes", data["nodes"])
	}
}

func TestHub_CountClients_MultipleClients(t *testing.T) {
	wsURL, hub, _ := startHub(t, api.Sources{Fleet: newEngine(t)})

	for i := 0; i < 3; i++ {
		conn := dial(t, wsURL)
		readMessage(t, conn) // consume initial message
	}

	time.Sleep(10 * time.Millisecond)
	if n := hub.Count(); n != 3 {
		t.Errorf("Count: got %d, want 3", n)
	}
}

func TestHub_CountClients_DecreasesOnDisconnect(t *testing.T) {
	wsURL, hub, _ := startHub(t, api.Sources{Fleet: newEngine(t)})

	conn := dial(t, wsURL)
	readMessage(t, conn)
	time.Sleep(10 * time.Millisecond)

	if n := hub.Count(); n != 1 {
		t.Errorf("Count before disconnect: got %d, want 1", n)
	}

	conn.Close()
	time.Sleep(50 * time.Millisecond) // let readPump detect the close

	if n := hub.Count(); n != 0 {
		t.Errorf("Count after disconnect: got %d, want 0", n)
	}
}

func TestHub_ReceivesBroadcastOnTick(t *testing.T) {
	e := newEngine(t, "a")
	wsURL, _, _ := startHub(t, api.Sources{Fleet: e})

	conn := dial(t, wsURL)
	readMessage(t, conn) // consume immediate snapshot

	for i := 0; i < 5; i++ {
		e.Tick()
	}

	m := readUntil(t, conn, wsHub.EventSnapshot)
	data := m["data"].(map[string]interface{})
	if _, ok := data["stats"].(map[string]interface{}); !ok {
		t.Error("broadcast snapshot: missing stats")
	}
}

func TestHub_ForwardsEngineEvents(t *testing.T) {
	e := newEngine(t, "a", "b", "c")
	st := store.New(50, 0)
	e.Subscribe(st)
	wsURL, hub, _ := startHub(t, api.Sources{Fleet: e, Events: st})
	e.Subscribe(hub)

	conn := dial(t, wsURL)
	readMessage(t, conn)

	for st.Count() == 0 {
		e.Tick()
	}

	m := readUntil(t, conn, wsHub.EventEngine)
	data := m["data"].(map[string]interface{})
	for _, key := range []string{"id", "type", "timestamp", "nodeId", "payload"} {
		if _, ok := data[key]; !ok {
			t.Errorf("event message missing %q: %v", key, data)
		}
	}
}

func TestHub_HandleEvent_NoClients(t *testing.T) {
	hub := wsHub.New(api.Sources{Fleet: newEngine(t)}, testInterval)
	err := hub.HandleEvent(engine.Event{ID: "x", NodeID: "node-1", Payload: engine.LatencyUpdate{Latency: 90}})
	if err != nil {
		t.Errorf("HandleEvent: %v", err)
	}
}

func TestHub_CancelContextClosesConnections(t *testing.T) {
	wsURL, hub, cancel := startHub(t, api.Sources{Fleet: newEngine(t)})

	conn := dial(t, wsURL)
	readMessage(t, conn)
	time.Sleep(10 * time.Millisecond)

	cancel() // signal shutdown

	// After cancel, hub should close all clients.
	time.Sleep(50 * time.Millisecond)
	if n := hub.Count(); n != 0 {
		t.Errorf("Count after cancel: got %d, want 0", n)
	}
}

func TestHub_NonWebSocketRequest_Returns400(t *testing.T) {
	hub := wsHub.New(api.Sources{Fleet: newEngine(t)}, testInterval)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	defer srv.Close()

	// Plain HTTP GET without WebSocket upgrade headers → 400
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}
