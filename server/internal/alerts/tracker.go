package alerts

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/netpulse/netpulse/server/internal/config"
	"github.com/netpulse/netpulse/server/internal/engine"
)

const (
	defaultCooldown   = 15 * time.Minute
	maxHistoryLen     = 200
	recentWindowHours = 1
)

// Alert states.
const (
	StateFiring   = "firing"
	StateResolved = "resolved"
)

// Alert is one tracked alarm condition on one node. Repeated alarms with the
// same node and severity fold into a single Alert while it is firing.
type Alert struct {
	ID          string     `json:"id"`
	EventID     string     `json:"event_id"` // engine event that opened the alert
	NodeID      string     `json:"node_id"`
	Severity    string     `json:"severity"`
	Message     string     `json:"message"`
	Occurrences int        `json:"occurrences"`
	FiredAt     time.Time  `json:"fired_at"`
	LastSeen    time.Time  `json:"last_seen"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	State       string     `json:"state"` // "firing" | "resolved"

	notified bool // firing notification was sent; gates the resolved one
}

// Tracker folds the engine's ALARM events into active alerts, resolves them
// when the node recovers, and delivers webhook notifications.
//
// Tracker is safe for concurrent use.
type Tracker struct {
	mu         sync.Mutex
	webhooks   []config.WebhookConfig
	cooldown   time.Duration
	active     map[string]*Alert    // key: "severity:nodeID"
	lastNotify map[string]time.Time // last firing notification per key
	history    []*Alert             // recently resolved alerts
	client     *http.Client
	now        func() time.Time
	deliverFn  func(*Alert) // replaced in tests; defaults to async webhook delivery
}

var _ engine.Subscriber = (*Tracker)(nil)

// New creates a Tracker from the alerts configuration. A Tracker with no
// webhooks still tracks alerts; delivery becomes a no-op.
func New(cfg config.AlertsConfig) *Tracker {
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	t := &Tracker{
		webhooks:   cfg.Webhooks,
		cooldown:   cooldown,
		active:     make(map[string]*Alert),
		lastNotify: make(map[string]time.Time),
		client:     &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
	t.deliverFn = func(a *Alert) { go t.deliver(a) }
	return t
}

// Reconfigure swaps the webhook targets and cooldown, e.g. on config reload.
func (t *Tracker) Reconfigure(cfg config.AlertsConfig) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.webhooks = cfg.Webhooks
	if cfg.Cooldown > 0 {
		t.cooldown = cfg.Cooldown
	}
}

// HandleEvent updates alert state from one engine event.
func (t *Tracker) HandleEvent(ev engine.Event) error {
	switch p := ev.Payload.(type) {
	case engine.Alarm:
		t.fire(ev, p)
	case engine.StatusChange:
		if p.Previous == engine.StatusOffline {
			t.resolve(engine.SeverityCritical, ev.NodeID)
		}
	case engine.LatencyUpdate:
		if p.Latency <= engine.HighLatencyThreshold {
			t.resolve(engine.SeverityWarning, ev.NodeID)
		}
	case engine.ConnectionChange:
		if p.Connections >= engine.LowConnectionsThreshold {
			t.resolve(engine.SeverityInfo, ev.NodeID)
		}
	}
	return nil
}

func alertKey(sev engine.Severity, nodeID string) string {
	return string(sev) + ":" + nodeID
}

func (t *Tracker) fire(ev engine.Event, alarm engine.Alarm) {
	key := alertKey(alarm.Severity, ev.NodeID)
	now := t.now()

	t.mu.Lock()
	if a, ok := t.active[key]; ok {
		a.Occurrences++
		a.LastSeen = ev.Timestamp
		a.Message = alarm.Message
		t.mu.Unlock()
		return
	}

	a := &Alert{
		ID:          fmt.Sprintf("%s:%d", key, ev.Timestamp.UnixNano()),
		EventID:     ev.ID,
		NodeID:      ev.NodeID,
		Severity:    string(alarm.Severity),
		Message:     alarm.Message,
		Occurrences: 1,
		FiredAt:     ev.Timestamp,
		LastSeen:    ev.Timestamp,
		State:       StateFiring,
	}
	t.active[key] = a

	notify := now.Sub(t.lastNotify[key]) > t.cooldown
	if notify {
		t.lastNotify[key] = now
		a.notified = true
	}
	alertCopy := *a
	t.mu.Unlock()

	slog.Warn("alert fired",
		"node", ev.NodeID,
		"severity", alarm.Severity,
		"message", alarm.Message,
	)
	if notify {
		t.deliverFn(&alertCopy)
	}
}

func (t *Tracker) resolve(sev engine.Severity, nodeID string) {
	key := alertKey(sev, nodeID)

	t.mu.Lock()
	a, ok := t.active[key]
	if !ok {
		t.mu.Unlock()
		return
	}
	resolved := t.now()
	a.State = StateResolved
	a.ResolvedAt = &resolved
	delete(t.active, key)

	t.history = append(t.history, a)
	if len(t.history) > maxHistoryLen {
		t.history = t.history[len(t.history)-maxHistoryLen:]
	}
	alertCopy := *a
	t.mu.Unlock()

	slog.Info("alert resolved", "node", nodeID, "severity", sev)
	if alertCopy.notified {
		t.deliverFn(&alertCopy)
	}
}

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour, newest first.
func (t *Tracker) Active() []*Alert {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-recentWindowHours * time.Hour)
	out := make([]*Alert, 0, len(t.active))

	for _, a := range t.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range t.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FiredAt.Equal(out[j].FiredAt) {
			return out[i].FiredAt.After(out[j].FiredAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// FiringCount returns the number of alerts currently firing, by severity.
func (t *Tracker) FiringCount() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int, 3)
	for _, a := range t.active {
		out[a.Severity]++
	}
	return out
}
