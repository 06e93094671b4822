package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/netpulse/netpulse/server/internal/config"
	"github.com/netpulse/netpulse/server/internal/engine"
)

// notification is the body posted to generic "http" webhooks. It flattens
// the alert into the engine's vocabulary so receivers can route on node and
// severity without unpacking a nested object.
type notification struct {
	Source      string           `json:"source"`
	EventType   engine.EventType `json:"event_type"`
	EventID     string           `json:"event_id"`
	NodeID      string           `json:"node_id"`
	Severity    engine.Severity  `json:"severity"`
	State       string           `json:"state"`
	Message     string           `json:"message"`
	Occurrences int              `json:"occurrences"`
	FiredAt     time.Time        `json:"fired_at"`
	LastSeen    time.Time        `json:"last_seen"`
	ResolvedAt  *time.Time       `json:"resolved_at,omitempty"`
	Duration    string           `json:"duration,omitempty"`
	Alert       *Alert           `json:"alert"`
}

func newNotification(a *Alert) notification {
	n := notification{
		Source:      "netpulse",
		EventType:   engine.TypeAlarm,
		EventID:     a.EventID,
		NodeID:      a.NodeID,
		Severity:    engine.Severity(a.Severity),
		State:       a.State,
		Message:     a.Message,
		Occurrences: a.Occurrences,
		FiredAt:     a.FiredAt,
		LastSeen:    a.LastSeen,
		ResolvedAt:  a.ResolvedAt,
		Alert:       a,
	}
	if a.ResolvedAt != nil {
		n.Duration = a.ResolvedAt.Sub(a.FiredAt).Round(time.Second).String()
	}
	return n
}

// deliver sends webhook notifications for a to all configured targets.
// Errors are logged but do not affect the caller.
func (t *Tracker) deliver(a *Alert) {
	t.mu.Lock()
	hooks := make([]config.WebhookConfig, len(t.webhooks))
	copy(hooks, t.webhooks)
	t.mu.Unlock()

	n := newNotification(a)
	for _, wh := range hooks {
		url := wh.URL()
		if url == "" {
			continue
		}

		var err error
		switch wh.Type {
		case "slack":
			err = t.sendSlack(url, n)
		case "teams":
			err = t.sendTeams(url, n)
		case "http":
			err = t.sendHTTP(url, n)
		default:
			slog.Warn("alerts: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		if err != nil {
			slog.Error("alerts: webhook delivery failed",
				"type", wh.Type,
				"node", n.NodeID,
				"err", err,
			)
		} else {
			slog.Debug("alerts: webhook delivered",
				"type", wh.Type,
				"node", n.NodeID,
				"state", n.State,
				"occurrences", n.Occurrences,
			)
		}
	}
}

// summary is the one-line form of n behind the given severity label, e.g.
// "[WARNING] node-2 firing (x3): high latency detected: 320ms".
func (n notification) summary(label string) string {
	line := fmt.Sprintf("%s %s %s", label, n.NodeID, n.State)
	if n.Occurrences > 1 {
		line += fmt.Sprintf(" (x%d)", n.Occurrences)
	}
	if n.Duration != "" {
		line += " after " + n.Duration
	}
	return line + ": " + n.Message
}

func (t *Tracker) sendSlack(url string, n notification) error {
	body, _ := json.Marshal(map[string]string{
		"text": n.summary("*" + severityLabel(n.Severity) + "*"),
	})
	return t.post(url, body)
}

func (t *Tracker) sendTeams(url string, n notification) error {
	facts := []map[string]string{
		{"name": "Node", "value": n.NodeID},
		{"name": "Severity", "value": string(n.Severity)},
		{"name": "Occurrences", "value": fmt.Sprint(n.Occurrences)},
		{"name": "Fired at", "value": n.FiredAt.UTC().Format(time.RFC3339)},
	}
	if n.Duration != "" {
		facts = append(facts, map[string]string{"name": "Duration", "value": n.Duration})
	}
	payload := map[string]interface{}{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": severityColor(n.Severity),
		"summary":    n.NodeID,
		"title":      fmt.Sprintf("NetPulse Alert (%s): %s", n.State, n.NodeID),
		"text":       n.summary(severityLabel(n.Severity)),
		"sections":   []map[string]interface{}{{"facts": facts}},
	}
	body, _ := json.Marshal(payload)
	return t.post(url, body)
}

func (t *Tracker) sendHTTP(url string, n notification) error {
	body, _ := json.Marshal(n)
	return t.post(url, body)
}

func (t *Tracker) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func severityLabel(s engine.Severity) string {
	switch s {
	case engine.SeverityCritical:
		return "[CRITICAL]"
	case engine.SeverityWarning:
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

func severityColor(s engine.Severity) string {
	switch s {
	case engine.SeverityCritical:
		return "FF4F6A"
	case engine.SeverityWarning:
		return "FFAB40"
	default:
		return "00D4FF"
	}
}
