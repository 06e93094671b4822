package engine

import (
	"encoding/json"
	"time"
)

// EventType discriminates the payload carried by an Event.
type EventType string

// Event types, named as the dashboard expects them on the wire.
const (
	TypeStatusChange     EventType = "NODE_STATUS_CHANGE"
	TypeLatencyUpdate    EventType = "LATENCY_UPDATE"
	TypeConnectionChange EventType = "CONNECTION_CHANGE"
	TypeAlarm            EventType = "ALARM"
)

// Severity is the level of an Alarm.
type Severity string

// Alarm severities.
const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Payload is the variant data of an Event. The set of implementations is
// closed: StatusChange, LatencyUpdate, ConnectionChange and Alarm.
type Payload interface {
	EventType() EventType
	isPayload()
}

// StatusChange reports a node moving between statuses. Previous never equals New.
type StatusChange struct {
	Previous Status `json:"previousStatus"`
	New      Status `json:"newStatus"`
}

// LatencyUpdate carries a newly committed latency in milliseconds.
type LatencyUpdate struct {
	Latency int `json:"latency"`
}

// ConnectionChange carries a newly committed connection count.
type ConnectionChange struct {
	Connections int `json:"connections"`
}

// Alarm signals a threshold breach.
type Alarm struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

func (StatusChange) EventType() EventType     { return TypeStatusChange }
func (LatencyUpdate) EventType() EventType    { return TypeLatencyUpdate }
func (ConnectionChange) EventType() EventType { return TypeConnectionChange }
func (Alarm) EventType() EventType            { return TypeAlarm }

func (StatusChange) isPayload()     {}
func (LatencyUpdate) isPayload()    {}
func (ConnectionChange) isPayload() {}
func (Alarm) isPayload()            {}

// Event is one observed change on a node. Events are values; subscribers
// receive their own copy.
type Event struct {
	ID        string
	Timestamp time.Time
	NodeID    string
	Payload   Payload
}

// Type returns the discriminator of the event's payload.
func (e Event) Type() EventType {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.EventType()
}

// Alarm returns the alarm payload and true when e is an ALARM event.
func (e Event) Alarm() (Alarm, bool) {
	a, ok := e.Payload.(Alarm)
	return a, ok
}

// MarshalJSON encodes the event in the dashboard's wire shape:
//
//	{"id":"…","type":"ALARM","timestamp":"…","nodeId":"node-1","payload":{…}}
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID        string    `json:"id"`
		Type      EventType `json:"type"`
		Timestamp time.Time `json:"timestamp"`
		NodeID    string    `json:"nodeId"`
		Payload   Payload   `json:"payload"`
	}{
		ID:        e.ID,
		Type:      e.Type(),
		Timestamp: e.Timestamp,
		NodeID:    e.NodeID,
		Payload:   e.Payload,
	})
}
