package engine

import "time"

// Metrics receives engine instrumentation. Implementations must be safe for
// concurrent use.
type Metrics interface {
	// TickCompleted is called once per tick with its wall duration.
	TickCompleted(d time.Duration)
	// EventEmitted is called once per event before fan-out.
	EventEmitted(ev Event)
	// SubscriberFailed is called once per failed delivery.
	SubscriberFailed()
}

type nopMetrics struct{}

func (nopMetrics) TickCompleted(time.Duration) {}
func (nopMetrics) EventEmitted(Event)          {}
func (nopMetrics) SubscriberFailed()           {}
