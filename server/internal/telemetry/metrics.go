package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/netpulse/netpulse/server/internal/engine"
)

const namespace = "netpulse"

// Metrics holds the Prometheus collectors for one server process. It
// implements engine.Metrics.
type Metrics struct {
	Registry *prometheus.Registry

	ticks              prometheus.Counter
	tickDuration       prometheus.Histogram
	events             *prometheus.CounterVec
	alarms             *prometheus.CounterVec
	subscriberFailures prometheus.Counter
}

var _ engine.Metrics = (*Metrics)(nil)

// New creates a Metrics backed by a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Total number of completed simulation ticks.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Time spent advancing all nodes and delivering events in one tick.",
			// 10µs .. ~80ms
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 14),
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Total number of events emitted, by type.",
		}, []string{"type"}),
		alarms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alarms_total",
			Help:      "Total number of alarms emitted, by severity.",
		}, []string{"severity"}),
		subscriberFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriber_failures_total",
			Help:      "Total number of event deliveries a subscriber failed to handle.",
		}),
	}
	m.Registry.MustRegister(
		m.ticks,
		m.tickDuration,
		m.events,
		m.alarms,
		m.subscriberFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// TickCompleted records one finished tick.
func (m *Metrics) TickCompleted(d time.Duration) {
	m.ticks.Inc()
	m.tickDuration.Observe(d.Seconds())
}

// EventEmitted counts ev by type, and alarms additionally by severity.
func (m *Metrics) EventEmitted(ev engine.Event) {
	m.events.WithLabelValues(string(ev.Type())).Inc()
	if a, ok := ev.Alarm(); ok {
		m.alarms.WithLabelValues(string(a.Severity)).Inc()
	}
}

// SubscriberFailed counts one failed delivery.
func (m *Metrics) SubscriberFailed() {
	m.subscriberFailures.Inc()
}

// TrackClients exports count as the number of connected dashboard clients.
func (m *Metrics) TrackClients(count func() int) {
	m.Registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_clients",
			Help:      "Current number of connected WebSocket clients.",
		},
		func() float64 { return float64(count()) },
	))
}

// TrackFleet exports per-node gauges read from src on every scrape.
func (m *Metrics) TrackFleet(src NodeSource) {
	m.Registry.MustRegister(newFleetCollector(src))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
