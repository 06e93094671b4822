package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/netpulse/netpulse/server/internal/engine"
)

// NodeSource yields the current fleet snapshot.
type NodeSource interface {
	Nodes() []engine.Node
}

var nodeStatuses = []engine.Status{engine.StatusOnline, engine.StatusDegraded, engine.StatusOffline}

// fleetCollector turns a fleet snapshot into const metrics at scrape time.
type fleetCollector struct {
	src         NodeSource
	latency     *prometheus.Desc
	connections *prometheus.Desc
	status      *prometheus.Desc
}

func newFleetCollector(src NodeSource) *fleetCollector {
	labels := []string{"node", "name"}
	return &fleetCollector{
		src: src,
		latency: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "node", "latency_milliseconds"),
			"Current simulated latency of the node.",
			labels, nil,
		),
		connections: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "node", "connections"),
			"Current simulated connection count of the node.",
			labels, nil,
		),
		status: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "node", "status"),
			"1 for the node's current status, 0 for the others.",
			append(labels, "status"), nil,
		),
	}
}

func (c *fleetCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.latency
	ch <- c.connections
	ch <- c.status
}

func (c *fleetCollector) Collect(ch chan<- prometheus.Metric) {
	for _, n := range c.src.Nodes() {
		ch <- prometheus.MustNewConstMetric(c.latency, prometheus.GaugeValue, float64(n.Latency), n.ID, n.Name)
		ch <- prometheus.MustNewConstMetric(c.connections, prometheus.GaugeValue, float64(n.Connections), n.ID, n.Name)
		for _, st := range nodeStatuses {
			var v float64
			if n.Status == st {
				v = 1
			}
			ch <- prometheus.MustNewConstMetric(c.status, prometheus.GaugeValue, v, n.ID, n.Name, string(st))
		}
	}
}
