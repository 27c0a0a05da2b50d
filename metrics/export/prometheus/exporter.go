package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/deeptutor/sessiongate"
)

const namespace = "sessiongate"

// MetricsSource is satisfied by *sessiongate.Gate.
type MetricsSource interface {
	MetricsSnapshot() sessiongate.MetricsSnapshot
	AuditDropped() uint64
}

// Collector converts snapshots into Prometheus metrics.
type Collector struct {
	source   MetricsSource
	counters map[sessiongate.MetricID]*prometheus.Desc
	latency  *prometheus.Desc
	dropped  *prometheus.Desc
}

// NewCollector returns a collector reading from source.
func NewCollector(source MetricsSource) *Collector {
	c := &Collector{
		source:   source,
		counters: make(map[sessiongate.MetricID]*prometheus.Desc),
		latency: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "exchange_latency_seconds"),
			"Credential exchange round-trip time.", nil, nil),
		dropped: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "audit", "dropped_total"),
			"Audit events dropped under dispatcher backpressure.", nil, nil),
	}
	for _, id := range sessiongate.MetricIDs() {
		if id == sessiongate.MetricExchangeLatency {
			continue
		}
		c.counters[id] = prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", id.String()+"_total"),
			"sessiongate "+id.String()+" count.", nil, nil)
	}
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.counters {
		ch <- d
	}
	ch <- c.latency
	ch <- c.dropped
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.source.MetricsSnapshot()
	for id, desc := range c.counters {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(snap.Counters[id]))
	}
	if buckets, ok := snap.Histograms[sessiongate.MetricExchangeLatency]; ok {
		count, cumulative := cumulativeBuckets(buckets)
		ch <- prometheus.MustNewConstHistogram(c.latency, count, 0, cumulative)
	}
	ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(c.source.AuditDropped()))
}

// Handler serves the collector from a private registry.
func Handler(source MetricsSource) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(source))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// cumulativeBuckets turns per-bucket counts into Prometheus upper-bound
// buckets. The sum is not tracked, so histograms report a zero sum.
func cumulativeBuckets(raw []uint64) (uint64, map[float64]uint64) {
	out := make(map[float64]uint64, len(sessiongate.HistogramBounds))
	var running uint64
	for i, bound := range sessiongate.HistogramBounds {
		if i < len(raw) {
			running += raw[i]
		}
		out[bound.Seconds()] = running
	}
	if n := len(sessiongate.HistogramBounds); n < len(raw) {
		running += raw[n]
	}
	return running, out
}
