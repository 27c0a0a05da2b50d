package sessiongate

import (
	"sync/atomic"
	"time"
)

// MetricID names a gate counter.
type MetricID uint16

const (
	// MetricSessionInitialized counts completed startup reads.
	MetricSessionInitialized MetricID = iota
	// MetricStorageFailure counts storage reads, writes or deletes that failed.
	MetricStorageFailure
	MetricLogin
	MetricLogout
	// MetricRedirect counts redirects issued by the guard.
	MetricRedirect
	MetricSignInSuccess
	MetricSignInFailure
	MetricRegisterSuccess
	MetricRegisterFailure
	// MetricSubmitRejected counts submissions refused before any request:
	// missing fields or one already in flight.
	MetricSubmitRejected
	// MetricExchangeLatency is the only histogram: credential round trips.
	MetricExchangeLatency
	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricSessionInitialized: "session_initialized",
	MetricStorageFailure:     "storage_failure",
	MetricLogin:              "login",
	MetricLogout:             "logout",
	MetricRedirect:           "redirect",
	MetricSignInSuccess:      "sign_in_success",
	MetricSignInFailure:      "sign_in_failure",
	MetricRegisterSuccess:    "register_success",
	MetricRegisterFailure:    "register_failure",
	MetricSubmitRejected:     "submit_rejected",
	MetricExchangeLatency:    "exchange_latency",
}

// String returns the snake_case metric name.
func (id MetricID) String() string {
	if id >= metricIDCount {
		return "unknown"
	}
	return metricNames[id]
}

// MetricIDs lists every counter in declaration order.
func MetricIDs() []MetricID {
	ids := make([]MetricID, 0, metricIDCount)
	for id := MetricID(0); id < metricIDCount; id++ {
		ids = append(ids, id)
	}
	return ids
}

// HistogramBounds are the upper bounds of the latency buckets; the last
// bucket is unbounded.
var HistogramBounds = [histBucketCount - 1]time.Duration{
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
	2500 * time.Millisecond,
}

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a set of lock-free counters. A nil or disabled Metrics ignores
// writes.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy. Histogram buckets are
// non-cumulative.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns counters configured by cfg. Disabled metrics ignore
// every update.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d for MetricExchangeLatency; other ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricExchangeLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

// Value returns the current count for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and histogram.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricExchangeLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricExchangeLatency].buckets[i])
		}
		s.Histograms[MetricExchangeLatency] = buckets
	}
	return s
}

func bucketIndex(d time.Duration) int {
	for i, bound := range HistogramBounds {
		if d <= bound {
			return i
		}
	}
	return histBucketCount - 1
}
