// Package prometheus exposes sessiongate metrics as a Prometheus collector.
//
// [NewCollector] reads a [sessiongate.Gate] (or any [MetricsSource]) at
// scrape time. Counters are named sessiongate_<metric>_total; the exchange
// latency histogram is sessiongate_exchange_latency_seconds.
//
// # What this package must NOT do
//
//   - Register in the global Prometheus registry. Callers register the
//     collector where they want it.
//   - Mutate gate state.
package prometheus
