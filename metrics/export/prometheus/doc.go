// Package prometheus renders jwtpair metrics in the Prometheus text
// exposition format.
//
// [NewExporter] reads an Authenticator's MetricsSnapshot on each scrape and
// [Exporter.Handler] serves it. Counters are named jwtpair_*_total and the
// refresh latency histogram is jwtpair_refresh_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry; callers mount the Handler.
//   - Mutate authenticator state.
package prometheus
