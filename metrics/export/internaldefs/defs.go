package internaldefs

import (
	jwtpair "github.com/MrEthical07/jwtpair"
)

// CounterDef binds a jwtpair counter to its exported name.
type CounterDef struct {
	ID   jwtpair.MetricID
	Name string
	Help string
}

// HistogramDef binds a jwtpair histogram to its exported name.
type HistogramDef struct {
	ID   jwtpair.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: jwtpair.MetricIssueSuccess, Name: "jwtpair_issue_success_total", Help: "Token pairs issued and registered."},
	{ID: jwtpair.MetricIssueFailure, Name: "jwtpair_issue_failure_total", Help: "Token pair issuance failures."},
	{ID: jwtpair.MetricDecodeFailure, Name: "jwtpair_decode_failure_total", Help: "Tokens rejected during verification."},
	{ID: jwtpair.MetricRefreshSuccess, Name: "jwtpair_refresh_success_total", Help: "Completed renewal token rotations."},
	{ID: jwtpair.MetricRefreshFailure, Name: "jwtpair_refresh_failure_total", Help: "Rotations that returned an error."},
	{ID: jwtpair.MetricRefreshReuseDetected, Name: "jwtpair_refresh_reuse_detected_total", Help: "Consumed renewal tokens presented again."},
	{ID: jwtpair.MetricRefreshNotFound, Name: "jwtpair_refresh_not_found_total", Help: "Renewal tokens with no tracking record."},
	{ID: jwtpair.MetricRefreshTypeMismatch, Name: "jwtpair_refresh_type_mismatch_total", Help: "Access tokens presented for rotation."},
	{ID: jwtpair.MetricStoreFailure, Name: "jwtpair_store_failure_total", Help: "Tracking store errors."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: jwtpair.MetricRefreshLatency, Name: "jwtpair_refresh_latency_seconds", Help: "Refresh latency histogram."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const (
	AuditDroppedName = "jwtpair_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// HistogramBounds are the upper bounds, in seconds, matching the buckets
// jwtpair.Metrics records into.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix renders HistogramBounds as instrument-name suffixes
// for backends that cannot carry an le label.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, zero-filling a missing or
// short snapshot.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals. The last
// entry is the sample count.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
