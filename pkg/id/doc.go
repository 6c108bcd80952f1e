// Package id generates trace IDs for ingested telemetry events.
//
// A trace ID is a uint64 assigned once at ingress and never reassigned. It
// is the sole correlation key across the feed, the store, and the
// reconciliation reports, so the generator guarantees strict monotonicity
// per process even when the wall clock stalls or steps backwards.
package id
