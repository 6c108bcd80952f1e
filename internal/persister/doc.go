// Package persister drains the telemetry feed into the range store.
//
// It is the only component that moves the durable group cursor: an entry's
// cursor is committed strictly after its store write succeeds, so a crash
// between write and commit redelivers the entry rather than losing it.
package persister
