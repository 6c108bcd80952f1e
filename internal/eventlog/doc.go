// Package eventlog implements the durable telemetry feed: an append-only,
// partitioned log over Pebble.
//
// Each entry is framed with a varint header length and a CRC32C trailer; the
// header carries the envelope emission time in milliseconds, which retention
// trimming keys on. Consumers fall into two camps:
//
//   - Group consumers (the persister) track progress with a durable cursor
//     per (topic, group, partition). Cursor commits are monotonic; a commit
//     at or below the stored sequence is ignored, so redelivery after a
//     crash can only replay, never lose.
//   - Scan readers (snapshot, anomaly, reconciliation) read from the
//     earliest retained entry on every call and never move any cursor.
//
// Sequence numbers are per-partition, start at 1, and survive restarts via
// a small metadata key.
package eventlog
