package eventlog

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"

	pebblestore "github.com/swimmingwebdev/simpletracker/internal/storage/pebble"
)

// ErrNotFound reports a missing feed entry.
var ErrNotFound = errors.New("event not found")

// AppendRecord represents a single appendable event.
type AppendRecord struct {
	// EmittedMs is the envelope emission time, stored in the record header.
	EmittedMs int64
	Payload   []byte
}

// Log provides append-only operations for one topic/partition.
type Log struct {
	db    *pebblestore.DB
	topic string
	part  uint32

	mu       sync.Mutex
	lastSeq  uint64
	notifyCh chan struct{}
}

// OpenLog initializes a Log and loads the last sequence from metadata (if any).
func OpenLog(db *pebblestore.DB, topic string, partition uint32) (*Log, error) {
	l := &Log{db: db, topic: topic, part: partition, notifyCh: make(chan struct{})}
	meta, err := db.Get(KeyFeedMeta(topic, partition))
	if err == nil && len(meta) >= 8 {
		l.lastSeq = binary.BigEndian.Uint64(meta[:8])
	}
	return l, nil
}

// Topic returns the log's topic name.
func (l *Log) Topic() string { return l.topic }

// Partition returns the log's partition index.
func (l *Log) Partition() uint32 { return l.part }

// Append appends the provided records as a single atomic batch. Returns
// assigned sequence numbers.
func (l *Log) Append(ctx context.Context, recs []AppendRecord) ([]uint64, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.db.NewBatch()
	defer b.Close()

	seqs := make([]uint64, len(recs))
	for i, r := range recs {
		l.lastSeq++
		seq := l.lastSeq
		val := EncodeRecord(EncodeHeader(r.EmittedMs), r.Payload)
		if err := b.Set(KeyFeedEntry(l.topic, l.part, seq), val, nil); err != nil {
			return nil, err
		}
		seqs[i] = seq
	}

	// Update metadata with lastSeq
	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], l.lastSeq)
	if err := b.Set(KeyFeedMeta(l.topic, l.part), meta[:], nil); err != nil {
		return nil, err
	}

	if err := l.db.CommitBatch(ctx, b); err != nil {
		return nil, err
	}
	// notify waiters
	close(l.notifyCh)
	l.notifyCh = make(chan struct{})
	return seqs, nil
}

// LastSeq returns the highest assigned sequence (0 if the partition is empty).
func (l *Log) LastSeq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastSeq
}
