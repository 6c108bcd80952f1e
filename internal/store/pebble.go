package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/swimmingwebdev/simpletracker/internal/event"
	pebblestore "github.com/swimmingwebdev/simpletracker/internal/storage/pebble"
)

// Keyspace (lexicographically sortable by creation time):
// - st/l/{created_ms_be8}/{seq_be8} -> JSON(Location)
// - st/a/{created_ms_be8}/{seq_be8} -> JSON(Alert)
// - st/seq                          -> last assigned row sequence
var (
	locPrefix   = []byte("st/l/")
	alertPrefix = []byte("st/a/")
	seqKey      = []byte("st/seq")
)

// PebbleStore is the embedded store backend.
type PebbleStore struct {
	db *pebblestore.DB

	mu      sync.Mutex
	lastSeq uint64

	// now is the creation stamp clock, overridable in tests.
	now func() time.Time
}

// NewPebbleStore opens the embedded backend over an existing DB handle.
func NewPebbleStore(db *pebblestore.DB) (*PebbleStore, error) {
	s := &PebbleStore{db: db, now: time.Now}
	if meta, err := db.Get(seqKey); err == nil && len(meta) >= 8 {
		s.lastSeq = binary.BigEndian.Uint64(meta[:8])
	}
	return s, nil
}

// Close is a no-op; the shared DB is owned by the runtime.
func (s *PebbleStore) Close() error { return nil }

func rowKey(prefix []byte, createdMs int64, seq uint64) []byte {
	k := make([]byte, 0, len(prefix)+17)
	k = append(k, prefix...)
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(createdMs))
	k = append(k, b[:]...)
	k = append(k, '/')
	binary.BigEndian.PutUint64(b[:], seq)
	k = append(k, b[:]...)
	return k
}

func (s *PebbleStore) insert(ctx context.Context, prefix []byte, doc any) error {
	val, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeq++
	key := rowKey(prefix, s.now().UnixMilli(), s.lastSeq)

	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(key, val, nil); err != nil {
		return err
	}
	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], s.lastSeq)
	if err := b.Set(seqKey, meta[:], nil); err != nil {
		return err
	}
	return s.db.CommitBatch(ctx, b)
}

// InsertLocation writes one location ping with a fresh creation stamp.
func (s *PebbleStore) InsertLocation(ctx context.Context, loc event.Location) error {
	return s.insert(ctx, locPrefix, loc)
}

// InsertAlert writes one alert with a fresh creation stamp.
func (s *PebbleStore) InsertAlert(ctx context.Context, al event.Alert) error {
	return s.insert(ctx, alertPrefix, al)
}

// scan iterates rows with creation stamp in [start, end) and hands each raw
// value to collect.
func (s *PebbleStore) scan(prefix []byte, start, end time.Time, collect func(val []byte) error) error {
	low := rowKey(prefix, start.UnixMilli(), 0)
	hi := rowKey(prefix, end.UnixMilli(), 0)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: hi})
	if err != nil {
		return err
	}
	defer iter.Close()
	for ok := iter.First(); ok; ok = iter.Next() {
		if err := collect(iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

// QueryLocations returns location rows created within [start, end).
func (s *PebbleStore) QueryLocations(ctx context.Context, start, end time.Time) ([]event.Location, error) {
	out := []event.Location{}
	err := s.scan(locPrefix, start, end, func(val []byte) error {
		var loc event.Location
		if err := json.Unmarshal(val, &loc); err != nil {
			return err
		}
		out = append(out, loc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// QueryAlerts returns alert rows created within [start, end).
func (s *PebbleStore) QueryAlerts(ctx context.Context, start, end time.Time) ([]event.Alert, error) {
	out := []event.Alert{}
	err := s.scan(alertPrefix, start, end, func(val []byte) error {
		var al event.Alert
		if err := json.Unmarshal(val, &al); err != nil {
			return err
		}
		out = append(out, al)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
