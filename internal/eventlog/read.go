package eventlog

import (
	"encoding/binary"

	"github.com/cockroachdb/pebble"
)

// Token encodes the starting position as seq (8 bytes big-endian).
type Token [8]byte

// TokenFromSeq builds a Token positioned at the given sequence.
func TokenFromSeq(seq uint64) Token {
	var t Token
	binary.BigEndian.PutUint64(t[:], seq)
	return t
}

// Seq returns the sequence a Token points at.
func (t Token) Seq() uint64 { return binary.BigEndian.Uint64(t[:]) }

// ReadOptions selects the window of a forward scan.
type ReadOptions struct {
	Start Token // if zero, begin from the earliest retained entry
	Limit int   // 0 means no limit
}

// Item is one decoded feed entry.
type Item struct {
	Seq       uint64
	EmittedMs int64
	Payload   []byte
}

// Read returns up to Limit items starting at Start (inclusive), in sequence
// order. Entries that fail checksum validation are skipped.
func (l *Log) Read(opts ReadOptions) []Item {
	startSeq := opts.Start.Seq()
	startKey := KeyFeedEntry(l.topic, l.part, startSeq)
	low := KeyFeedEntry(l.topic, l.part, 0)
	hi := KeyFeedEntry(l.topic, l.part, ^uint64(0))

	items := make([]Item, 0, max(1, opts.Limit))
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: append(hi, 0x00)})
	if err != nil {
		return items
	}
	defer iter.Close()

	if startSeq == 0 {
		if !iter.First() {
			return items
		}
	} else {
		if !iter.SeekGE(startKey) {
			return items
		}
	}
	for iter.Valid() && (opts.Limit == 0 || len(items) < opts.Limit) {
		seq := binary.BigEndian.Uint64(iter.Key()[len(startKey)-8:])
		if dec, ok := DecodeRecord(iter.Value()); ok {
			ms, _ := HeaderTimestamp(dec.Header)
			items = append(items, Item{Seq: seq, EmittedMs: ms, Payload: dec.Payload})
		}
		if !iter.Next() {
			break
		}
	}
	return items
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
