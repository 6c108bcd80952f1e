package id

import (
	"sync"
	"time"
)

// NowNs returns the current time in nanoseconds since the Unix epoch.
// Overridable in tests.
var NowNs = func() uint64 { return uint64(time.Now().UnixNano()) }

// Generator produces strictly increasing trace IDs per process.
//
// IDs are nanosecond wall-clock readings. If the clock reads at or below the
// previously issued ID (clock step, coarse clock, or two calls within the
// same tick), the generator issues last+1 instead, preserving both
// monotonicity and rough time ordering.
type Generator struct {
	mu   sync.Mutex
	last uint64
}

// NewGenerator creates a new Generator.
func NewGenerator() *Generator { return &Generator{} }

// Next returns a new trace ID.
func (g *Generator) Next() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	ns := NowNs()
	if ns <= g.last {
		ns = g.last + 1
	}
	g.last = ns
	return ns
}
