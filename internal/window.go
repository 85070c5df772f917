// v2
// window.go
package internal

import (
	"sync"
	"time"
)

// rawBuffer stores raw export rows and prunes entries whose source time falls
// outside the retention window. The pipeline itself is stateless; this buffer
// is the caller-side state it recomputes from on every query.
type rawBuffer struct {
	mu     sync.RWMutex
	rows   []RawReading // sorted by SourceTime asc (export arrives in order)
	window time.Duration
}

// newRawBuffer initializes the buffer; window 0 means keep everything.
func newRawBuffer(window time.Duration) *rawBuffer {
	return &rawBuffer{window: window}
}

func (b *rawBuffer) add(r RawReading) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rows = append(b.rows, r)
	if b.window > 0 {
		b.rows = pruneRows(b.rows, time.Now().Add(-b.window))
	}
}

func (b *rawBuffer) addBatch(rs []RawReading) int {
	count := 0
	for _, r := range rs {
		b.add(r)
		count++
	}
	return count
}

// pruneRows removes rows with SourceTime before 'from'. Assumes asc order.
func pruneRows(rows []RawReading, from time.Time) []RawReading {
	idx := 0
	for idx < len(rows) && !rows[idx].SourceTime.IsZero() && rows[idx].SourceTime.Before(from) {
		idx++
	}
	if idx == 0 {
		return rows
	}
	// copy off the old backing array
	return append([]RawReading(nil), rows[idx:]...)
}

// snapshot returns a stable copy for one pipeline run.
func (b *rawBuffer) snapshot() []RawReading {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]RawReading, len(b.rows))
	copy(out, b.rows)
	return out
}

func (b *rawBuffer) len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rows)
}
