// Package history keeps the bounded per-target check history used for
// trend display.
package history

import (
	"sync"

	"github.com/hamed0406/sitewatch/internal/domain"
)

// Capacity is the number of records kept per target.
const Capacity = 50

// Ring is a fixed-size FIFO of check records. Appending to a full ring
// evicts the oldest record. The zero value is not usable; use NewRing.
type Ring struct {
	buf   []domain.CheckRecord
	start int
	n     int
}

func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{buf: make([]domain.CheckRecord, capacity)}
}

func (r *Ring) Append(rec domain.CheckRecord) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = rec
		r.n++
		return
	}
	r.buf[r.start] = rec
	r.start = (r.start + 1) % len(r.buf)
}

func (r *Ring) Len() int { return r.n }

// Records returns a copy, oldest first.
func (r *Ring) Records() []domain.CheckRecord {
	out := make([]domain.CheckRecord, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// Book holds one ring per target.
type Book struct {
	mu    sync.RWMutex
	rings map[domain.TargetID]*Ring
	cap   int
}

func NewBook() *Book {
	return &Book{rings: make(map[domain.TargetID]*Ring), cap: Capacity}
}

func (b *Book) Append(id domain.TargetID, rec domain.CheckRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := b.rings[id]
	if r == nil {
		r = NewRing(b.cap)
		b.rings[id] = r
	}
	r.Append(rec)
}

// Recent returns the target's records in chronological order. Unknown
// targets yield an empty slice.
func (b *Book) Recent(id domain.TargetID) []domain.CheckRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r := b.rings[id]
	if r == nil {
		return []domain.CheckRecord{}
	}
	return r.Records()
}

func (b *Book) Len(id domain.TargetID) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if r := b.rings[id]; r != nil {
		return r.Len()
	}
	return 0
}

// Seed replaces a target's history with recs, keeping only the newest
// Capacity entries.
func (b *Book) Seed(id domain.TargetID, recs []domain.CheckRecord) {
	r := NewRing(b.cap)
	for _, rec := range recs {
		r.Append(rec)
	}
	b.mu.Lock()
	b.rings[id] = r
	b.mu.Unlock()
}

func (b *Book) Drop(id domain.TargetID) {
	b.mu.Lock()
	delete(b.rings, id)
	b.mu.Unlock()
}
