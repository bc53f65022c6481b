// Package dedupe tracks in-flight work so that overlapping passes inside one
// process never handle the same id at the same time.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Deduper records ids that are currently being processed.
type Deduper interface {
	// SeenAndRecord atomically checks whether id is already claimed and claims
	// it if not. Returns true if the caller must skip id.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord releases a claim taken by SeenAndRecord.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper keeps claims in a map keyed by id.
// With maxSize > 0 new claims are refused once the map is full; claims are
// never evicted while held. With ttl > 0 a claim older than ttl is treated as
// abandoned and may be taken over.
type inMemoryDeduper struct {
	mu      sync.Mutex
	claims  map[string]time.Time
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 10000,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.claims = make(map[string]time.Time)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if at, held := d.claims[id]; held {
		if d.ttl <= 0 || now.Sub(at) < d.ttl {
			return true
		}
		d.claims[id] = now
		return false
	}

	if d.maxSize > 0 && len(d.claims) >= d.maxSize {
		return true
	}

	d.claims[id] = now
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, held := d.claims[id]; held {
		delete(d.claims, id)
		d.size.Add(-1)
	}
}

// Size returns the number of claims currently held.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
