// Package dedupe tracks seen ride ids so each upload is analyzed at most
// once regardless of client retries.
package dedupe

import (
	"context"
	"sync"
)

// Deduper records seen ride ids.
type Deduper interface {
	// SeenAndRecord atomically checks whether id was seen and records it if
	// not. Returns true if id was already seen, false if newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an id from the seen set. Used to roll back when a
	// submission was marked seen but could not be enqueued.
	Unrecord(ctx context.Context, id string)

	// Size returns the current number of tracked ids.
	Size() int64
}

// inMemoryDeduper keeps ids in a map plus a FIFO ring of the same capacity.
// When the ring is full the oldest id is evicted, bounding memory for long
// running processes. maxSize <= 0 disables eviction.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	ring    []string
	head    int
	maxSize int
}

// NewInMemoryDeduper creates a deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{})
	if d.maxSize > 0 {
		d.ring = make([]string, 0, d.maxSize)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}

	if d.maxSize > 0 {
		if len(d.ring) < d.maxSize {
			d.ring = append(d.ring, id)
		} else {
			// Ring full: overwrite the oldest slot and forget its id.
			delete(d.seen, d.ring[d.head])
			d.ring[d.head] = id
			d.head = (d.head + 1) % d.maxSize
		}
	}
	d.seen[id] = struct{}{}
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	// The ring slot keeps the stale id until eviction reaches it; deleting
	// from the map is what matters for lookups, and a stale slot only makes
	// eviction marginally early for one entry.
	delete(d.seen, id)
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
