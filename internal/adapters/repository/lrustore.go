package repository

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"github.com/okian/grimpeur/internal/domain/analysis"
	"github.com/okian/grimpeur/pkg/metrics"
)

// Default cache configuration constants.
const defaultCapacity = 1024

// entry is one cached analysis with its position in the recency list.
type entry struct {
	rideID string
	a      *analysis.Analysis
}

// LRUStore implements Store with a bounded map + recency list. Mutation
// takes the write lock; Get takes only the read lock and does not promote,
// so eviction order is least-recently-inserted. Promoting on read would
// force every lookup through the exclusive lock, which the read path is
// explicitly designed to avoid.
type LRUStore struct {
	mu       sync.RWMutex
	entries  map[string]*list.Element
	recency  *list.List // front = most recently inserted
	capacity int
}

// NewLRUStore creates a cache with configuration options.
func NewLRUStore(ctx context.Context, opts ...Option) *LRUStore {
	s := &LRUStore{
		entries:  make(map[string]*list.Element),
		recency:  list.New(),
		capacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	metrics.UpdateCacheCapacity(s.capacity)
	metrics.UpdateCacheEntries(0)
	return s
}

// Put inserts a under its ride id, evicting the oldest entry when the cache
// is at capacity.
func (s *LRUStore) Put(_ context.Context, a *analysis.Analysis) error {
	const op = "repository.put"
	if a == nil {
		return fmt.Errorf("%s: %w", op, ErrNilEntry)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[a.ID()]; ok {
		el.Value = entry{rideID: a.ID(), a: a}
		s.recency.MoveToFront(el)
		return nil
	}

	for s.recency.Len() >= s.capacity {
		oldest := s.recency.Back()
		if oldest == nil {
			break
		}
		s.recency.Remove(oldest)
		delete(s.entries, oldest.Value.(entry).rideID)
		metrics.RecordCacheEviction()
	}

	s.entries[a.ID()] = s.recency.PushFront(entry{rideID: a.ID(), a: a})
	metrics.UpdateCacheEntries(s.recency.Len())
	return nil
}

// Get returns the cached analysis for rideID.
func (s *LRUStore) Get(_ context.Context, rideID string) (*analysis.Analysis, error) {
	const op = "repository.get"

	s.mu.RLock()
	el, ok := s.entries[rideID]
	var a *analysis.Analysis
	if ok {
		a = el.Value.(entry).a
	}
	s.mu.RUnlock()

	if !ok {
		metrics.RecordCacheMiss()
		return nil, fmt.Errorf("%s %s: %w", op, rideID, ErrNotFound)
	}
	metrics.RecordCacheHit()
	return a, nil
}

// Delete removes the entry for rideID, if present.
func (s *LRUStore) Delete(_ context.Context, rideID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[rideID]; ok {
		s.recency.Remove(el)
		delete(s.entries, rideID)
		metrics.UpdateCacheEntries(s.recency.Len())
	}
}

// Count returns the number of cached analyses.
func (s *LRUStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recency.Len()
}
