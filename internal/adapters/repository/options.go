// Package repository defines the analysis cache interface and errors.
package repository

// Option applies a configuration option to the LRUStore.
type Option func(*LRUStore)

// WithCapacity bounds the number of cached analyses.
func WithCapacity(n int) Option {
	return func(s *LRUStore) {
		if n > 0 {
			s.capacity = n
		}
	}
}
