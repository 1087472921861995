package confer

import "sync"

// Shared is a record reachable by many goroutines. Access goes through Read
// and Write, which hold the record's lock for the duration of the callback
// and release it on every exit path.
type Shared[T any] struct {
	mu  sync.RWMutex
	val T
}

// NewShared wraps v for concurrent use.
func NewShared[T any](v T) *Shared[T] {
	return &Shared[T]{val: v}
}

// Read calls fn with the record under a shared lock. fn must not retain
// the pointer or modify the record.
func (s *Shared[T]) Read(fn func(*T)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.val)
}

// Write calls fn with the record under an exclusive lock.
func (s *Shared[T]) Write(fn func(*T)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.val)
}

// Get returns a shallow copy of the record.
func (s *Shared[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.val
}

// Set replaces the record.
func (s *Shared[T]) Set(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.val = v
}
