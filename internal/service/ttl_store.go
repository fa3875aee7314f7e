package service

import (
	"sync"
	"time"
)

type ttlEntry[T any] struct {
	value    T
	storedAt time.Time
}

// ttlStore keeps values in memory until they are older than ttl.
type ttlStore[T any] struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]ttlEntry[T]
	now   func() time.Time
}

func newTTLStore[T any](ttl time.Duration) *ttlStore[T] {
	return &ttlStore[T]{
		ttl:   ttl,
		items: make(map[string]ttlEntry[T]),
		now:   time.Now,
	}
}

func (s *ttlStore[T]) Save(id string, value T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked()
	s.items[id] = ttlEntry[T]{value: value, storedAt: s.now()}
}

func (s *ttlStore[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	entry, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		var zero T
		return zero, false
	}
	if s.now().Sub(entry.storedAt) > s.ttl {
		s.Delete(id)
		var zero T
		return zero, false
	}
	return entry.value, true
}

func (s *ttlStore[T]) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

// purgeLocked drops expired entries so abandoned ids do not accumulate.
func (s *ttlStore[T]) purgeLocked() {
	now := s.now()
	for id, entry := range s.items {
		if now.Sub(entry.storedAt) > s.ttl {
			delete(s.items, id)
		}
	}
}
