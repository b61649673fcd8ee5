// Package memory provides an in-process storage.Storage.
//
// It is the default backend for single-instance deployments and the fake
// used by tests across the module.
package memory

import (
	"context"
	"sync"
	"time"
)

type item struct {
	value      string
	expiration time.Time
}

func (i item) expired(now time.Time) bool {
	return !i.expiration.IsZero() && now.After(i.expiration)
}

// Store is a mutex-guarded map with optional per-key expiry.
// Expired entries are dropped on access and by a periodic sweep.
type Store struct {
	mu    sync.Mutex
	items map[string]item
	now   func() time.Time

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

// New creates an empty Store with the default sweep interval (1 minute).
func New() *Store {
	return NewWithInterval(time.Minute)
}

// NewWithInterval creates an empty Store that sweeps expired entries every
// cleanupInterval. If cleanupInterval is 0 or negative, 1 minute is used.
// Close stops the sweep.
func NewWithInterval(cleanupInterval time.Duration) *Store {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	s := &Store{
		items:           make(map[string]item),
		now:             time.Now,
		cleanupInterval: cleanupInterval,
		stopCleanup:     make(chan struct{}),
	}

	go s.cleanupLoop()

	return s
}

// Close stops the background sweep. It is safe to call more than once.
func (s *Store) Close() error {
	s.stopOnce.Do(func() { close(s.stopCleanup) })
	return nil
}

// Get retrieves a value.
func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.lookup(key)
	return it.value, ok, nil
}

// Set stores a value with the given ttl.
func (s *Store) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := item{value: value}
	if ttl > 0 {
		it.expiration = s.now().Add(ttl)
	}
	s.items[key] = it
	return nil
}

// Delete removes a value.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
	return nil
}

// Take returns and removes a value under a single lock acquisition.
func (s *Store) Take(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.lookup(key)
	if ok {
		delete(s.items, key)
	}
	return it.value, ok, nil
}

// Len reports the number of live entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for _, it := range s.items {
		if !it.expired(now) {
			n++
		}
	}
	return n
}

// lookup must be called with s.mu held.
func (s *Store) lookup(key string) (item, bool) {
	it, ok := s.items[key]
	if !ok {
		return item{}, false
	}
	if it.expired(s.now()) {
		delete(s.items, key)
		return item{}, false
	}
	return it, true
}

func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCleanup:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup removes every expired entry and reports how many were dropped.
func (s *Store) cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cleaned := 0
	for key, it := range s.items {
		if it.expired(now) {
			delete(s.items, key)
			cleaned++
		}
	}
	return cleaned
}
