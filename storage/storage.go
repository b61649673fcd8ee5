// Package storage defines the key/value backend that holds per-visitor
// client state: the bearer token, its acquisition time, the cached user
// snapshot and the pending return URL.
//
// Implementations live in the memory, redis and valkey subpackages. All of
// them must make Take atomic, because the return URL is a read-once slot.
package storage

import (
	"context"
	"time"
)

// Storage is the minimal contract the session layer needs from a backend.
type Storage interface {
	// Get returns the value stored under key. The boolean is false when the
	// key is absent or expired.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	// A ttl <= 0 means the value does not expire.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Take atomically returns and removes the value stored under key.
	Take(ctx context.Context, key string) (string, bool, error)
}

type prefixed struct {
	inner  Storage
	prefix string
}

// Prefixed returns a view of s in which every key is namespaced by prefix.
// It is how one shared backend is split into per-visitor scopes.
func Prefixed(s Storage, prefix string) Storage {
	return &prefixed{inner: s, prefix: prefix}
}

func (p *prefixed) Get(ctx context.Context, key string) (string, bool, error) {
	return p.inner.Get(ctx, p.prefix+key)
}

func (p *prefixed) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return p.inner.Set(ctx, p.prefix+key, value, ttl)
}

func (p *prefixed) Delete(ctx context.Context, key string) error {
	return p.inner.Delete(ctx, p.prefix+key)
}

func (p *prefixed) Take(ctx context.Context, key string) (string, bool, error) {
	return p.inner.Take(ctx, p.prefix+key)
}
