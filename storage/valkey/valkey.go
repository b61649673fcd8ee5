// Package valkey provides a storage.Storage backed by Valkey.
package valkey

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

const connectionTimeout = 5 * time.Second

// Store is a Valkey-backed storage.Storage.
type Store struct {
	client valkey.Client
}

// New connects to the Valkey server described by rawURL
// (e.g. "redis://localhost:6379/0") and verifies the connection.
func New(ctx context.Context, rawURL string) (*Store, error) {
	opts, err := valkey.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("valkey: parse url: %w", err)
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("valkey: connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("valkey: ping: %w", err)
	}

	return &Store{client: client}, nil
}

// Get retrieves a value.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Do(ctx, s.client.B().Get().Key(key).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return val, true, nil
}

// Set stores a value. A ttl <= 0 stores without expiry.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return s.client.Do(ctx, s.client.B().Set().Key(key).Value(value).Build()).Error()
	}

	// Ex takes whole seconds.
	seconds := int64(ttl.Seconds())
	if seconds == 0 {
		seconds = 1
	}
	cmd := s.client.B().Set().Key(key).Value(value).ExSeconds(seconds).Build()
	return s.client.Do(ctx, cmd).Error()
}

// Delete removes a value.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Do(ctx, s.client.B().Del().Key(key).Build()).Error()
}

// Take returns and removes a value with GETDEL.
func (s *Store) Take(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Do(ctx, s.client.B().Getdel().Key(key).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return val, true, nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	s.client.Close()
	return nil
}
