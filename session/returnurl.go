package session

import (
	"context"
	"fmt"
	"time"

	"github.com/alexlup06-authgate/walletgate/storage"
)

// ReturnURLStore is a single-slot, read-once mailbox for the destination to
// use after an out-of-band authentication step.
type ReturnURLStore struct {
	store storage.Storage
	ttl   time.Duration
}

// NewReturnURLStore returns a ReturnURLStore over s. Stored values expire
// after ttl; ttl <= 0 keeps them until read.
func NewReturnURLStore(s storage.Storage, ttl time.Duration) *ReturnURLStore {
	return &ReturnURLStore{store: s, ttl: ttl}
}

// Set stores u, overwriting any previous value. An empty u clears the slot.
func (r *ReturnURLStore) Set(ctx context.Context, u string) error {
	if u == "" {
		return r.store.Delete(ctx, returnURLKey)
	}
	if err := r.store.Set(ctx, returnURLKey, u, r.ttl); err != nil {
		return fmt.Errorf("session: store return url: %w", err)
	}
	return nil
}

// Take returns the stored URL and clears it in the same operation.
// A second call returns false until Set is called again.
func (r *ReturnURLStore) Take(ctx context.Context) (string, bool, error) {
	u, ok, err := r.store.Take(ctx, returnURLKey)
	if err != nil {
		return "", false, fmt.Errorf("session: take return url: %w", err)
	}
	return u, ok && u != "", nil
}
