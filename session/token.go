package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/alexlup06-authgate/walletgate/backend"
	"github.com/alexlup06-authgate/walletgate/storage"
)

// Token is the stored bearer credential.
type Token struct {
	Value      string
	AcquiredAt time.Time
}

// TokenStore persists the bearer token, its acquisition time and the cached
// user snapshot. It is the only owner of those keys.
//
// No expiry or shape check is made on the token; the backend is the
// authority on validity.
type TokenStore struct {
	store storage.Storage
	now   func() time.Time
}

// NewTokenStore returns a TokenStore over s. A nil now uses time.Now.
func NewTokenStore(s storage.Storage, now func() time.Time) *TokenStore {
	if now == nil {
		now = time.Now
	}
	return &TokenStore{store: s, now: now}
}

// Set stores token and records the current time as its acquisition time,
// replacing any previous token. The cached user snapshot belongs to the
// previous token and is dropped first. The token is written before its time
// so a failed write never pairs a new timestamp with an old token.
func (t *TokenStore) Set(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	if err := t.store.Delete(ctx, userKey); err != nil {
		return fmt.Errorf("session: drop cached user: %w", err)
	}
	if err := t.store.Set(ctx, tokenKey, token, 0); err != nil {
		return fmt.Errorf("session: store token: %w", err)
	}

	acquired := strconv.FormatInt(t.now().UnixMilli(), 10)
	if err := t.store.Set(ctx, tokenTimeKey, acquired, 0); err != nil {
		_ = t.store.Delete(ctx, tokenTimeKey)
		return fmt.Errorf("session: store token time: %w", err)
	}
	return nil
}

// Get returns the stored token. It has no side effects.
func (t *TokenStore) Get(ctx context.Context) (Token, bool, error) {
	value, ok, err := t.store.Get(ctx, tokenKey)
	if err != nil {
		return Token{}, false, fmt.Errorf("session: load token: %w", err)
	}
	if !ok || value == "" {
		return Token{}, false, nil
	}

	tok := Token{Value: value}
	if raw, ok, err := t.store.Get(ctx, tokenTimeKey); err == nil && ok {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
			tok.AcquiredAt = time.UnixMilli(ms)
		}
	}
	return tok, true, nil
}

// Clear removes the token, its acquisition time and the user snapshot.
// Clearing an empty store is a no-op.
func (t *TokenStore) Clear(ctx context.Context) error {
	var errs []error
	for _, key := range []string{tokenKey, tokenTimeKey, userKey} {
		if err := t.store.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("session: delete %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// CachedUser returns the user snapshot stored by CacheUser.
// A snapshot that cannot be decoded is reported as absent.
func (t *TokenStore) CachedUser(ctx context.Context) (*backend.User, bool, error) {
	raw, ok, err := t.store.Get(ctx, userKey)
	if err != nil || !ok {
		return nil, false, err
	}

	var u backend.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, false, nil
	}
	return &u, true, nil
}

// CacheUser stores a user snapshot alongside the token.
func (t *TokenStore) CacheUser(ctx context.Context, u *backend.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("session: encode user: %w", err)
	}
	return t.store.Set(ctx, userKey, string(raw), 0)
}
