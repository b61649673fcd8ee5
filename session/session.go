// Package session implements the client-side authentication lifecycle: the
// token and return-URL stores, the session gate used by protected pages, the
// login/OTP/logout flows and the OAuth callback hand-off.
package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/alexlup06-authgate/walletgate/storage"
)

// Session is the authentication state of one browser context.
//
// Concurrent writers from the same browser (several tabs) are not
// coordinated: the last write wins.
type Session struct {
	tokens  *TokenStore
	returns *ReturnURLStore
	logger  *slog.Logger
}

// NewSession builds a Session over two storage scopes: persistent holds the
// token and user snapshot, ephemeral holds the pending return URL.
func NewSession(persistent, ephemeral storage.Storage, now func() time.Time) *Session {
	return &Session{
		tokens:  NewTokenStore(persistent, now),
		returns: NewReturnURLStore(ephemeral, returnURLTTL),
		logger:  slog.Default(),
	}
}

// Tokens returns the session's token store.
func (s *Session) Tokens() *TokenStore {
	return s.tokens
}

// ReturnURLs returns the session's return-URL store.
func (s *Session) ReturnURLs() *ReturnURLStore {
	return s.returns
}

// IsAuthenticated reports whether a non-empty token is stored. It is a
// presence check only and never fails: a storage error counts as
// unauthenticated.
func (s *Session) IsAuthenticated(ctx context.Context) bool {
	_, ok, err := s.tokens.Get(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "session gate: token lookup failed", "error", err)
		return false
	}
	return ok
}
