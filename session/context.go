package session

import (
	"context"
)

type sessionKeyType struct{}

var sessionKey = sessionKeyType{}

// withSession returns a new context carrying sess.
//
// This function is used internally by Attach to bind the browser context to
// the request.
func withSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// FromContext extracts the session bound by Attach.
//
// The boolean return value is false if Attach did not run for the request.
func FromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(sessionKey).(*Session)
	return sess, ok && sess != nil
}

// IsAuthenticated reports whether the context carries a session holding a
// token.
func IsAuthenticated(ctx context.Context) bool {
	sess, ok := FromContext(ctx)
	return ok && sess.IsAuthenticated(ctx)
}
