package session

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CallbackState is the state of one OAuth callback page instance.
type CallbackState int

const (
	CallbackPending CallbackState = iota
	CallbackCompleted
)

func (s CallbackState) String() string {
	if s == CallbackCompleted {
		return "completed"
	}
	return "pending"
}

// Navigation is the result of completing a callback.
type Navigation struct {
	// Destination is where the browser is sent with a full navigation.
	Destination string

	// Authenticated is true when a token was committed.
	Authenticated bool
}

// Callback completes the OAuth round trip for one page instance.
//
// It moves from CallbackPending to CallbackCompleted exactly once; later
// Complete calls do nothing. There is no retry.
type Callback struct {
	sdk  *SDK
	sess *Session

	mu    sync.Mutex
	state CallbackState
}

// NewCallback returns a pending callback bound to sess.
func (s *SDK) NewCallback(sess *Session) *Callback {
	return &Callback{sdk: s, sess: sess}
}

// State returns the current state.
func (c *Callback) State() CallbackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Complete reads the token and return_url parameters, commits the token and
// computes the destination. The boolean is false when the callback had
// already completed, in which case the Navigation is empty and nothing is
// touched.
//
// Without a token the destination is the login entry point and nothing is
// stored.
func (c *Callback) Complete(ctx context.Context, query url.Values) (Navigation, bool) {
	c.mu.Lock()
	if c.state != CallbackPending {
		c.mu.Unlock()
		return Navigation{}, false
	}
	c.state = CallbackCompleted
	c.mu.Unlock()

	token := query.Get(TokenParam)
	if token == "" {
		// Drop any pending hand-off; this flow is over.
		_, _, _ = c.sess.returns.Take(ctx)
		c.sdk.recordCallback(ctx, "missing_token")
		return Navigation{Destination: c.sdk.loginPath}, true
	}

	if err := c.sess.tokens.Set(ctx, token); err != nil {
		c.sdk.logger.ErrorContext(ctx, "oauth callback: commit token", "error", err)
		c.sdk.recordCallback(ctx, "store_failed")
		return Navigation{Destination: c.sdk.loginPath}, true
	}

	dest := c.sdk.Destination(ctx, c.sess, query.Get(ReturnURLParam))
	c.sdk.recordCallback(ctx, "authenticated")
	c.sdk.logger.InfoContext(ctx, "oauth callback completed", "destination", dest)

	return Navigation{Destination: dest, Authenticated: true}, true
}

func (s *SDK) recordCallback(ctx context.Context, outcome string) {
	s.callbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// OAuthCallback returns the handler mounted at the callback page.
//
// Each request is a fresh page instance: a new Callback completes once and
// the browser is sent to the destination with a full navigation, so layout
// decisions that depend on the route are re-evaluated on load.
func (s *SDK) OAuthCallback() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := FromContext(r.Context())
		if !ok {
			s.logger.ErrorContext(r.Context(), "oauth callback: no session bound", "error", ErrNoSession)
			navigate(w, r, s.loginPath)
			return
		}

		nav, _ := s.NewCallback(sess).Complete(r.Context(), r.URL.Query())
		navigate(w, r, nav.Destination)
	})
}
