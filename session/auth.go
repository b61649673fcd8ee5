package session

import (
	"context"
	"fmt"
	"net/http"

	"github.com/alexlup06-authgate/walletgate/backend"
)

// Login authenticates against the backend and commits the returned token.
//
// The boolean reports whether the session is now authenticated; a successful
// response without a token leaves the session untouched.
func (s *SDK) Login(ctx context.Context, sess *Session, req backend.LoginRequest) (bool, error) {
	res, err := s.backend.Login(ctx, req)
	if err != nil {
		return false, err
	}
	return s.commit(ctx, sess, res)
}

// Register creates an account and commits the token if one is issued.
func (s *SDK) Register(ctx context.Context, sess *Session, req backend.RegisterRequest) (bool, error) {
	res, err := s.backend.Register(ctx, req)
	if err != nil {
		return false, err
	}
	return s.commit(ctx, sess, res)
}

// SendOTP requests a one-time code and returns the backend's message.
func (s *SDK) SendOTP(ctx context.Context, req backend.OTPSendRequest) (string, error) {
	res, err := s.backend.SendOTP(ctx, req)
	if err != nil {
		return "", err
	}
	return res.Message, nil
}

// VerifyOTP exchanges a one-time code and commits the returned token.
func (s *SDK) VerifyOTP(ctx context.Context, sess *Session, req backend.OTPVerifyRequest) (bool, error) {
	res, err := s.backend.VerifyOTP(ctx, req)
	if err != nil {
		return false, err
	}
	return s.commit(ctx, sess, res)
}

func (s *SDK) commit(ctx context.Context, sess *Session, res backend.AuthResult) (bool, error) {
	if res.Token == "" {
		return false, nil
	}
	if err := sess.tokens.Set(ctx, res.Token); err != nil {
		return false, err
	}
	return true, nil
}

// Logout asks the backend to revoke the token and then clears the local
// session. The local teardown always runs; a failed revocation is only
// logged. The returned error reports local storage failures only.
func (s *SDK) Logout(ctx context.Context, sess *Session) error {
	tok, ok, err := sess.tokens.Get(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "logout: read token", "error", err)
	}
	if ok {
		if err := s.backend.Logout(ctx, tok.Value); err != nil {
			s.logger.WarnContext(ctx, "logout: server-side revocation failed", "error", err)
		}
	}

	if err := sess.tokens.Clear(ctx); err != nil {
		return fmt.Errorf("session: logout: %w", err)
	}
	return nil
}

// CurrentUser returns the signed-in user's profile.
//
// The cached snapshot is served when present; otherwise the profile is
// fetched with the stored token and cached. When the backend rejects the
// token the local session is cleared and (nil, nil) is returned, the same as
// for a session without a token.
func (s *SDK) CurrentUser(ctx context.Context, sess *Session) (*backend.User, error) {
	tok, ok, err := sess.tokens.Get(ctx)
	if err != nil || !ok {
		return nil, err
	}

	if u, ok, err := sess.tokens.CachedUser(ctx); err == nil && ok {
		return u, nil
	}

	u, err := s.backend.CurrentUser(ctx, tok.Value)
	if err != nil {
		return nil, err
	}
	if u == nil {
		if err := sess.tokens.Clear(ctx); err != nil {
			s.logger.WarnContext(ctx, "clear rejected token", "error", err)
		}
		return nil, nil
	}

	if err := sess.tokens.CacheUser(ctx, u); err != nil {
		s.logger.WarnContext(ctx, "cache user snapshot", "error", err)
	}
	return u, nil
}

// BeginOAuth records returnURL for the callback and returns the backend entry
// point of provider's OAuth flow. The return URL is also carried on the
// redirect so the callback can prefer the most recent hand-off.
func (s *SDK) BeginOAuth(ctx context.Context, sess *Session, provider, returnURL string) (string, error) {
	if returnURL != "" {
		if err := sess.returns.Set(ctx, returnURL); err != nil {
			return "", err
		}
	}
	return s.backend.OAuthURL(provider, returnURL), nil
}

// OAuthStart returns a handler that starts provider's OAuth flow. The
// return_url query parameter, if any, is carried through the round trip.
func (s *SDK) OAuthStart(provider string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := FromContext(r.Context())
		if !ok {
			http.Error(w, ErrNoSession.Error(), http.StatusInternalServerError)
			return
		}

		returnURL := r.URL.Query().Get(ReturnURLParam)
		if returnURL != "" {
			if safe, ok := s.safeReturnURL(returnURL); ok {
				returnURL = safe
			} else {
				returnURL = ""
			}
		}

		target, err := s.BeginOAuth(r.Context(), sess, provider, returnURL)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "oauth start", "provider", provider, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		navigate(w, r, target)
	})
}

// LogoutHandler returns a handler that logs the session out and sends the
// browser to the login entry point. Only POST is accepted.
func (s *SDK) LogoutHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if sess, ok := FromContext(r.Context()); ok {
			if err := s.Logout(r.Context(), sess); err != nil {
				s.logger.ErrorContext(r.Context(), "logout", "error", err)
			}
		}
		navigate(w, r, s.loginPath)
	})
}
