package session

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/alexlup06-authgate/walletgate/locale"
)

// Attach returns middleware that binds the request to its browser context.
//
// The visitor cookie (persistent) and tab cookie (browser-session only) are
// read, or issued when missing or malformed, and the resulting *Session is
// stored in the request context. Attach never redirects and is suitable for
// pages where authentication is optional.
func (s *SDK) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		visitor := s.ensureIDCookie(w, r, VisitorCookieName, int(visitorMaxAge.Seconds()))
		tab := s.ensureIDCookie(w, r, TabCookieName, 0)

		ctx := withSession(r.Context(), s.SessionFor(visitor, tab))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *SDK) ensureIDCookie(w http.ResponseWriter, r *http.Request, name string, maxAge int) string {
	if c, err := r.Cookie(name); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    id,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// RequireSession returns middleware that enforces the session gate.
//
// The gate runs before next, so protected handlers never start a data fetch
// or render anything for an unauthenticated request. Attach must run first;
// a request without a bound session is unauthenticated.
//
// Behavior on unauthenticated requests depends on the request type:
//
//   - Browser navigations (Accept: text/html):
//     Responds with an HTTP redirect (302) to the login page,
//     including a return_url parameter pointing to the original request URL.
//
//   - HTMX requests (HX-Request: true):
//     Responds with status 200 and sets the HX-Redirect header, causing
//     a full client-side navigation to the login page.
//
//   - API / SPA requests:
//     Responds with 401 Unauthorized and does not perform a redirect.
//
// For navigations the original URL is also recorded in the session's
// return-URL store.
func (s *SDK) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := FromContext(r.Context())
		if ok && sess.IsAuthenticated(r.Context()) {
			next.ServeHTTP(w, r)
			return
		}

		s.RedirectToLogin(w, r)
	})
}

// RedirectToLogin writes the gate's unauthenticated response for r. Handlers
// use it when a session turns out to be invalid after the gate let the
// request through, for example when the backend rejects the stored token.
func (s *SDK) RedirectToLogin(w http.ResponseWriter, r *http.Request) {
	returnTo := buildReturnTo(r)
	if sess, ok := FromContext(r.Context()); ok && (isHTMX(r) || !isAPICall(r)) {
		if err := sess.returns.Set(r.Context(), returnTo); err != nil {
			s.logger.WarnContext(r.Context(), "session gate: record return url", "error", err)
		}
	}

	loginURL := s.loginPath + "?" + ReturnURLParam + "=" + url.QueryEscape(returnTo)
	unauthenticatedResponse(w, r, loginURL)
}

// buildReturnTo constructs the return_url value for redirects by
// preserving the request path and query string.
//
// The path is the one the browser asked for: when the locale middleware
// rewrote the request, the original path is used, not the internal one.
func buildReturnTo(r *http.Request) string {
	p, ok := locale.OriginalPath(r.Context())
	if !ok || p == "" {
		p = r.URL.Path
	}
	if r.URL.RawQuery == "" {
		return p
	}
	return p + "?" + r.URL.RawQuery
}

func unauthenticatedResponse(w http.ResponseWriter, r *http.Request, redirectURL string) {
	w.Header().Add("Vary", "Accept")

	switch {
	case isHTMX(r):
		w.Header().Set("HX-Redirect", redirectURL)
		w.WriteHeader(http.StatusOK)
		return

	case isAPICall(r):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return

	default:
		http.Redirect(w, r, redirectURL, http.StatusFound)
		return
	}
}

// navigate performs a full navigation to dest. HTMX requests get HX-Redirect
// so the browser reloads the page instead of swapping a fragment.
func navigate(w http.ResponseWriter, r *http.Request, dest string) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", dest)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func isAPICall(r *http.Request) bool {
	accept := r.Header.Get("Accept")

	if accept == "" {
		return true
	}

	if strings.Contains(accept, "text/html") {
		return false
	}

	return true
}
