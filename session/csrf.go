package session

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/google/uuid"
)

const (
	// CSRFCookieName holds the double-submit token.
	CSRFCookieName = "wg_csrf"

	// CSRFHeaderName is the header HTMX and script requests echo the token in.
	CSRFHeaderName = "X-CSRF-Token"

	// CSRFFormField is the hidden form field server-rendered forms echo the
	// token in.
	CSRFFormField = "csrf_token"
)

type csrfKeyType struct{}

var csrfKey = csrfKeyType{}

// CSRF returns middleware implementing the double-submit cookie pattern.
//
// Every request gets a token cookie (issued when missing). State-changing
// requests must echo the cookie value in CSRFHeaderName or CSRFFormField and
// are rejected with 403 otherwise.
func (s *SDK) CSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := csrfCookie(r)
		if !ok {
			token = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     CSRFCookieName,
				Value:    token,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.secure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		if !safeMethod(r.Method) {
			sent := r.Header.Get(CSRFHeaderName)
			if sent == "" {
				sent = r.PostFormValue(CSRFFormField)
			}
			if !ok || subtle.ConstantTimeCompare([]byte(sent), []byte(token)) != 1 {
				s.logger.WarnContext(r.Context(), "csrf token mismatch", "path", r.URL.Path)
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), csrfKey, token)))
	})
}

// CSRFToken returns the token forms on this request must echo.
func CSRFToken(r *http.Request) (string, bool) {
	if token, ok := r.Context().Value(csrfKey).(string); ok && token != "" {
		return token, true
	}
	return csrfCookie(r)
}

func csrfCookie(r *http.Request) (string, bool) {
	c, err := r.Cookie(CSRFCookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}
