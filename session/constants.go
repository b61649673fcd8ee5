package session

import "time"

const (
	// VisitorCookieName is the persistent cookie identifying the browser.
	//
	// It scopes the token, its acquisition time and the cached user snapshot,
	// so they survive reloads and browser restarts.
	VisitorCookieName = "wg_visitor"

	// TabCookieName is the session cookie (no Max-Age) identifying the current
	// browsing session. It scopes the pending return URL, which therefore
	// does not outlive the browser session.
	TabCookieName = "wg_tab"

	// LoginPath is the default login entry point.
	//
	// Unauthenticated users are redirected to this path, with an optional
	// return_url query parameter appended.
	LoginPath = "/login"

	// LandingPath is the default authenticated landing page.
	LandingPath = "/dashboard"

	// ReturnURLParam carries the post-authentication destination.
	ReturnURLParam = "return_url"

	// TokenParam carries the bearer token on the OAuth callback.
	TokenParam = "token"

	tokenKey     = "auth_token"
	tokenTimeKey = "auth_token_time"
	userKey      = "user"
	returnURLKey = "return_url"

	// returnURLTTL bounds how long an abandoned hand-off lingers in storage.
	returnURLTTL = time.Hour

	visitorMaxAge = 365 * 24 * time.Hour
)
