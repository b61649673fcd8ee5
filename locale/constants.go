package locale

const (
	// DefaultCookieName is the name of the locale preference cookie.
	//
	// The cookie is written by locale-prefixed navigation elsewhere; the
	// resolver only reads it.
	DefaultCookieName = "NEXT_LOCALE"

	// PathnameHeader carries the pre-rewrite request path to the rendering
	// layer, which uses it to pick the OAuth popup layout.
	PathnameHeader = "x-pathname"

	// BuildVersionHeader marks production pass-through responses with the
	// deployed build.
	BuildVersionHeader = "x-build-version"

	// DefaultCacheControl is attached to production pass-through responses
	// when Config.CacheControl is empty.
	DefaultCacheControl = "public, max-age=0, must-revalidate"
)
