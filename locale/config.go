package locale

import (
	"log/slog"
)

// Config defines the locale set and response metadata used by a Resolver.
//
// Default and Locales are required. NewResolver validates every tag and
// returns an error if the configuration is inconsistent.
type Config struct {
	// Default is the locale served when a path carries no prefix.
	//
	// It never appears in canonical URLs; any request that shows it is
	// redirected to the unprefixed form.
	Default string

	// Locales lists every supported locale, including Default.
	Locales []string

	// CookieName is the locale preference cookie read by the resolver.
	// If empty, DefaultCookieName is used.
	CookieName string

	// Production enables cache and build metadata headers on prefixed
	// pass-through responses.
	Production bool

	// BuildVersion is the value of the BuildVersionHeader in production.
	BuildVersion string

	// CacheControl overrides DefaultCacheControl in production.
	CacheControl string

	// Logger receives redirect decisions at debug level.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}
