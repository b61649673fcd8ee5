package locale

import (
	"context"
	"strings"
)

type localeKeyType struct{}
type originalPathKeyType struct{}

var (
	localeKey       = localeKeyType{}
	originalPathKey = originalPathKeyType{}
)

func withLocale(ctx context.Context, loc string) context.Context {
	return context.WithValue(ctx, localeKey, loc)
}

// FromContext returns the locale resolved for the request.
//
// The boolean is false for requests the middleware skipped or never saw.
func FromContext(ctx context.Context) (string, bool) {
	loc, ok := ctx.Value(localeKey).(string)
	return loc, ok && loc != ""
}

func withOriginalPath(ctx context.Context, p string) context.Context {
	return context.WithValue(ctx, originalPathKey, p)
}

// OriginalPath returns the path as the browser requested it, before any
// rewrite. It mirrors the PathnameHeader value.
func OriginalPath(ctx context.Context) (string, bool) {
	p, ok := ctx.Value(originalPathKey).(string)
	return p, ok
}

// SuppressChrome reports whether the page at originalPath is rendered in the
// OAuth popup layout, which hides the shared header and footer.
func SuppressChrome(originalPath string) bool {
	for _, seg := range strings.Split(originalPath, "/") {
		if strings.HasPrefix(strings.ToLower(seg), "oauth") {
			return true
		}
	}
	return false
}
