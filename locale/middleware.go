package locale

import (
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Middleware applies Resolve to every request before page routing.
//
//   - Skip: the request continues unmodified.
//   - Redirect: 307 to Decision.Location; next is not called.
//   - Rewrite and next: Decision.Header is copied onto the response, the
//     request is forwarded with Decision.Path as its URL path, and the
//     resolved locale and original path are attached to its context and to
//     the forwarded PathnameHeader.
//
// Resolution runs on the escaped path, so percent-encoded octets reach the
// Location header exactly as the client sent them.
//
// Mount it outside the router so routing sees the rewritten path.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var cookie string
		if c, err := req.Cookie(r.cookieName); err == nil {
			cookie = c.Value
		}

		original := req.URL.EscapedPath()
		d := r.Resolve(original, req.URL.RawQuery, cookie)

		r.decisions.Add(req.Context(), 1,
			metric.WithAttributes(attribute.String("action", d.Action.String())))

		switch d.Action {
		case ActionSkip:
			next.ServeHTTP(w, req)
			return

		case ActionRedirect:
			r.logger.DebugContext(req.Context(), "locale redirect",
				"path", original,
				"location", d.Location,
			)
			// Location is set directly so the query string is kept byte for byte.
			w.Header().Set("Location", d.Location)
			w.WriteHeader(http.StatusTemporaryRedirect)
			return
		}

		for k, vs := range d.Header {
			for _, v := range vs {
				w.Header().Add(k, v)
			}
		}

		ctx := withLocale(req.Context(), d.Locale)
		ctx = withOriginalPath(ctx, original)

		forwarded := req.Clone(ctx)
		forwarded.URL.Path, forwarded.URL.RawPath = splitEscaped(d.Path)
		forwarded.Header.Set(PathnameHeader, original)

		next.ServeHTTP(w, forwarded)
	})
}

// splitEscaped returns the decoded form of an escaped path and, when the two
// differ, the escaped form to keep as RawPath.
func splitEscaped(escaped string) (path, raw string) {
	p, err := url.PathUnescape(escaped)
	if err != nil {
		return escaped, ""
	}
	if p == escaped {
		return p, ""
	}
	return p, escaped
}
