package session

import (
	"context"
	"net/url"
	"slices"
	"strings"
)

// Destination picks where to send the user after authentication.
//
// A query-supplied value (from the most recent hand-off) wins over the
// stored one. The stored value is always consumed so it cannot leak into a
// later flow. Any value that is malformed or points off-site falls back to
// the landing page.
func (s *SDK) Destination(ctx context.Context, sess *Session, queryValue string) string {
	stored, hasStored, err := sess.returns.Take(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "read stored return url", "error", err)
	}

	if queryValue != "" {
		if dest, ok := s.safeReturnURL(queryValue); ok {
			return dest
		}
		return s.landingPath
	}

	if hasStored {
		if dest, ok := s.safeReturnURL(stored); ok {
			return dest
		}
	}
	return s.landingPath
}

// safeReturnURL percent-decodes raw once more (the value may arrive
// double-encoded) and accepts it only as a site-relative path or an
// absolute http(s) URL on an allowed host.
func (s *SDK) safeReturnURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "%") {
		decoded, err := url.PathUnescape(raw)
		if err != nil {
			return "", false
		}
		raw = decoded
	}

	if raw == "" || strings.ContainsAny(raw, "\\\r\n\t") {
		return "", false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	if strings.HasPrefix(raw, "/") {
		if strings.HasPrefix(raw, "//") || u.Host != "" || u.Scheme != "" {
			return "", false
		}
		return raw, true
	}

	if (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" &&
		slices.Contains(s.allowedHosts, strings.ToLower(u.Host)) {
		return raw, true
	}
	return "", false
}
