// Package locale decides, per inbound request, which locale a page is served
// under and whether the request is redirected, internally rewritten or passed
// through untouched.
package locale

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/text/language"
)

// Action is the single response action chosen for a request.
type Action int

const (
	// ActionSkip leaves assets, API calls and files untouched.
	ActionSkip Action = iota
	// ActionRedirect sends the client to Decision.Location.
	ActionRedirect
	// ActionRewrite serves Decision.Path without changing the visible URL.
	ActionRewrite
	// ActionNext continues with the request path unchanged.
	ActionNext
)

func (a Action) String() string {
	switch a {
	case ActionSkip:
		return "skip"
	case ActionRedirect:
		return "redirect"
	case ActionRewrite:
		return "rewrite"
	case ActionNext:
		return "next"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Decision is the outcome of one resolution pass.
//
// Header is metadata for the next stage. The middleware copies it onto the
// response; callers using Resolve directly decide what to do with it.
type Decision struct {
	Action Action

	// Location is the redirect target, query string included.
	Location string

	// Path is the path the request is served under (rewrite and next).
	Path string

	// Locale is the locale the page renders in. Empty for skips.
	Locale string

	Header http.Header
}

// Resolver maps request paths to locale decisions. It holds no per-request
// state and is safe for concurrent use.
type Resolver struct {
	def          string
	others       []string
	cookieName   string
	production   bool
	buildVersion string
	cacheControl string
	logger       *slog.Logger
	decisions    metric.Int64Counter
}

// NewResolver validates cfg and builds a Resolver.
//
// Locale tags are canonicalized with golang.org/x/text/language, so "EN" and
// "en" configure the same locale.
func NewResolver(cfg Config) (*Resolver, error) {
	if cfg.Default == "" {
		return nil, errors.New("locale: default locale is required")
	}

	def, err := canonical(cfg.Default)
	if err != nil {
		return nil, fmt.Errorf("locale: default locale: %w", err)
	}

	var others []string
	for _, raw := range cfg.Locales {
		tag, err := canonical(raw)
		if err != nil {
			return nil, fmt.Errorf("locale: supported locale %q: %w", raw, err)
		}
		if tag == def || slices.Contains(others, tag) {
			continue
		}
		others = append(others, tag)
	}

	r := &Resolver{
		def:          def,
		others:       others,
		cookieName:   cfg.CookieName,
		production:   cfg.Production,
		buildVersion: cfg.BuildVersion,
		cacheControl: cfg.CacheControl,
		logger:       cfg.Logger,
	}
	if r.cookieName == "" {
		r.cookieName = DefaultCookieName
	}
	if r.cacheControl == "" {
		r.cacheControl = DefaultCacheControl
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}

	r.decisions, err = otel.Meter("github.com/alexlup06-authgate/walletgate/locale").Int64Counter(
		"walletgate.locale.decisions",
		metric.WithDescription("Locale resolution outcomes by action"),
	)
	if err != nil {
		return nil, fmt.Errorf("locale: create counter: %w", err)
	}

	return r, nil
}

// Default returns the default locale.
func (r *Resolver) Default() string {
	return r.def
}

// Locales returns every supported locale, the default first.
func (r *Resolver) Locales() []string {
	return append([]string{r.def}, r.others...)
}

// CookieName returns the name of the preference cookie the resolver reads.
func (r *Resolver) CookieName() string {
	return r.cookieName
}

// Resolve picks exactly one outcome for path, which is the escaped request
// path (url.URL.EscapedPath).
//
// The rules are evaluated in order: skip, strip the default prefix, follow
// the preference cookie, rewrite to the default locale, pass through. The
// default-prefix rule runs before the cookie is consulted so an explicit
// default-locale URL is always canonicalized.
func (r *Resolver) Resolve(path, rawQuery, cookie string) Decision {
	if skip(path) {
		return Decision{Action: ActionSkip, Path: path}
	}

	if hasPrefix(path, r.def) {
		// Leading slashes are folded so the target can never be read as a
		// scheme-relative URL.
		rest := "/" + strings.TrimLeft(strings.TrimPrefix(path, "/"+r.def), "/\\")
		return Decision{
			Action:   ActionRedirect,
			Location: withQuery(rest, rawQuery),
			Locale:   r.def,
		}
	}

	prefix, prefixed := r.prefixOf(path)
	if !prefixed {
		if pref, ok := r.preference(cookie); ok {
			target := "/" + pref
			if path != "/" {
				target += path
			}
			return Decision{
				Action:   ActionRedirect,
				Location: withQuery(target, rawQuery),
				Locale:   pref,
			}
		}

		h := http.Header{}
		h.Set(PathnameHeader, path)
		return Decision{
			Action: ActionRewrite,
			Path:   "/" + r.def + path,
			Locale: r.def,
			Header: h,
		}
	}

	h := http.Header{}
	h.Set(PathnameHeader, path)
	if r.production {
		h.Set("Cache-Control", r.cacheControl)
		if r.buildVersion != "" {
			h.Set(BuildVersionHeader, r.buildVersion)
		}
	}
	return Decision{
		Action: ActionNext,
		Path:   path,
		Locale: prefix,
		Header: h,
	}
}

// Canonical returns the canonical URL path of p rendered in loc.
// The default locale has no visible prefix.
func (r *Resolver) Canonical(loc, p string) string {
	if p == "" {
		p = "/"
	}
	if loc == r.def || !slices.Contains(r.others, loc) {
		return p
	}
	if p == "/" {
		return "/" + loc
	}
	return "/" + loc + p
}

func (r *Resolver) prefixOf(path string) (string, bool) {
	for _, loc := range r.others {
		if hasPrefix(path, loc) {
			return loc, true
		}
	}
	return "", false
}

// preference returns the cookie locale when it names a non-default locale.
func (r *Resolver) preference(cookie string) (string, bool) {
	if cookie == "" {
		return "", false
	}
	tag, err := canonical(cookie)
	if err != nil {
		return "", false
	}
	if !slices.Contains(r.others, tag) {
		return "", false
	}
	return tag, true
}

// skip reports paths that never receive locale handling: framework assets,
// API calls and anything that looks like a file.
func skip(path string) bool {
	if skipRaw(path) {
		return true
	}
	if strings.Contains(path, "%") {
		if p, err := url.PathUnescape(path); err == nil {
			return skipRaw(p)
		}
	}
	return false
}

func skipRaw(path string) bool {
	return strings.Contains(path, "_next") ||
		strings.Contains(path, "/api/") ||
		strings.Contains(path, ".")
}

func hasPrefix(path, loc string) bool {
	p := "/" + loc
	return path == p || strings.HasPrefix(path, p+"/")
}

func withQuery(path, rawQuery string) string {
	if rawQuery == "" {
		return path
	}
	return path + "?" + rawQuery
}

func canonical(raw string) (string, error) {
	tag, err := language.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return tag.String(), nil
}
