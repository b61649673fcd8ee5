package main

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/alexlup06-authgate/walletgate/backend"
	"github.com/alexlup06-authgate/walletgate/features"
	"github.com/alexlup06-authgate/walletgate/locale"
	"github.com/alexlup06-authgate/walletgate/session"
)

var oauthProviders = []string{"google", "apple"}

const localeCookieMaxAge = 365 * 24 * time.Hour

type app struct {
	logger   *slog.Logger
	resolver *locale.Resolver
	sdk      *session.SDK
	features *features.Snapshot
	pages    *pages
}

func newApp(logger *slog.Logger, resolver *locale.Resolver, sdk *session.SDK, snap *features.Snapshot) (*app, error) {
	p, err := newPages(resolver, snap, logger)
	if err != nil {
		return nil, err
	}
	return &app{
		logger:   logger,
		resolver: resolver,
		sdk:      sdk,
		features: snap,
		pages:    p,
	}, nil
}

// handler returns the full request pipeline. The locale middleware wraps the
// router so routing sees the rewritten, always-prefixed path.
func (a *app) handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", a.health)
	r.Get("/api/features", a.featureState)

	r.Route("/{locale}", func(lr chi.Router) {
		lr.Use(a.sdk.Attach)
		lr.Use(a.sdk.CSRF)

		lr.Get("/", a.home)
		lr.Get("/login", a.loginPage)
		lr.Post("/login", a.login)
		lr.Post("/register", a.register)
		lr.Post("/otp/send", a.sendOTP)
		lr.Post("/otp/verify", a.verifyOTP)
		lr.Get("/locale/{to}", a.switchLocale)

		lr.Get("/oauth/callback", a.sdk.OAuthCallback().ServeHTTP)
		lr.Get("/signin/{provider}", a.signIn)
		lr.Post("/logout", a.sdk.LogoutHandler().ServeHTTP)

		lr.Group(func(pr chi.Router) {
			pr.Use(a.sdk.RequireSession)
			pr.Get("/dashboard", a.dashboard)
			pr.Get("/wallet", a.wallet)
		})
	})

	return otelhttp.NewHandler(a.resolver.Middleware(r), "walletgate")
}

func (a *app) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		a.logger.DebugContext(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (a *app) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// featureState reports the snapshot so clients can show a loading state.
func (a *app) featureState(w http.ResponseWriter, _ *http.Request) {
	f := a.features.Get()
	writeJSON(w, http.StatusOK, map[string]any{
		"loading":        a.features.Loading(),
		"app_name":       f.AppName,
		"wallet_enabled": f.WalletEnabled,
	})
}

func (a *app) home(w http.ResponseWriter, r *http.Request) {
	a.pages.render(w, r, http.StatusOK, "home", a.pages.data(r))
}

func (a *app) loginPage(w http.ResponseWriter, r *http.Request) {
	d := a.pages.data(r)
	d.ReturnURL = r.URL.Query().Get(session.ReturnURLParam)
	a.pages.render(w, r, http.StatusOK, "login", d)
}

func (a *app) login(w http.ResponseWriter, r *http.Request) {
	a.authSubmit(w, r, func(sess *session.Session) (bool, error) {
		return a.sdk.Login(r.Context(), sess, backend.LoginRequest{
			Email:    r.PostFormValue("email"),
			Password: r.PostFormValue("password"),
		})
	}, "")
}

func (a *app) register(w http.ResponseWriter, r *http.Request) {
	a.authSubmit(w, r, func(sess *session.Session) (bool, error) {
		return a.sdk.Register(r.Context(), sess, backend.RegisterRequest{
			Name:     r.PostFormValue("name"),
			Email:    r.PostFormValue("email"),
			Phone:    r.PostFormValue("phone"),
			Password: r.PostFormValue("password"),
		})
	}, "Enter the code we sent to your phone.")
}

func (a *app) verifyOTP(w http.ResponseWriter, r *http.Request) {
	a.authSubmit(w, r, func(sess *session.Session) (bool, error) {
		return a.sdk.VerifyOTP(r.Context(), sess, backend.OTPVerifyRequest{
			Phone: r.PostFormValue("phone"),
			Code:  r.PostFormValue("code"),
		})
	}, "")
}

// authSubmit runs a credential exchange and, once a token is committed,
// sends the browser to the post-authentication destination. pending is shown
// when the backend succeeds without issuing a token.
func (a *app) authSubmit(w http.ResponseWriter, r *http.Request, exchange func(*session.Session) (bool, error), pending string) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		http.Error(w, session.ErrNoSession.Error(), http.StatusInternalServerError)
		return
	}

	authenticated, err := exchange(sess)

	d := a.pages.data(r)
	d.ReturnURL = r.PostFormValue(session.ReturnURLParam)
	d.Phone = r.PostFormValue("phone")

	switch {
	case err != nil:
		status, msg := failure(err)
		if status >= 500 {
			a.logger.ErrorContext(r.Context(), "auth request failed", "path", r.URL.Path, "error", err)
		}
		d.Message = msg
		a.pages.render(w, r, status, "login", d)

	case !authenticated:
		d.Message = pending
		if d.Message == "" {
			d.Message = "Sign-in did not complete. Please try again."
		}
		a.pages.render(w, r, http.StatusOK, "login", d)

	default:
		http.Redirect(w, r, a.sdk.Destination(r.Context(), sess, d.ReturnURL), http.StatusSeeOther)
	}
}

func (a *app) sendOTP(w http.ResponseWriter, r *http.Request) {
	d := a.pages.data(r)
	d.Phone = r.PostFormValue("phone")

	msg, err := a.sdk.SendOTP(r.Context(), backend.OTPSendRequest{Phone: d.Phone})
	status := http.StatusOK
	if err != nil {
		status, msg = failure(err)
	}
	d.Message = msg
	a.pages.render(w, r, status, "login", d)
}

// failure maps a backend error to a page status and a message safe to show.
func failure(err error) (int, string) {
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, backend.ErrUnavailable):
		return http.StatusBadGateway, "The service is temporarily unavailable."
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Status, apiErr.Message
	case errors.As(err, &apiErr):
		return apiErr.Status, "The request was rejected."
	default:
		return http.StatusBadGateway, "The service is temporarily unavailable."
	}
}

func (a *app) signIn(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	for _, p := range oauthProviders {
		if p == provider {
			a.sdk.OAuthStart(provider).ServeHTTP(w, r)
			return
		}
	}
	http.NotFound(w, r)
}

func (a *app) dashboard(w http.ResponseWriter, r *http.Request) {
	d, ok := a.withUser(w, r)
	if !ok {
		return
	}
	a.pages.render(w, r, http.StatusOK, "dashboard", d)
}

func (a *app) wallet(w http.ResponseWriter, r *http.Request) {
	if !a.features.Get().WalletEnabled {
		http.NotFound(w, r)
		return
	}
	d, ok := a.withUser(w, r)
	if !ok {
		return
	}
	a.pages.render(w, r, http.StatusOK, "wallet", d)
}

// withUser loads the profile for a gated page. A token the backend rejects
// has already been cleared by CurrentUser; the browser is sent to login with
// the page as its return URL.
// Other failures render the page without a profile.
func (a *app) withUser(w http.ResponseWriter, r *http.Request) (pageData, bool) {
	d := a.pages.data(r)
	sess, _ := session.FromContext(r.Context())

	u, err := a.sdk.CurrentUser(r.Context(), sess)
	if err != nil {
		a.logger.WarnContext(r.Context(), "load current user", "error", err)
		return d, true
	}
	if u == nil {
		a.sdk.RedirectToLogin(w, r)
		return d, false
	}
	d.User = u
	return d, true
}

// switchLocale stores the preference cookie and reopens next in the new
// locale.
func (a *app) switchLocale(w http.ResponseWriter, r *http.Request) {
	to := chi.URLParam(r, "to")
	supported := false
	for _, loc := range a.resolver.Locales() {
		if loc == to {
			supported = true
			break
		}
	}
	if !supported {
		http.NotFound(w, r)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     a.resolver.CookieName(),
		Value:    to,
		Path:     "/",
		MaxAge:   int(localeCookieMaxAge.Seconds()),
		SameSite: http.SameSiteLaxMode,
	})

	next := a.stripLocale(r.URL.Query().Get("next"))
	http.Redirect(w, r, a.resolver.Canonical(to, next), http.StatusSeeOther)
}

// stripLocale reduces p to its locale-independent site path.
func (a *app) stripLocale(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.ContainsAny(p, "\\\r\n") {
		return "/"
	}
	for _, loc := range a.resolver.Locales() {
		prefix := "/" + loc
		if p == prefix {
			return "/"
		}
		if rest, ok := strings.CutPrefix(p, prefix+"/"); ok {
			return "/" + rest
		}
	}
	return p
}
