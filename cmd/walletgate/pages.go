package main

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/alexlup06-authgate/walletgate/backend"
	"github.com/alexlup06-authgate/walletgate/features"
	"github.com/alexlup06-authgate/walletgate/locale"
	"github.com/alexlup06-authgate/walletgate/session"
)

const layout = `{{define "layout"}}<!doctype html>
<html lang="{{.Locale}}">
<head><meta charset="utf-8"><title>{{.Features.AppName}}</title></head>
<body>
{{if .Chrome}}<header>
  <a href="{{path .Locale "/"}}">{{.Features.AppName}}</a>
  {{if .Authenticated}}
    <a href="{{path .Locale "/dashboard"}}">Dashboard</a>
    {{if .Features.WalletEnabled}}<a href="{{path .Locale "/wallet"}}">Wallet</a>{{end}}
    <form method="post" action="{{path .Locale "/logout"}}">
      <input type="hidden" name="csrf_token" value="{{.CSRF}}">
      <button>Sign out</button>
    </form>
  {{else}}
    <a href="{{path .Locale "/login"}}">Sign in</a>
  {{end}}
  <nav>{{range .Locales}}<a href="{{path $.Locale "/locale/"}}{{.}}?next={{$.Path}}">{{.}}</a> {{end}}</nav>
</header>{{end}}
<main>{{template "content" .}}</main>
</body>
</html>{{end}}`

var pageBodies = map[string]string{
	"home": `{{define "content"}}<h1>{{.Features.AppName}}</h1>
{{if .Authenticated}}<p><a href="{{path .Locale "/dashboard"}}">Continue</a></p>{{end}}{{end}}`,

	"login": `{{define "content"}}<h1>Sign in</h1>
{{with .Message}}<p class="message">{{.}}</p>{{end}}
<form method="post" action="{{path .Locale "/login"}}">
  <input type="hidden" name="csrf_token" value="{{.CSRF}}">
  <input type="hidden" name="return_url" value="{{.ReturnURL}}">
  <input name="email" type="email" placeholder="Email">
  <input name="password" type="password" placeholder="Password">
  <button>Sign in</button>
</form>
<form method="post" action="{{path .Locale "/register"}}">
  <input type="hidden" name="csrf_token" value="{{.CSRF}}">
  <input type="hidden" name="return_url" value="{{.ReturnURL}}">
  <input name="name" placeholder="Name">
  <input name="email" type="email" placeholder="Email">
  <input name="phone" placeholder="Phone (optional)">
  <input name="password" type="password" placeholder="Password">
  <button>Create account</button>
</form>
<form method="post" action="{{path .Locale "/otp/send"}}">
  <input type="hidden" name="csrf_token" value="{{.CSRF}}">
  <input name="phone" value="{{.Phone}}" placeholder="Phone">
  <button>Send code</button>
</form>
<form method="post" action="{{path .Locale "/otp/verify"}}">
  <input type="hidden" name="csrf_token" value="{{.CSRF}}">
  <input type="hidden" name="return_url" value="{{.ReturnURL}}">
  <input name="phone" value="{{.Phone}}" placeholder="Phone">
  <input name="code" placeholder="Code">
  <button>Verify</button>
</form>
{{range .Providers}}<a href="{{path $.Locale "/signin/"}}{{.}}?return_url={{$.ReturnURL}}">Continue with {{.}}</a> {{end}}{{end}}`,

	"dashboard": `{{define "content"}}<h1>Dashboard</h1>
{{with .User}}<p>Signed in as {{if .Name}}{{.Name}}{{else if .Email}}{{.Email}}{{else}}{{.Phone}}{{end}}</p>
{{else}}<p>Your profile is unavailable right now.</p>{{end}}{{end}}`,

	"wallet": `{{define "content"}}<h1>Wallet</h1>
{{with .User}}<p>Wallet of {{.ID}}</p>{{end}}{{end}}`,
}

type pageData struct {
	Locale        string
	Locales       []string
	Path          string
	Chrome        bool
	Authenticated bool
	CSRF          string
	Features      features.Features
	Providers     []string

	ReturnURL string
	Message   string
	Phone     string
	User      *backend.User
}

type pages struct {
	set      map[string]*template.Template
	resolver *locale.Resolver
	features *features.Snapshot
	logger   *slog.Logger
}

func newPages(resolver *locale.Resolver, snap *features.Snapshot, logger *slog.Logger) (*pages, error) {
	funcs := template.FuncMap{"path": resolver.Canonical}

	p := &pages{
		set:      make(map[string]*template.Template, len(pageBodies)),
		resolver: resolver,
		features: snap,
		logger:   logger,
	}
	for name, body := range pageBodies {
		t, err := template.New(name).Funcs(funcs).Parse(layout)
		if err != nil {
			return nil, err
		}
		if _, err := t.Parse(body); err != nil {
			return nil, err
		}
		p.set[name] = t
	}
	return p, nil
}

// data fills the fields every page shares from the request.
func (p *pages) data(r *http.Request) pageData {
	loc, ok := locale.FromContext(r.Context())
	if !ok {
		loc = p.resolver.Default()
	}
	orig, ok := locale.OriginalPath(r.Context())
	if !ok {
		orig = r.URL.Path
	}
	csrf, _ := session.CSRFToken(r)

	return pageData{
		Locale:        loc,
		Locales:       p.resolver.Locales(),
		Path:          orig,
		Chrome:        !locale.SuppressChrome(orig),
		Authenticated: session.IsAuthenticated(r.Context()),
		CSRF:          csrf,
		Features:      p.features.Get(),
		Providers:     oauthProviders,
	}
}

func (p *pages) render(w http.ResponseWriter, r *http.Request, status int, name string, d pageData) {
	t, ok := p.set[name]
	if !ok {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "layout", d); err != nil {
		p.logger.ErrorContext(r.Context(), "render page", "page", name, "error", err)
	}
}
