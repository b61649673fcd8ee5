package mockapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/alexlup06-authgate/walletgate/backend"
	"github.com/alexlup06-authgate/walletgate/features"
)

func newTestServer(t *testing.T, cfg Config) (*Server, *backend.Client, *httptest.Server) {
	t.Helper()

	if cfg.Secret == nil {
		cfg.Secret = []byte("super-secret")
	}

	s, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	return s, backend.NewClient(srv.URL, backend.WithHTTPClient(srv.Client())), srv
}

func TestNew_RequiresSecret(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error without secret")
	}
}

func TestLogin_AndCurrentUser(t *testing.T) {
	ctx := context.Background()
	s, client, _ := newTestServer(t, Config{})

	id, err := s.AddAccount("Ada", "Ada@Example.com", "", "pw")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := client.Login(ctx, backend.LoginRequest{Email: "ada@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Token == "" {
		t.Fatal("expected a token")
	}

	u, err := client.CurrentUser(ctx, res.Token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u == nil || u.ID != id.String() || u.Name != "Ada" {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	s, client, _ := newTestServer(t, Config{})
	_, _ = s.AddAccount("Ada", "ada@example.com", "", "pw")

	_, err := client.Login(context.Background(), backend.LoginRequest{Email: "ada@example.com", Password: "nope"})

	var apiErr *backend.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Code != "invalid_credentials" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	_, client, _ := newTestServer(t, Config{})

	res, err := client.Register(ctx, backend.RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "pw"})
	if err != nil || res.Token == "" {
		t.Fatalf("Register = %+v, %v", res, err)
	}

	_, err = client.Register(ctx, backend.RegisterRequest{Email: "ada@example.com", Password: "pw"})
	var apiErr *backend.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	res, err = client.Register(ctx, backend.RegisterRequest{Email: "bob@example.com", Phone: "+994501112233", Password: "pw"})
	if err != nil || res.Token != "" {
		t.Fatalf("phone registration must not sign in yet: %+v, %v", res, err)
	}
}

func TestOTPFlow(t *testing.T) {
	ctx := context.Background()
	_, client, _ := newTestServer(t, Config{})
	phone := "+994501234567"

	res, err := client.SendOTP(ctx, backend.OTPSendRequest{Phone: phone})
	if err != nil || res.Token != "" || res.Message == "" {
		t.Fatalf("SendOTP = %+v, %v", res, err)
	}

	if _, err := client.VerifyOTP(ctx, backend.OTPVerifyRequest{Phone: phone, Code: "000000"}); err == nil {
		t.Fatal("expected wrong code to fail")
	}

	res, err = client.VerifyOTP(ctx, backend.OTPVerifyRequest{Phone: phone, Code: defaultOTPCode})
	if err != nil || res.Token == "" {
		t.Fatalf("VerifyOTP = %+v, %v", res, err)
	}

	if _, err := client.VerifyOTP(ctx, backend.OTPVerifyRequest{Phone: phone, Code: defaultOTPCode}); err == nil {
		t.Fatal("a code must be usable once")
	}
}

func TestOTPSend_RateLimited(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	_, client, _ := newTestServer(t, Config{Now: func() time.Time { return now }})

	for i := 0; i < 3; i++ {
		if _, err := client.SendOTP(ctx, backend.OTPSendRequest{Phone: "+1"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	_, err := client.SendOTP(ctx, backend.OTPSendRequest{Phone: "+1"})
	var apiErr *backend.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
}

func TestLogout_RevokesToken(t *testing.T) {
	ctx := context.Background()
	s, client, _ := newTestServer(t, Config{})
	_, _ = s.AddAccount("Ada", "ada@example.com", "", "pw")

	res, _ := client.Login(ctx, backend.LoginRequest{Email: "ada@example.com", Password: "pw"})

	if err := client.Logout(ctx, res.Token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	u, err := client.CurrentUser(ctx, res.Token)
	if err != nil || u != nil {
		t.Fatalf("revoked token must be rejected, got %+v, %v", u, err)
	}

	if err := client.Logout(ctx, res.Token); err == nil {
		t.Fatal("expected second logout to fail")
	}
}

func TestOAuth_RedirectsToCallback(t *testing.T) {
	ctx := context.Background()
	_, client, _ := newTestServer(t, Config{CallbackURL: "https://wallet.example.com/oauth/callback"})

	hc := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	resp, err := hc.Get(client.OAuthURL("google", "/wallet"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected status 302, got %d", resp.StatusCode)
	}

	loc, _ := url.Parse(resp.Header.Get("Location"))
	if loc.Host != "wallet.example.com" || loc.Path != "/oauth/callback" {
		t.Fatalf("unexpected location: %s", loc)
	}
	if got := loc.Query().Get("return_url"); got != "/wallet" {
		t.Fatalf("unexpected return_url: %q", got)
	}

	u, err := client.CurrentUser(ctx, loc.Query().Get("token"))
	if err != nil || u == nil || u.Email != "google@oauth.mock" {
		t.Fatalf("unexpected user: %+v, %v", u, err)
	}
}

func TestConfig_FeedsSnapshot(t *testing.T) {
	_, client, _ := newTestServer(t, Config{AppName: "Mock Wallet", WalletEnabled: true})

	snap := features.NewSnapshot(features.Defaults, nil)
	snap.Load(context.Background(), client)

	got := snap.Get()
	if got.AppName != "Mock Wallet" || !got.WalletEnabled {
		t.Fatalf("unexpected features: %+v", got)
	}
}
