package session

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/alexlup06-authgate/walletgate/backend"
	"github.com/alexlup06-authgate/walletgate/storage/memory"
)

type fakeBackend struct {
	mu sync.Mutex

	loginResult backend.AuthResult
	loginErr    error
	otpResult   backend.AuthResult
	logoutErr   error
	user        *backend.User
	userErr     error

	logoutTokens []string
	userCalls    int
}

func (f *fakeBackend) Login(context.Context, backend.LoginRequest) (backend.AuthResult, error) {
	return f.loginResult, f.loginErr
}

func (f *fakeBackend) Register(context.Context, backend.RegisterRequest) (backend.AuthResult, error) {
	return f.loginResult, f.loginErr
}

func (f *fakeBackend) SendOTP(context.Context, backend.OTPSendRequest) (backend.AuthResult, error) {
	return backend.AuthResult{Message: "sent"}, nil
}

func (f *fakeBackend) VerifyOTP(context.Context, backend.OTPVerifyRequest) (backend.AuthResult, error) {
	return f.otpResult, nil
}

func (f *fakeBackend) Logout(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutTokens = append(f.logoutTokens, token)
	return f.logoutErr
}

func (f *fakeBackend) CurrentUser(context.Context, string) (*backend.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userCalls++
	return f.user, f.userErr
}

func (f *fakeBackend) OAuthURL(provider, returnURL string) string {
	u := "https://api.example.com/auth/" + provider
	if returnURL != "" {
		u += "?" + url.Values{"return_url": {returnURL}}.Encode()
	}
	return u
}

var errNetwork = errors.New("dial tcp: connection refused")

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestSDK(t *testing.T, fb *fakeBackend) (*SDK, *memory.Store) {
	t.Helper()

	if fb == nil {
		fb = &fakeBackend{}
	}
	store := memory.New()

	sdk, err := New(Config{
		Persistent:         store,
		Backend:            fb,
		AllowedReturnHosts: []string{"wallet.example.com"},
		Now:                func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("failed to create sdk: %v", err)
	}

	return sdk, store
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	return NewSession(memory.New(), memory.New(), func() time.Time { return fixedNow })
}

func newMem() *memory.Store {
	return memory.New()
}
