package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/alexlup06-authgate/walletgate/backend"
	"github.com/alexlup06-authgate/walletgate/storage"
)

// Backend is the subset of the wallet API the session layer calls.
// *backend.Client satisfies it.
type Backend interface {
	Login(ctx context.Context, req backend.LoginRequest) (backend.AuthResult, error)
	Register(ctx context.Context, req backend.RegisterRequest) (backend.AuthResult, error)
	SendOTP(ctx context.Context, req backend.OTPSendRequest) (backend.AuthResult, error)
	VerifyOTP(ctx context.Context, req backend.OTPVerifyRequest) (backend.AuthResult, error)
	Logout(ctx context.Context, token string) error
	CurrentUser(ctx context.Context, token string) (*backend.User, error)
	OAuthURL(provider, returnURL string) string
}

// Config defines the configuration required to initialize the session SDK.
//
// Persistent and Backend are required; New returns an error if either is
// missing.
type Config struct {
	// Persistent backs the per-visitor token, token time and user snapshot.
	Persistent storage.Storage

	// Ephemeral backs the per-browsing-session return URL.
	// If nil, Persistent is used; the tab cookie still scopes the keys.
	Ephemeral storage.Storage

	// Backend is the wallet API.
	Backend Backend

	// LoginPath is the login entry point. Defaults to LoginPath.
	LoginPath string

	// LandingPath is where authenticated users land when no return URL is
	// known. Defaults to LandingPath.
	LandingPath string

	// AllowedReturnHosts lists hosts an absolute return URL may point to.
	// Site-relative paths are always allowed.
	AllowedReturnHosts []string

	// SecureCookies sets the Secure attribute on the visitor and tab cookies.
	SecureCookies bool

	// Logger receives session events. If nil, slog.Default() is used.
	Logger *slog.Logger

	// Now is the clock used for token acquisition times.
	// If nil, time.Now is used.
	Now func() time.Time
}
