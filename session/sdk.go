package session

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/alexlup06-authgate/walletgate/storage"
)

// SDK binds browser contexts to sessions and runs the auth flows.
type SDK struct {
	persistent   storage.Storage
	ephemeral    storage.Storage
	backend      Backend
	loginPath    string
	landingPath  string
	allowedHosts []string
	secure       bool
	logger       *slog.Logger
	now          func() time.Time

	callbacks metric.Int64Counter
}

func New(cfg Config) (*SDK, error) {
	if cfg.Persistent == nil {
		return nil, errors.New("session: persistent storage is required")
	}

	if cfg.Backend == nil {
		return nil, errors.New("session: backend is required")
	}

	s := &SDK{
		persistent:  cfg.Persistent,
		ephemeral:   cfg.Ephemeral,
		backend:     cfg.Backend,
		loginPath:   cfg.LoginPath,
		landingPath: cfg.LandingPath,
		secure:      cfg.SecureCookies,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}
	if s.ephemeral == nil {
		s.ephemeral = s.persistent
	}
	if s.loginPath == "" {
		s.loginPath = LoginPath
	}
	if s.landingPath == "" {
		s.landingPath = LandingPath
	}
	if !strings.HasPrefix(s.loginPath, "/") || !strings.HasPrefix(s.landingPath, "/") {
		return nil, errors.New("session: login and landing paths must be site-relative")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	for _, h := range cfg.AllowedReturnHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			s.allowedHosts = append(s.allowedHosts, h)
		}
	}

	var err error
	s.callbacks, err = otel.Meter("github.com/alexlup06-authgate/walletgate/session").Int64Counter(
		"walletgate.oauth.callbacks",
		metric.WithDescription("OAuth callback completions by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("session: create counter: %w", err)
	}

	return s, nil
}

// LoginPath returns the configured login entry point.
func (s *SDK) LoginPath() string {
	return s.loginPath
}

// LandingPath returns the configured authenticated landing page.
func (s *SDK) LandingPath() string {
	return s.landingPath
}

// SessionFor returns the session of the browser identified by visitorID and
// tabID.
func (s *SDK) SessionFor(visitorID, tabID string) *Session {
	sess := NewSession(
		storage.Prefixed(s.persistent, "visitor:"+visitorID+":"),
		storage.Prefixed(s.ephemeral, "tab:"+tabID+":"),
		s.now,
	)
	sess.logger = s.logger
	return sess
}
