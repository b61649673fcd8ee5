// Command walletgate serves the wallet web front: locale-aware routing,
// browser sessions backed by the wallet API, and the OAuth callback page.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alexlup06-authgate/walletgate/backend"
	"github.com/alexlup06-authgate/walletgate/features"
	"github.com/alexlup06-authgate/walletgate/internal/config"
	"github.com/alexlup06-authgate/walletgate/internal/logging"
	"github.com/alexlup06-authgate/walletgate/locale"
	"github.com/alexlup06-authgate/walletgate/mockapi"
	"github.com/alexlup06-authgate/walletgate/session"
	"github.com/alexlup06-authgate/walletgate/storage"
	"github.com/alexlup06-authgate/walletgate/storage/memory"
	"github.com/alexlup06-authgate/walletgate/storage/redis"
	"github.com/alexlup06-authgate/walletgate/storage/valkey"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "walletgate:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var servers []*http.Server
	if cfg.MockBackend {
		mock, err := mockapi.New(mockapi.Config{
			Secret:        []byte(cfg.MockJWTSecret),
			CallbackURL:   publicURL(cfg.HTTPAddr) + "/oauth/callback",
			AppName:       cfg.AppName,
			WalletEnabled: cfg.WalletEnabled,
			Logger:        logger.With("component", "mockapi"),
		})
		if err != nil {
			return err
		}
		servers = append(servers, &http.Server{
			Addr:              cfg.MockBackendAddr,
			Handler:           mock,
			ReadHeaderTimeout: 5 * time.Second,
		})
		cfg.BackendURL = publicURL(cfg.MockBackendAddr)
		logger.Warn("using in-process mock backend", "addr", cfg.MockBackendAddr)
	}

	client := backend.NewClient(cfg.BackendURL)

	snap := features.NewSnapshot(features.Features{
		AppName:       cfg.AppName,
		WalletEnabled: cfg.WalletEnabled,
	}, logger)

	resolver, err := locale.NewResolver(locale.Config{
		Default:      cfg.DefaultLocale,
		Locales:      cfg.Locales,
		CookieName:   cfg.LocaleCookie,
		Production:   cfg.Production,
		BuildVersion: cfg.BuildVersion,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	sdk, err := session.New(session.Config{
		Persistent:         store,
		Backend:            client,
		LoginPath:          cfg.LoginPath,
		LandingPath:        cfg.LandingPath,
		AllowedReturnHosts: cfg.AllowedReturnHosts,
		SecureCookies:      cfg.SecureCookies,
		Logger:             logger,
	})
	if err != nil {
		return err
	}

	a, err := newApp(logger, resolver, sdk, snap)
	if err != nil {
		return err
	}

	servers = append(servers, &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.handler(),
		ReadHeaderTimeout: 5 * time.Second,
	})

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", srv.Addr, err)
		}
		logger.Info("listening", "addr", srv.Addr)
		srv := srv
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
		}()
	}

	// Listeners are bound, so the mock can answer the one-shot config fetch.
	snap.Start(ctx, client)

	select {
	case <-ctx.Done():
	case err = <-errCh:
		logger.Error("server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if sErr := srv.Shutdown(shutdownCtx); sErr != nil {
			logger.Error("shutdown", "addr", srv.Addr, "error", sErr)
		}
	}
	return err
}

// openStorage selects the session storage driver.
func openStorage(ctx context.Context, cfg config.Config) (storage.Storage, func() error, error) {
	switch cfg.StorageDriver {
	case config.DriverRedis:
		s, err := redis.New(ctx, cfg.StorageURL)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.DriverValkey:
		s, err := valkey.New(ctx, cfg.StorageURL)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		s := memory.New()
		return s, s.Close, nil
	}
}

// publicURL turns a listen address into a loopback base URL.
func publicURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
