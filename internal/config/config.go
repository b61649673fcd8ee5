// Package config loads the gateway configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage drivers accepted in STORAGE_DRIVER.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverValkey = "valkey"
)

// Config is the process configuration.
type Config struct {
	HTTPAddr   string `env:"HTTP_ADDR"   envDefault:":8080"`
	BackendURL string `env:"BACKEND_URL" envDefault:"http://localhost:9090"`

	DefaultLocale string   `env:"DEFAULT_LOCALE" envDefault:"az"`
	Locales       []string `env:"LOCALES"        envDefault:"az,en,ru" envSeparator:","`
	LocaleCookie  string   `env:"LOCALE_COOKIE"  envDefault:"NEXT_LOCALE"`
	Production    bool     `env:"PRODUCTION"`
	BuildVersion  string   `env:"BUILD_VERSION"`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"memory"`
	StorageURL    string `env:"STORAGE_URL"`

	SecureCookies      bool     `env:"SECURE_COOKIES"`
	LoginPath          string   `env:"LOGIN_PATH"           envDefault:"/login"`
	LandingPath        string   `env:"LANDING_PATH"         envDefault:"/dashboard"`
	AllowedReturnHosts []string `env:"ALLOWED_RETURN_HOSTS" envSeparator:","`

	// Built-in feature values, used until the backend config arrives.
	AppName       string `env:"APP_NAME"       envDefault:"Wallet"`
	WalletEnabled bool   `env:"WALLET_ENABLED"`

	MockBackend     bool   `env:"MOCK_BACKEND"`
	MockBackendAddr string `env:"MOCK_BACKEND_ADDR" envDefault:":9090"`
	MockJWTSecret   string `env:"MOCK_JWT_SECRET"   envDefault:"walletgate-dev-secret"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	LogFile   string `env:"LOG_FILE"`
}

// Load reads an optional .env file and parses the environment into a Config.
// Variables already set in the environment win over the file.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints env tags cannot express.
func (c Config) Validate() error {
	if !slices.Contains(c.Locales, c.DefaultLocale) {
		return fmt.Errorf("config: DEFAULT_LOCALE %q is not in LOCALES", c.DefaultLocale)
	}

	switch c.StorageDriver {
	case DriverMemory:
	case DriverRedis, DriverValkey:
		if c.StorageURL == "" {
			return fmt.Errorf("config: STORAGE_URL is required for the %s driver", c.StorageDriver)
		}
	default:
		return fmt.Errorf("config: unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if !strings.HasPrefix(c.LoginPath, "/") || !strings.HasPrefix(c.LandingPath, "/") {
		return errors.New("config: LOGIN_PATH and LANDING_PATH must start with /")
	}
	return nil
}
