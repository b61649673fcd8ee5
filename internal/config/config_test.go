package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "az", cfg.DefaultLocale)
	assert.Equal(t, []string{"az", "en", "ru"}, cfg.Locales)
	assert.Equal(t, "NEXT_LOCALE", cfg.LocaleCookie)
	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.Equal(t, "/login", cfg.LoginPath)
	assert.Equal(t, "/dashboard", cfg.LandingPath)
	assert.Equal(t, "Wallet", cfg.AppName)
	assert.False(t, cfg.WalletEnabled)
	assert.False(t, cfg.Production)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("LOCALES", "en,de")
	t.Setenv("DEFAULT_LOCALE", "en")
	t.Setenv("PRODUCTION", "true")
	t.Setenv("ALLOWED_RETURN_HOSTS", "wallet.example.com,app.example.com")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, []string{"en", "de"}, cfg.Locales)
	assert.Equal(t, "en", cfg.DefaultLocale)
	assert.True(t, cfg.Production)
	assert.Equal(t, []string{"wallet.example.com", "app.example.com"}, cfg.AllowedReturnHosts)
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BUILD_VERSION=abc123\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("BUILD_VERSION") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "abc123", cfg.BuildVersion)
}

func TestValidate(t *testing.T) {
	base := Config{
		DefaultLocale: "az",
		Locales:       []string{"az", "en"},
		StorageDriver: DriverMemory,
		LoginPath:     "/login",
		LandingPath:   "/dashboard",
	}
	require.NoError(t, base.Validate())

	cases := map[string]func(*Config){
		"default not listed":  func(c *Config) { c.DefaultLocale = "ru" },
		"unknown driver":      func(c *Config) { c.StorageDriver = "etcd" },
		"redis without url":   func(c *Config) { c.StorageDriver = DriverRedis },
		"relative login path": func(c *Config) { c.LoginPath = "login" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base
			c.Locales = []string{"az", "en"}
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
