package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cienspay/cienspay-web/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "API_URL", "API_TIMEOUT", "ADMIN_EMAIL", "REFRESH_MODE", "ENV", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	c := config.New()

	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, "http://localhost:8000/api", c.GetAPIURL())
	require.Equal(t, 10*time.Second, c.GetAPITimeout())
	require.Equal(t, "admin@cienspay.com", c.GetAdminEmail())
	require.Equal(t, "custom", c.GetRefreshMode())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, "debug", c.GetLogLevel())
	require.False(t, c.GetRefreshSingleFlight())
}

func TestOverrides(t *testing.T) {
	t.Setenv("PORT", ":9090")
	t.Setenv("API_TIMEOUT", "3s")
	t.Setenv("REFRESH_SINGLE_FLIGHT", "true")
	t.Setenv("ENV", "PROD")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	c := config.New()

	require.Equal(t, ":9090", c.GetPort())
	require.Equal(t, 3*time.Second, c.GetAPITimeout())
	require.True(t, c.GetRefreshSingleFlight())
	require.Equal(t, "info", c.GetLogLevel())
	require.True(t, c.GetAllowedOrigins().IsAllowedOrigin("https://b.example"))
	require.False(t, c.GetAllowedOrigins().IsAllowedOrigin("https://c.example"))
}

func TestCookieKeys(t *testing.T) {
	c := config.New()

	t.Run("unset", func(t *testing.T) {
		t.Setenv("COOKIE_HASH_KEY", "")
		key, err := c.GetCookieHashKey()
		require.NoError(t, err)
		require.Nil(t, key)
	})

	t.Run("hex", func(t *testing.T) {
		t.Setenv("COOKIE_HASH_KEY", "00ff10")
		key, err := c.GetCookieHashKey()
		require.NoError(t, err)
		require.Equal(t, []byte{0x00, 0xff, 0x10}, key)
	})

	t.Run("not hex", func(t *testing.T) {
		t.Setenv("COOKIE_BLOCK_KEY", "zz")
		_, err := c.GetCookieBlockKey()
		require.Error(t, err)
		require.Contains(t, err.Error(), "COOKIE_BLOCK_KEY")
	})
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("CIENSPAY_DOTENV_PROBE=loaded\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CIENSPAY_DOTENV_PROBE") })

	require.NoError(t, config.LoadDotEnv(filepath.Join(dir, "missing.env")))
	require.NoError(t, config.LoadDotEnv(envFile))
	require.Equal(t, "loaded", os.Getenv("CIENSPAY_DOTENV_PROBE"))
}
