package config_test

import (
	"net/netip"
	"testing"
	"time"

	"github.com/jrsteele09/dietitian-server/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := config.New()

	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, config.EnvDevelopment, c.GetEnv())
	require.False(t, c.IsProduction())
	require.Equal(t, 5, c.GetMaxLoginAttempts())
	require.Equal(t, 15*time.Minute, c.GetLockDuration())
	require.Equal(t, "7d", c.GetAccessTokenExpiry())
	require.Equal(t, "30d", c.GetRememberMeExpiry())
	require.Equal(t, config.BackendMemory, c.GetStorageBackend())
}

func TestOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "prod")
	t.Setenv("MAX_LOGIN_ATTEMPTS", "3")
	t.Setenv("LOCK_DURATION", "1m")
	t.Setenv("BCRYPT_COST", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	c := config.New()

	require.Equal(t, ":9090", c.GetPort())
	require.True(t, c.IsProduction())
	require.Equal(t, 3, c.GetMaxLoginAttempts())
	require.Equal(t, time.Minute, c.GetLockDuration())
	require.Equal(t, 12, c.GetBcryptCost())
	require.True(t, c.GetAllowedOrigins().IsAllowedOrigin("https://b.example.com"))
	require.False(t, c.GetAllowedOrigins().IsAllowedOrigin("https://c.example.com"))
}

func TestValidate(t *testing.T) {
	t.Setenv("ENV", "PROD")
	require.Error(t, config.Validate(config.New()))

	t.Setenv("JWT_SECRET", "s3cret")
	require.NoError(t, config.Validate(config.New()))

	t.Setenv("STORAGE_BACKEND", "postgres")
	require.Error(t, config.Validate(config.New()))
}

func TestTrustedProxies(t *testing.T) {
	proxies, err := config.New().GetTrustedProxies()
	require.NoError(t, err)
	require.Empty(t, proxies)

	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.10")
	proxies, err = config.New().GetTrustedProxies()
	require.NoError(t, err)
	require.Len(t, proxies, 2)
	require.True(t, proxies.Contains(netip.MustParseAddr("10.1.2.3")))
	require.True(t, proxies.Contains(netip.MustParseAddr("::ffff:192.0.2.10")))
	require.False(t, proxies.Contains(netip.MustParseAddr("192.0.2.11")))

	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,not-an-ip")
	_, err = config.New().GetTrustedProxies()
	require.Error(t, err)
	require.Error(t, config.Validate(config.New()))
}
