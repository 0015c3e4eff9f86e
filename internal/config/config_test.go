package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
jwt:
  secret: c2VjcmV0LXNlY3JldC1zZWNyZXQ=
database:
  dsn: "user:pass@tcp(localhost:3306)/auth?parseTime=true"
identity:
  base_url: http://localhost:9000
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, 8080, cfg.Gateway.Port)
	assert.Equal(t, DefaultPublicPrefixes, cfg.Gateway.PublicPrefixes)
	assert.Equal(t, time.Hour, cfg.JWT.AccessTTL.Std())
	assert.Equal(t, 24*time.Hour, cfg.JWT.RefreshTTL.Std())
	assert.Equal(t, 3, cfg.Session.MaxActive)
	assert.True(t, cfg.Session.StrictLastLoginEnabled())
	assert.Equal(t, 5*time.Second, cfg.Identity.Timeout.Std())
	assert.Equal(t, "http://ip-api.com", cfg.Geo.BaseURL)
	assert.Equal(t, 12*time.Hour, cfg.Geo.CacheTTL.Std())
}

func TestLoadFullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
env: production
server:
  port: 9081
gateway:
  port: 9080
  public_prefixes:
    - /api/auth/login
  routes:
    - prefix: /api/auth
      upstream: http://auth:8081
    - prefix: /api/users
      upstream: http://users:8082
jwt:
  secret: c2VjcmV0LXNlY3JldC1zZWNyZXQ=
  access_ttl: 15m
  refresh_ttl: 72h
session:
  max_active: 5
  strict_last_login: false
database:
  dsn: "user:pass@tcp(db:3306)/auth?parseTime=true"
redis:
  url: redis://redis:6379/0
identity:
  base_url: http://users:8082
  timeout: 2s
allowed_origins:
  - "*.example.com"
`))
	require.NoError(t, err)

	assert.False(t, cfg.IsDev())
	assert.Equal(t, 9081, cfg.Server.Port)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL.Std())
	assert.Equal(t, 72*time.Hour, cfg.JWT.RefreshTTL.Std())
	assert.Equal(t, 5, cfg.Session.MaxActive)
	assert.False(t, cfg.Session.StrictLastLoginEnabled())
	assert.Equal(t, []string{"/api/auth/login"}, cfg.Gateway.PublicPrefixes)
	require.Len(t, cfg.Gateway.Routes, 2)
	assert.Equal(t, "http://auth:8081", cfg.Gateway.Routes[0].Upstream)
	assert.Equal(t, []string{"*.example.com"}, cfg.AllowedOrigins)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing jwt secret", body: `
database:
  dsn: dsn
identity:
  base_url: http://x
`},
		{name: "missing dsn", body: `
jwt:
  secret: abc
identity:
  base_url: http://x
`},
		{name: "missing identity base url", body: `
jwt:
  secret: abc
database:
  dsn: dsn
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`
geo:
  cache_ttl: "twelve hours"
`))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
}
