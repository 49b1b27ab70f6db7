package config

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENVIRONMENT", "PORT", "POSTGRES_DSN", "POSTGRES_USER", "POSTGRES_PASSWORD",
		"POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_DB", "POSTGRES_SSLMODE",
		"USE_LOCAL_DB", "LOCAL_DB_PATH", "FRONTEND_PORT_HOST", "ALLOWED_ORIGINS",
		"ADMIN_USERS", "AUTH_MODE", "ALLOWED_EMAIL_DOMAIN", "JWT_SECRET",
		"RATE_LIMIT_PER_MINUTE", "DEBUG",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := LoadConfig()
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "8005", cfg.Port)
	assert.Equal(t, AuthModeHeader, cfg.AuthMode)
	assert.Equal(t, []string{"jisung.jang"}, cfg.AdminUsers)
	assert.Equal(t, "samsung.com", cfg.AllowedEmailDomain)
	assert.Equal(t, []string{
		"http://localhost:3005",
		"http://127.0.0.1:3005",
		"http://localhost:80",
	}, cfg.AllowedOrigins)
	assert.Zero(t, cfg.RateLimitPerMinute)

	u, err := url.Parse(cfg.PostgresDSN)
	require.NoError(t, err)
	assert.Equal(t, "postgres:5432", u.Host)
	assert.Equal(t, "/openwebui", u.Path)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))

	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("POSTGRES_DSN", " postgres://u:p@db:5432/webui?sslmode=require \n")
	t.Setenv("ALLOWED_ORIGINS", "https://dash.example.com, https://ops.example.com")
	t.Setenv("ADMIN_USERS", "alice, bob ,")
	t.Setenv("AUTH_MODE", "TOKEN")
	t.Setenv("DEBUG", "true")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "120")

	cfg := LoadConfig()
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.Debug)
	assert.Equal(t, "postgres://u:p@db:5432/webui?sslmode=require", cfg.PostgresDSN)
	assert.Equal(t, []string{"https://dash.example.com", "https://ops.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, []string{"alice", "bob"}, cfg.AdminUsers)
	assert.Equal(t, AuthModeToken, cfg.AuthMode)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{Port: "8005", AuthMode: AuthModeHeader, UseLocalDB: true, AllowedEmailDomain: "samsung.com"}
	require.NoError(t, valid.Validate())

	noPort := valid
	noPort.Port = ""
	assert.Error(t, noPort.Validate())

	badMode := valid
	badMode.AuthMode = "oauth"
	assert.Error(t, badMode.Validate())

	noStore := valid
	noStore.UseLocalDB = false
	assert.Error(t, noStore.Validate())
}

func TestConfig_IsAdmin(t *testing.T) {
	cfg := &Config{AdminUsers: []string{"jisung.jang"}}
	assert.True(t, cfg.IsAdmin("jisung.jang"))
	assert.True(t, cfg.IsAdmin("Jisung.Jang"))
	assert.False(t, cfg.IsAdmin("alice"))
	assert.False(t, cfg.IsAdmin(""))
}
