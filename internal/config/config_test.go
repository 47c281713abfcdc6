package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/eventgate/internal/session"
)

const goodSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_FailsFastOnShortSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "too-short")
	_, err := Load("")
	require.ErrorIs(t, err, session.ErrSecretTooShort)

	t.Setenv("SESSION_SECRET", "")
	os.Unsetenv("SESSION_SECRET")
	_, err = Load("")
	require.ErrorIs(t, err, session.ErrSecretTooShort)
}

func TestLoad_DefaultsAndEnvOverrides(t *testing.T) {
	t.Setenv("SESSION_SECRET", goodSecret)
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "dev", cfg.App.Env)
	require.Equal(t, ":8080", cfg.Server.Addr)
	require.Equal(t, "memory", cfg.Storage.Driver)
	require.Equal(t, 90*24*time.Hour, cfg.SessionTTL())
	require.Equal(t, 30, cfg.Rate.Register.Limit)
	require.Equal(t, 5, cfg.Rate.Convert.Limit)

	t.Setenv("APP_ENV", "prod")
	t.Setenv("SERVER_ADDR", ":9000")
	t.Setenv("SESSION_TTL", "48h")
	cfg, err = Load("")
	require.NoError(t, err)
	require.Equal(t, "prod", cfg.App.Env)
	require.Equal(t, ":9000", cfg.Server.Addr)
	require.Equal(t, 48*time.Hour, cfg.SessionTTL())
}

func TestLoad_YAMLFile(t *testing.T) {
	t.Setenv("SESSION_SECRET", goodSecret)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
app:
  env: staging
server:
  addr: ":7070"
session:
  previous_secret: "fedcba9876543210fedcba9876543210"
rate:
  enabled: true
  convert:
    limit: 2
    window: 5m
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "staging", cfg.App.Env)
	require.Equal(t, ":7070", cfg.Server.Addr)
	require.True(t, cfg.Rate.Enabled)
	require.Equal(t, 2, cfg.Rate.Convert.Limit)
	require.Equal(t, 5*time.Minute, Window(cfg.Rate.Convert.Window, time.Minute))
}

func TestValidate_Rules(t *testing.T) {
	t.Setenv("SESSION_SECRET", goodSecret)

	t.Setenv("APP_ENV", "production") // inválido, debe ser prod
	_, err := Load("")
	require.Error(t, err)

	t.Setenv("APP_ENV", "prod")
	t.Setenv("STORAGE_DRIVER", "pg")
	_, err = Load("")
	require.Error(t, err, "pg driver without DSN must fail")

	t.Setenv("STORAGE_DSN", "postgres://localhost/eventgate")
	_, err = Load("")
	require.NoError(t, err)
}
