package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.ListenAddr())
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 10*time.Second, cfg.Player.ConnectTimeout)
	assert.Equal(t, 12*time.Millisecond, cfg.Player.FadeStep)
	assert.Equal(t, 256, cfg.Media.ThumbSize)
	assert.GreaterOrEqual(t, len(cfg.Auth.SecretKey), MinSecretKeyLength)
}

func TestLoad_ProductionSecretKey(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENV", "Production")

	t.Setenv("SECRET_KEY", "")
	_, err := Load()
	assert.ErrorContains(t, err, "SECRET_KEY is required")

	t.Setenv("SECRET_KEY", strings.Repeat("x", MinSecretKeyLength-1))
	_, err = Load()
	assert.ErrorContains(t, err, "at least 64 characters")

	t.Setenv("SECRET_KEY", strings.Repeat("x", MinSecretKeyLength))
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9000")
	t.Setenv("STREAM_CONNECT_TIMEOUT", "3s")
	t.Setenv("STREAM_MAX_RESTARTS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.Player.ConnectTimeout)
	assert.Equal(t, 5, cfg.Player.MaxRestarts, "unparsable values fall back to the default")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", User: "radio", Password: "p@ss:word", Name: "radio"}
	dsn := d.DSN()
	assert.Contains(t, dsn, "tcp(db:3306)/radio")
	assert.Contains(t, dsn, "parseTime=true")

	d.dsnOverride = "user:pw@tcp(other:3307)/x"
	assert.Equal(t, "user:pw@tcp(other:3307)/x", d.DSN())
}

func TestEnsurePort(t *testing.T) {
	assert.Equal(t, "db:3306", ensurePort("db", "3306"))
	assert.Equal(t, "db:3307", ensurePort("db:3307", "3306"))
}
