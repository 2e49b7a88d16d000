package app

import (
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/tokenkeeper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testAccessSecret  = strings.Repeat("a", 32)
	testRefreshSecret = strings.Repeat("r", 32)
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.HTTPAddr)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, "argon2id", cfg.PasswordAlgorithm)
	assert.True(t, cfg.Migrate)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.AuditFile)
}

func TestLoadConfigEnvThenFlags(t *testing.T) {
	t.Setenv("TOKENKEEPER_HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("TOKENKEEPER_REDIS_URL", "redis://cache:6379/1")
	t.Setenv("TOKENKEEPER_JWT_EXPIRES_IN", "5m")
	t.Setenv("TOKENKEEPER_JWT_REFRESH_EXPIRES_IN", "not-a-duration")
	t.Setenv("TOKENKEEPER_REVOKE_ON_REUSE", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig([]string{"-addr", ":8081", "-db", "postgres://db/tk", "-migrate=false"})
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, "redis://cache:6379/1", cfg.RedisURL)
	assert.Equal(t, "postgres://db/tk", cfg.DatabaseURL)
	assert.False(t, cfg.Migrate)
	assert.Equal(t, 5*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL, "invalid duration falls back to default")
	assert.True(t, cfg.RevokeOnReuse)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigUnknownFlag(t *testing.T) {
	_, err := LoadConfig([]string{"-nope"})
	require.Error(t, err)
}

func TestEngineConfig(t *testing.T) {
	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	_, err = cfg.EngineConfig()
	require.Error(t, err, "secrets are required")

	cfg.AccessSecret = testAccessSecret
	cfg.RefreshSecret = testRefreshSecret
	cfg.KeyPrefix = "tk:"
	cfg.PasswordAlgorithm = "bcrypt"

	engineCfg, err := cfg.EngineConfig()
	require.NoError(t, err)
	assert.Equal(t, []byte(testAccessSecret), engineCfg.JWT.AccessSecret)
	assert.Equal(t, "tk:", engineCfg.Session.KeyPrefix)
	assert.Equal(t, tokenkeeper.PasswordBcrypt, engineCfg.Password.Algorithm)
	assert.True(t, engineCfg.Audit.Enabled)

	cfg.RefreshSecret = testAccessSecret
	_, err = cfg.EngineConfig()
	require.Error(t, err, "equal secrets are rejected")
}
