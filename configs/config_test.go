package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"USERNAME", "PASSWORD", "THREADS_USERNAME", "THREADS_PASSWORD", "STORE_PATH", "CSV_PATH",
	"POST_INTERVAL_HOURS", "RANDOM_DELAY_MIN", "RANDOM_DELAY_MAX", "MAX_RETRIES",
	"LOGIN_RETRY_DELAY_SECONDS", "PUBLISH_RETRY_DELAY_SECONDS", "THREADS_API_URL",
	"HISTORY_DATABASE_DRIVER", "HISTORY_DATABASE_URI", "LOG_FILE", "R2_ACCOUNT_ID",
	"R2_ACCESS_KEY", "R2_SECRET_KEY", "R2_BUCKET_NAME", "R2_PUBLIC_URL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("USERNAME", "vault")
	t.Setenv("PASSWORD", "hunter2")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "vault", cfg.Username)
	assert.Equal(t, "hunter2", cfg.Password)
	assert.Equal(t, "threads_posts.csv", cfg.StorePath)
	assert.Equal(t, 2*time.Hour, cfg.PostInterval)
	assert.Equal(t, 30, cfg.DelayMin)
	assert.Equal(t, 90, cfg.DelayMax)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.LoginRetryDelay)
	assert.Equal(t, 10*time.Second, cfg.PublishRetryDelay)
	assert.Equal(t, "https://graph.threads.net/v1.0", cfg.ThreadsAPIURL)
	assert.Equal(t, "sqlite", cfg.History.Driver)
	assert.False(t, cfg.R2Enabled())
}

func TestLoadConfig_ThreadsAliases(t *testing.T) {
	clearEnv(t)
	t.Setenv("THREADS_USERNAME", "vault")
	t.Setenv("THREADS_PASSWORD", "hunter2")
	t.Setenv("CSV_PATH", "queue.csv")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "vault", cfg.Username)
	assert.Equal(t, "queue.csv", cfg.StorePath)
}

func TestLoadConfig_StorePathWinsOverAlias(t *testing.T) {
	clearEnv(t)
	t.Setenv("USERNAME", "vault")
	t.Setenv("PASSWORD", "hunter2")
	t.Setenv("CSV_PATH", "old.csv")
	t.Setenv("STORE_PATH", "new.csv")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "new.csv", cfg.StorePath)
}

func TestLoadConfig_MissingCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("PASSWORD", "hunter2")

	cfg, err := LoadConfig()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.True(t, errors.Is(err, ErrConfig))

	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Len(t, cerr.Missing, 1)
	assert.Contains(t, err.Error(), "USERNAME")
	assert.NotContains(t, err.Error(), "hunter2")
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("USERNAME", "vault")
	t.Setenv("PASSWORD", "hunter2")
	t.Setenv("RANDOM_DELAY_MIN", "100")
	t.Setenv("RANDOM_DELAY_MAX", "10")
	t.Setenv("MAX_RETRIES", "three")

	_, err := LoadConfig()
	require.Error(t, err)

	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Empty(t, cerr.Missing)
	assert.Len(t, cerr.Invalid, 2)
	assert.Contains(t, err.Error(), "MAX_RETRIES must be an integer")
	assert.Contains(t, err.Error(), "RANDOM_DELAY_MIN must not exceed RANDOM_DELAY_MAX")
}

func TestLoadConfig_UnknownHistoryDriver(t *testing.T) {
	clearEnv(t)
	t.Setenv("USERNAME", "vault")
	t.Setenv("PASSWORD", "hunter2")
	t.Setenv("HISTORY_DATABASE_DRIVER", "mysql")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HISTORY_DATABASE_DRIVER")
}

func TestLoadConfig_R2Enabled(t *testing.T) {
	clearEnv(t)
	t.Setenv("USERNAME", "vault")
	t.Setenv("PASSWORD", "hunter2")
	t.Setenv("R2_ACCOUNT_ID", "acc")
	t.Setenv("R2_ACCESS_KEY", "ak")
	t.Setenv("R2_SECRET_KEY", "sk")
	t.Setenv("R2_BUCKET_NAME", "media")
	t.Setenv("R2_PUBLIC_URL", "https://pub.example.r2.dev/")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.R2Enabled())
	assert.Equal(t, "https://pub.example.r2.dev", cfg.R2.PublicURL)
}
