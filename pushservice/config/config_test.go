package config_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/m-2-h/TextSecure-Server/pushservice/config"
)

const testYaml = `
listen_addr: ":9090"
push:
  queue_size: 100
  workers: 10
  drain_timeout_minutes: 2
fallback:
  retry_seconds: 15
  max_attempts: 3
apns:
  key_id: "KEY1"
  team_id: "TEAM1"
  bundle_id: "org.whispersystems.signal"
  p8_key: "fake-p8-content"
  sandbox: true
redis:
  enabled: true
  addr: "localhost:6379"
  db: 1
database:
  url: "postgres://localhost/textsecure"
twilio:
  account_sid: "AC123"
  auth_token: "secret"
  number: "+15005550006"
  vox_url: "https://example.com/twiml"
email:
  url: "https://relay.example.com/{email}/{code}"
  user: "relay"
  password: "hunter2"
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	var yamlCfg config.YamlConfig
	require.NoError(t, yaml.Unmarshal([]byte(testYaml), &yamlCfg))
	cfg, err := config.NewConfigFromYaml(&yamlCfg, testLogger())
	require.NoError(t, err)
	return cfg
}

func TestNewConfigFromYaml_MapsAllSections(t *testing.T) {
	cfg := loadTestConfig(t)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, 100, cfg.Push.QueueSize)
	assert.Equal(t, 10, cfg.Push.Workers)
	assert.Equal(t, 2*time.Minute, cfg.Push.DrainTimeout())
	assert.Equal(t, 15, cfg.Fallback.RetrySeconds)
	assert.Equal(t, 3, cfg.Fallback.MaxAttempts)
	assert.Equal(t, "KEY1", cfg.Apns.KeyID)
	assert.True(t, cfg.Apns.Sandbox)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 1, cfg.Redis.DB)
	assert.Equal(t, "postgres://localhost/textsecure", cfg.Database.URL)
	assert.Equal(t, "AC123", cfg.Twilio.AccountSID)
	assert.Equal(t, "https://relay.example.com/{email}/{code}", cfg.Email.URL)
}

func TestUpdateConfigWithEnvOverrides(t *testing.T) {
	t.Run("env values win over yaml", func(t *testing.T) {
		cfg := loadTestConfig(t)

		t.Setenv("PORT", "7070")
		t.Setenv("PUSH_QUEUE_SIZE", "500")
		t.Setenv("PUSH_WORKERS", "25")
		t.Setenv("DATABASE_URL", "postgres://db.internal/textsecure")
		t.Setenv("APNS_BUNDLE_ID", "org.example.app")
		t.Setenv("REDIS_ENABLED", "false")

		final, err := config.UpdateConfigWithEnvOverrides(cfg, testLogger())

		require.NoError(t, err)
		assert.Equal(t, ":7070", final.ListenAddr)
		assert.Equal(t, 500, final.Push.QueueSize)
		assert.Equal(t, 25, final.Push.Workers)
		assert.Equal(t, "postgres://db.internal/textsecure", final.Database.URL)
		assert.Equal(t, "org.example.app", final.Apns.BundleID)
		assert.False(t, final.Redis.Enabled)
	})

	t.Run("defaults fill missing values", func(t *testing.T) {
		cfg := loadTestConfig(t)
		cfg.ListenAddr = ""
		cfg.Push.Workers = 0
		cfg.Push.DrainTimeoutMinutes = 0

		final, err := config.UpdateConfigWithEnvOverrides(cfg, testLogger())

		require.NoError(t, err)
		assert.Equal(t, ":8080", final.ListenAddr)
		assert.Equal(t, 50, final.Push.Workers)
		assert.Equal(t, 5*time.Minute, final.Push.DrainTimeout())
	})

	t.Run("missing apns credentials rejected", func(t *testing.T) {
		cfg := loadTestConfig(t)
		cfg.Apns.P8KeyContent = ""

		_, err := config.UpdateConfigWithEnvOverrides(cfg, testLogger())
		require.Error(t, err)
	})

	t.Run("missing database url rejected", func(t *testing.T) {
		cfg := loadTestConfig(t)
		cfg.Database.URL = ""

		_, err := config.UpdateConfigWithEnvOverrides(cfg, testLogger())
		require.Error(t, err)
	})

	t.Run("setting redis addr enables redis", func(t *testing.T) {
		cfg := loadTestConfig(t)
		cfg.Redis = config.RedisConfig{}

		t.Setenv("REDIS_ADDR", "redis.internal:6379")

		final, err := config.UpdateConfigWithEnvOverrides(cfg, testLogger())

		require.NoError(t, err)
		assert.True(t, final.Redis.Enabled)
		assert.Equal(t, "redis.internal:6379", final.Redis.Addr)
	})
}
