package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

type PushConfig struct {
	// QueueSize bounds queued asynchronous dispatches before submission
	// blocks. Zero selects fully synchronous dispatch.
	QueueSize int
	// Workers is the dispatch pool size when QueueSize is positive.
	Workers int
	// DrainTimeoutMinutes bounds how long shutdown waits for in-flight work.
	DrainTimeoutMinutes int
}

func (c PushConfig) DrainTimeout() time.Duration {
	return time.Duration(c.DrainTimeoutMinutes) * time.Minute
}

type FallbackConfig struct {
	RetrySeconds int
	MaxAttempts  int
}

type ApnsConfig struct {
	KeyID        string
	TeamID       string
	BundleID     string
	P8KeyContent string
	Sandbox      bool
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type DatabaseConfig struct {
	URL string
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	Number     string
	VoxURL     string
}

type EmailConfig struct {
	URL      string
	User     string
	Password string
}

// Config defines the single, authoritative configuration.
type Config struct {
	ListenAddr string
	Push       PushConfig
	Fallback   FallbackConfig
	Apns       ApnsConfig
	Redis      RedisConfig
	Database   DatabaseConfig
	Twilio     TwilioConfig
	Email      EmailConfig
}

// UpdateConfigWithEnvOverrides applies environment variables and final
// validation.
func UpdateConfigWithEnvOverrides(cfg *Config, logger *slog.Logger) (*Config, error) {
	logger.Debug("Applying environment variable overrides...")

	if val := os.Getenv("PORT"); val != "" {
		logger.Debug("Overriding config value", "key", "PORT", "source", "env")
		cfg.ListenAddr = ":" + val
	}
	if val := os.Getenv("PUSH_QUEUE_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size >= 0 {
			logger.Debug("Overriding config value", "key", "PUSH_QUEUE_SIZE", "source", "env")
			cfg.Push.QueueSize = size
		}
	}
	if val := os.Getenv("PUSH_WORKERS"); val != "" {
		if workers, err := strconv.Atoi(val); err == nil && workers > 0 {
			logger.Debug("Overriding config value", "key", "PUSH_WORKERS", "source", "env")
			cfg.Push.Workers = workers
		}
	}
	if val := os.Getenv("DATABASE_URL"); val != "" {
		logger.Debug("Overriding config value", "key", "DATABASE_URL", "source", "env")
		cfg.Database.URL = val
	}

	// Redis overrides
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		cfg.Redis.Addr = val
		cfg.Redis.Enabled = true
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		cfg.Redis.Password = val
	}
	if val := os.Getenv("REDIS_DB"); val != "" {
		if db, err := strconv.Atoi(val); err == nil {
			cfg.Redis.DB = db
		}
	}
	if val := os.Getenv("REDIS_ENABLED"); val != "" {
		enabled, _ := strconv.ParseBool(val)
		cfg.Redis.Enabled = enabled
	}

	// APNs overrides
	if val := os.Getenv("APNS_KEY_ID"); val != "" {
		cfg.Apns.KeyID = val
	}
	if val := os.Getenv("APNS_TEAM_ID"); val != "" {
		cfg.Apns.TeamID = val
	}
	if val := os.Getenv("APNS_BUNDLE_ID"); val != "" {
		cfg.Apns.BundleID = val
	}
	if val := os.Getenv("APNS_P8_KEY"); val != "" {
		cfg.Apns.P8KeyContent = val
	}
	if val := os.Getenv("APNS_SANDBOX"); val != "" {
		sandbox, _ := strconv.ParseBool(val)
		cfg.Apns.Sandbox = sandbox
	}

	// Twilio / email relay overrides
	if val := os.Getenv("TWILIO_ACCOUNT_SID"); val != "" {
		cfg.Twilio.AccountSID = val
	}
	if val := os.Getenv("TWILIO_AUTH_TOKEN"); val != "" {
		cfg.Twilio.AuthToken = val
	}
	if val := os.Getenv("TWILIO_NUMBER"); val != "" {
		cfg.Twilio.Number = val
	}
	if val := os.Getenv("EMAIL_RELAY_URL"); val != "" {
		cfg.Email.URL = val
	}

	// Final validation
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.Push.QueueSize < 0 {
		return nil, fmt.Errorf("push.queue_size must be >= 0")
	}
	if cfg.Push.Workers <= 0 {
		cfg.Push.Workers = 50
	}
	if cfg.Push.DrainTimeoutMinutes <= 0 {
		cfg.Push.DrainTimeoutMinutes = 5
	}
	if cfg.Apns.KeyID == "" || cfg.Apns.TeamID == "" || cfg.Apns.BundleID == "" || cfg.Apns.P8KeyContent == "" {
		return nil, fmt.Errorf("apns credentials are required (set via YAML or APNS_* env vars)")
	}
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("database.url is required (set via YAML or DATABASE_URL env var)")
	}

	logger.Debug("Configuration finalized and validated successfully")
	return cfg, nil
}
