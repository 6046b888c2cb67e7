package config

import "log/slog"

type YamlPushConfig struct {
	QueueSize           int `yaml:"queue_size"`
	Workers             int `yaml:"workers"`
	DrainTimeoutMinutes int `yaml:"drain_timeout_minutes"`
}

type YamlFallbackConfig struct {
	RetrySeconds int `yaml:"retry_seconds"`
	MaxAttempts  int `yaml:"max_attempts"`
}

type YamlApnsConfig struct {
	KeyID        string `yaml:"key_id"`
	TeamID       string `yaml:"team_id"`
	BundleID     string `yaml:"bundle_id"`
	P8KeyContent string `yaml:"p8_key"`
	Sandbox      bool   `yaml:"sandbox"`
}

type YamlRedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled  bool   `yaml:"enabled"`
}

type YamlDatabaseConfig struct {
	URL string `yaml:"url"`
}

type YamlTwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	Number     string `yaml:"number"`
	VoxURL     string `yaml:"vox_url"`
}

type YamlEmailConfig struct {
	URL      string `yaml:"url"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// YamlConfig is the structure that mirrors the raw config.yaml file.
type YamlConfig struct {
	ListenAddr string             `yaml:"listen_addr"`
	Push       YamlPushConfig     `yaml:"push"`
	Fallback   YamlFallbackConfig `yaml:"fallback"`
	Apns       YamlApnsConfig     `yaml:"apns"`
	Redis      YamlRedisConfig    `yaml:"redis"`
	Database   YamlDatabaseConfig `yaml:"database"`
	Twilio     YamlTwilioConfig   `yaml:"twilio"`
	Email      YamlEmailConfig    `yaml:"email"`
}

// NewConfigFromYaml converts the YamlConfig into a clean, base Config struct.
func NewConfigFromYaml(baseCfg *YamlConfig, logger *slog.Logger) (*Config, error) {
	logger.Debug("Mapping YAML config to base config struct")

	cfg := &Config{
		ListenAddr: baseCfg.ListenAddr,
		Push: PushConfig{
			QueueSize:           baseCfg.Push.QueueSize,
			Workers:             baseCfg.Push.Workers,
			DrainTimeoutMinutes: baseCfg.Push.DrainTimeoutMinutes,
		},
		Fallback: FallbackConfig{
			RetrySeconds: baseCfg.Fallback.RetrySeconds,
			MaxAttempts:  baseCfg.Fallback.MaxAttempts,
		},
		Apns: ApnsConfig{
			KeyID:        baseCfg.Apns.KeyID,
			TeamID:       baseCfg.Apns.TeamID,
			BundleID:     baseCfg.Apns.BundleID,
			P8KeyContent: baseCfg.Apns.P8KeyContent,
			Sandbox:      baseCfg.Apns.Sandbox,
		},
		Redis: RedisConfig{
			Addr:     baseCfg.Redis.Addr,
			Password: baseCfg.Redis.Password,
			DB:       baseCfg.Redis.DB,
			Enabled:  baseCfg.Redis.Enabled,
		},
		Database: DatabaseConfig{URL: baseCfg.Database.URL},
		Twilio: TwilioConfig{
			AccountSID: baseCfg.Twilio.AccountSID,
			AuthToken:  baseCfg.Twilio.AuthToken,
			Number:     baseCfg.Twilio.Number,
			VoxURL:     baseCfg.Twilio.VoxURL,
		},
		Email: EmailConfig{
			URL:      baseCfg.Email.URL,
			User:     baseCfg.Email.User,
			Password: baseCfg.Email.Password,
		},
	}

	logger.Debug("YAML config mapping complete",
		"listen_addr", cfg.ListenAddr,
		"queue_size", cfg.Push.QueueSize,
	)

	return cfg, nil
}
