package main

import (
	"context"
	_ "embed"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"

	"github.com/m-2-h/TextSecure-Server/internal/api"
	"github.com/m-2-h/TextSecure-Server/internal/channel"
	"github.com/m-2-h/TextSecure-Server/internal/metrics"
	"github.com/m-2-h/TextSecure-Server/internal/platform/apns"
	"github.com/m-2-h/TextSecure-Server/internal/push"
	"github.com/m-2-h/TextSecure-Server/internal/sms"
	"github.com/m-2-h/TextSecure-Server/internal/storage"
	"github.com/m-2-h/TextSecure-Server/internal/storage/cache"
	"github.com/m-2-h/TextSecure-Server/pushservice"
	"github.com/m-2-h/TextSecure-Server/pushservice/config"
)

//go:embed local.yaml
var configFile []byte

func main() {
	var logLevel slog.Level
	switch os.Getenv("LOG_LEVEL") {
	case "debug", "DEBUG":
		logLevel = slog.LevelDebug
	case "info", "INFO":
		logLevel = slog.LevelInfo
	case "warn", "WARN":
		logLevel = slog.LevelWarn
	case "error", "ERROR":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})).With("service", "textsecure-server")
	slog.SetDefault(logger)

	ctx := context.Background()

	// --- Config loading ---
	var yamlCfg config.YamlConfig
	if err := yaml.Unmarshal(configFile, &yamlCfg); err != nil {
		logger.Error("Failed to unmarshal embedded yaml config", "err", err)
		os.Exit(1)
	}
	baseCfg, _ := config.NewConfigFromYaml(&yamlCfg, logger)
	cfg, err := config.UpdateConfigWithEnvOverrides(baseCfg, logger)
	if err != nil {
		logger.Error("Config failed", "err", err)
		os.Exit(1)
	}

	registry := metrics.NewRegistry()

	// --- Infrastructure clients ---
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("Postgres pool failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	var blockList storage.BlockList = storage.NewBlockedAccounts(pool)
	if cfg.Redis.Enabled {
		logger.Info("Initializing Redis cache layer...", "addr", cfg.Redis.Addr)
		redisClient, err := cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Error("Failed to connect to Redis", "err", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		blockList = cache.NewCachedBlockList(blockList, redisClient, time.Hour)
		logger.Info("Block list upgraded", "type", "redis_cached_postgres")
	}
	devices := storage.NewAccounts(pool)

	// --- Push gateway and dispatcher ---
	gateway, err := apns.NewGateway(apns.Config{
		KeyID:        cfg.Apns.KeyID,
		TeamID:       cfg.Apns.TeamID,
		BundleID:     cfg.Apns.BundleID,
		P8KeyContent: cfg.Apns.P8KeyContent,
		Sandbox:      cfg.Apns.Sandbox,
	}, logger)
	if err != nil {
		logger.Error("APNs gateway failed", "err", err)
		os.Exit(1)
	}

	fallback := push.NewFallbackManager(gateway, push.FallbackConfig{
		RetryDelay:  time.Duration(cfg.Fallback.RetrySeconds) * time.Second,
		MaxAttempts: cfg.Fallback.MaxAttempts,
	}, registry, logger)

	connections := channel.NewRegistry(fallback, logger)
	channelSender := channel.NewSender(connections, registry, logger)

	sender := push.NewSender(fallback, gateway, channelSender, push.SenderConfig{
		QueueSize: cfg.Push.QueueSize,
		Workers:   cfg.Push.Workers,
	}, registry, logger)

	// --- Verification code delivery ---
	twilio := sms.NewTwilioClient(sms.TwilioConfig{
		AccountSID: cfg.Twilio.AccountSID,
		AuthToken:  cfg.Twilio.AuthToken,
		Number:     cfg.Twilio.Number,
		VoxURL:     cfg.Twilio.VoxURL,
	})
	smsSender := sms.NewSender(twilio, sms.EmailConfig{
		URL:      cfg.Email.URL,
		User:     cfg.Email.User,
		Password: cfg.Email.Password,
	}, logger)

	// --- Service ---
	service := pushservice.New(
		cfg,
		sender,
		fallback,
		channel.NewWebsocketHandler(connections, logger),
		api.NewMessageAPI(sender, devices, blockList, logger),
		api.NewVerificationAPI(smsSender, logger),
		registry,
		logger,
	)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- service.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Service exited with error", "err", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logger.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := service.Shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown finished with error", "err", err)
			os.Exit(1)
		}
	}
}
