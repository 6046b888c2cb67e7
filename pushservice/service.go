// Package pushservice assembles the delivery dispatcher into a runnable
// service: the push sender, the live-channel registry, the APN fallback
// manager, and the HTTP surface that drives them.
package pushservice

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/m-2-h/TextSecure-Server/internal/api"
	"github.com/m-2-h/TextSecure-Server/internal/channel"
	"github.com/m-2-h/TextSecure-Server/internal/metrics"
	"github.com/m-2-h/TextSecure-Server/internal/push"
	"github.com/m-2-h/TextSecure-Server/pushservice/config"
)

type Service struct {
	cfg      *config.Config
	sender   *push.Sender
	fallback *push.FallbackManager
	server   *http.Server
	logger   *slog.Logger
}

// New assembles the service routes and lifecycle.
func New(
	cfg *config.Config,
	sender *push.Sender,
	fallback *push.FallbackManager,
	wsHandler *channel.WebsocketHandler,
	messageAPI *api.MessageAPI,
	verificationAPI *api.VerificationAPI,
	registry *metrics.Registry,
	logger *slog.Logger,
) *Service {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", registry.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("GET /v1/websocket", wsHandler)
	messageAPI.Register(mux)
	verificationAPI.Register(mux)

	return &Service{
		cfg:      cfg,
		sender:   sender,
		fallback: fallback,
		server:   &http.Server{Addr: cfg.ListenAddr, Handler: mux},
		logger:   logger,
	}
}

// Start launches the fallback manager and serves HTTP until Shutdown. It
// blocks; run it on its own goroutine.
func (s *Service) Start() error {
	s.fallback.Start()
	if err := s.sender.Start(); err != nil {
		return err
	}

	s.logger.Info("Service is now ready.", "addr", s.cfg.ListenAddr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops intake first, then drains the dispatch pool within the
// configured timeout, then halts the fallback manager.
func (s *Service) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down service components...")
	var finalErr error

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown failed.", "err", err)
		finalErr = err
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Push.DrainTimeout())
	defer cancel()
	if err := s.sender.Stop(drainCtx); err != nil {
		s.logger.Error("Dispatch pool drain incomplete.", "err", err)
		finalErr = err
	}

	if err := s.fallback.Stop(ctx); err != nil {
		s.logger.Error("Fallback manager shutdown failed.", "err", err)
		finalErr = err
	}

	s.logger.Info("Service shutdown complete.")
	return finalErr
}
