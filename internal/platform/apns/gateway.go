// Package apns provides the platform push-gateway client for the Apple Push
// Notification Service.
package apns

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/token"

	"github.com/m-2-h/TextSecure-Server/pkg/dispatch"
	"github.com/m-2-h/TextSecure-Server/pkg/entities"
)

// APNSClient defines the subset of the apns2.Client methods we use.
// This allows mocking for unit tests.
type APNSClient interface {
	PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error)
}

// Config holds the credentials required to sign APNs tokens.
type Config struct {
	KeyID    string
	TeamID   string
	BundleID string
	// P8KeyContent is the raw string content of the .p8 file.
	P8KeyContent string
	// Sandbox selects the development APNs endpoint.
	Sandbox bool
}

// Gateway implements dispatch.GatewayClient over APNs HTTP/2.
type Gateway struct {
	client APNSClient
	topic  string // the app bundle id
	logger *slog.Logger
}

var _ dispatch.GatewayClient = (*Gateway)(nil)

// NewGateway creates a configured APNs gateway. It parses the P8 key
// immediately to fail fast on startup if credentials are bad.
func NewGateway(cfg Config, logger *slog.Logger) (*Gateway, error) {
	authKey, err := token.AuthKeyFromBytes([]byte(cfg.P8KeyContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse APNs P8 key: %w", err)
	}

	tokenSource := &token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	}

	client := apns2.NewTokenClient(tokenSource)
	if cfg.Sandbox {
		client = client.Development()
	} else {
		client = client.Production()
	}

	return &Gateway{
		client: client,
		topic:  cfg.BundleID,
		logger: logger.With("component", "APNSGateway"),
	}, nil
}

// Send dispatches one wake-up notification. Every failure mode is reported
// as a *dispatch.TransientPushFailure; whether that is swallowed or surfaced
// is the caller's policy.
func (g *Gateway) Send(ctx context.Context, message entities.ApnMessage) error {
	notification := &apns2.Notification{
		DeviceToken: message.Token,
		Topic:       g.topic,
		Payload:     message.Payload,
		Expiration:  message.Expiration,
		Priority:    apns2.PriorityLow,
		PushType:    apns2.PushTypeBackground,
	}
	if message.VoIP {
		// VoIP pushes are addressed to the .voip topic and delivered with
		// high priority.
		notification.Topic = g.topic + ".voip"
		notification.Priority = apns2.PriorityHigh
		notification.PushType = apns2.PushTypeVOIP
	}

	res, err := g.client.PushWithContext(ctx, notification)
	if err != nil {
		return &dispatch.TransientPushFailure{Cause: fmt.Errorf("apns transport: %w", err)}
	}
	if !res.Sent() {
		g.logger.Warn("APNs rejected notification",
			"reason", res.Reason,
			"status", res.StatusCode,
			"device", message.DeviceID,
		)
		return &dispatch.TransientPushFailure{Cause: fmt.Errorf("apns rejected: %s", res.Reason)}
	}
	return nil
}
