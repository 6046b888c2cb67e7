package channel

import (
	"context"
	"log/slog"

	"github.com/m-2-h/TextSecure-Server/internal/metrics"
	"github.com/m-2-h/TextSecure-Server/pkg/dispatch"
	"github.com/m-2-h/TextSecure-Server/pkg/entities"
)

// Sender implements dispatch.DeliveryChannelClient against the in-process
// connection registry. Per-channel online/offline counters record how often
// a destination had a live connection at dispatch time.
type Sender struct {
	registry *Registry
	metrics  *metrics.Registry
	logger   *slog.Logger
}

var _ dispatch.DeliveryChannelClient = (*Sender)(nil)

func NewSender(registry *Registry, registryMetrics *metrics.Registry, logger *slog.Logger) *Sender {
	registryMetrics.RegisterGauge("channel.online_connections", registry.Online)
	return &Sender{
		registry: registry,
		metrics:  registryMetrics,
		logger:   logger.With("component", "ChannelSender"),
	}
}

// Send writes the envelope to the destination's live connection, if one is
// registered. A missing or failed connection is ordinary non-delivery, never
// an error: the caller decides whether to escalate.
func (s *Sender) Send(_ context.Context, account entities.Account, device entities.Device, envelope entities.Envelope, channel dispatch.Channel) (dispatch.DeliveryStatus, error) {
	address := entities.NewDeliveryAddress(account.Number, device.ID)

	conn, ok := s.registry.Get(address)
	if !ok {
		s.metrics.Counter("channel.offline." + string(channel)).Inc()
		return dispatch.DeliveryStatus{}, nil
	}

	if err := conn.SendEnvelope(envelope); err != nil {
		// The connection is broken; drop it so the next dispatch goes
		// straight to the push path.
		s.registry.Unregister(address, conn)
		_ = conn.Close()
		s.metrics.Counter("channel.offline." + string(channel)).Inc()
		s.logger.Debug("live connection write failed", "address", address.String(), "err", err)
		return dispatch.DeliveryStatus{}, nil
	}

	s.metrics.Counter("channel.online." + string(channel)).Inc()
	return dispatch.DeliveryStatus{Delivered: true}, nil
}
