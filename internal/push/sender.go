// Package push implements the outbound delivery dispatcher: given a device
// registration and a message envelope it routes between the live connection
// and the platform push gateway, escalating between them under bounded
// concurrency.
package push

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m-2-h/TextSecure-Server/internal/executor"
	"github.com/m-2-h/TextSecure-Server/pkg/dispatch"
	"github.com/m-2-h/TextSecure-Server/pkg/entities"
)

// VoipExpiration is how long a VoIP-class notification stays deliverable.
// VoIP pushes arrive fast but expire quickly; the fallback task compensates.
const VoipExpiration = 30 * time.Second

// SenderConfig controls the dispatch mode of the sender.
type SenderConfig struct {
	// QueueSize is the maximum number of queued asynchronous dispatches
	// before submission blocks. Zero selects fully synchronous dispatch on
	// the caller's goroutine, with no background pool at all.
	QueueSize int
	// Workers is the pool size when QueueSize is positive.
	Workers int
}

// Sender is the dispatch entry point. Success from SendMessage means
// "accepted for delivery", not "confirmed delivered".
type Sender struct {
	fallback  dispatch.FallbackScheduler
	gateway   dispatch.GatewayClient
	channel   dispatch.DeliveryChannelClient
	pool      *executor.Bounded // nil in synchronous mode
	queueSize int
	logger    *slog.Logger
}

// NewSender assembles a sender and registers its queue-depth gauge with the
// provided metrics registry.
func NewSender(
	fallback dispatch.FallbackScheduler,
	gateway dispatch.GatewayClient,
	channel dispatch.DeliveryChannelClient,
	cfg SenderConfig,
	metrics dispatch.GaugeRegistry,
	logger *slog.Logger,
) *Sender {
	s := &Sender{
		fallback:  fallback,
		gateway:   gateway,
		channel:   channel,
		queueSize: cfg.QueueSize,
		logger:    logger.With("component", "PushSender"),
	}
	if cfg.QueueSize > 0 {
		s.pool = executor.New(cfg.Workers, cfg.QueueSize)
	}
	metrics.RegisterGauge("push.send_queue_depth", s.QueueDepth)
	return s
}

// QueueDepth reports the number of queued plus executing dispatches.
func (s *Sender) QueueDepth() int64 {
	if s.pool == nil {
		return 0
	}
	return s.pool.Size()
}

// SendMessage accepts an envelope for delivery to one device. Devices with no
// delivery path are rejected here, on the caller's goroutine, before any
// queuing. With a positive queue size the delivery policy runs on a pool
// worker and submission blocks only when the queue is full; with queue size
// zero the policy runs to completion before SendMessage returns.
func (s *Sender) SendMessage(account entities.Account, device entities.Device, envelope entities.Envelope) error {
	if !device.PushRegistered() {
		return fmt.Errorf("no delivery possible for device %d: %w", device.ID, dispatch.ErrNotPushRegistered)
	}

	if s.pool != nil {
		return s.pool.Execute(deliveryTask{sender: s, account: account, device: device, envelope: envelope})
	}
	s.deliver(account, device, envelope)
	return nil
}

// SendQueuedNotification triggers a wake-up push with no message payload,
// prompting the device to fetch pending messages out-of-band. Unlike ordinary
// delivery, a transient gateway failure is surfaced to the caller.
func (s *Sender) SendQueuedNotification(account entities.Account, device entities.Device) error {
	if device.ApplePushID != "" {
		return s.sendApnNotification(context.Background(), account, device)
	}
	if !device.FetchesMessages {
		return fmt.Errorf("no notification possible for device %d: %w", device.ID, dispatch.ErrNotPushRegistered)
	}
	// Polling devices fetch independently; nothing to wake up.
	return nil
}

// Start is a lifecycle no-op, kept for symmetry with Stop.
func (s *Sender) Start() error {
	return nil
}

// Stop ceases accepting new dispatch work and blocks until in-flight work
// drains or ctx expires.
func (s *Sender) Stop(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	return s.pool.Stop(ctx)
}

// deliveryTask captures one dispatch by value. It is the unit submitted to
// the bounded pool; there is no hidden mutable state shared with the caller.
type deliveryTask struct {
	sender   *Sender
	account  entities.Account
	device   entities.Device
	envelope entities.Envelope
}

func (t deliveryTask) Run() {
	t.sender.deliver(t.account, t.device, t.envelope)
}

// deliver runs the channel-selection policy for one envelope, on whichever
// goroutine executes the dispatch.
func (s *Sender) deliver(account entities.Account, device entities.Device, envelope entities.Envelope) {
	ctx := context.Background()

	switch {
	case device.ApplePushID != "":
		s.deliverToApnDevice(ctx, account, device, envelope)
	case device.FetchesMessages:
		s.deliverToFetchingDevice(ctx, account, device, envelope)
	default:
		// SendMessage validated the delivery path before scheduling; reaching
		// this branch is a logic bug, not a runtime condition.
		panic(fmt.Sprintf("push: device %s:%d has no delivery path past registration check", account.Number, device.ID))
	}
}

// deliverToApnDevice attempts the live connection first: when present it is
// cheaper and faster than a push notification. Undelivered non-receipts
// escalate to an APN wake-up; undelivered receipts are dropped silently to
// avoid spending push quota on best-effort acknowledgements.
func (s *Sender) deliverToApnDevice(ctx context.Context, account entities.Account, device entities.Device, envelope entities.Envelope) {
	status, err := s.channel.Send(ctx, account, device, envelope, dispatch.ChannelAPN)
	if err != nil {
		s.logger.Warn("live channel send failed", "account", account.Number, "device", device.ID, "err", err)
	}
	if status.Delivered || envelope.Type == entities.EnvelopeTypeReceipt {
		return
	}

	if err := s.sendApnNotification(ctx, account, device); err != nil {
		// Message delivery has its own persistence upstream; a lost wake-up
		// push is degraded service, not a correctness failure.
		s.logger.Warn("SILENT PUSH LOSS", "account", account.Number, "device", device.ID, "err", err)
	}
}

// deliverToFetchingDevice sends over the live connection only. Polling
// devices have no escalation path regardless of the outcome; they are
// expected to eventually fetch independently.
func (s *Sender) deliverToFetchingDevice(ctx context.Context, account entities.Account, device entities.Device, envelope entities.Envelope) {
	if _, err := s.channel.Send(ctx, account, device, envelope, dispatch.ChannelWeb); err != nil {
		s.logger.Warn("live channel send failed", "account", account.Number, "device", device.ID, "err", err)
	}
}

// sendApnNotification constructs and dispatches a wake-up notification. A
// VoIP-class token gets a high-priority, short-lived notification plus a
// fallback task keyed by the delivery address; a standard token gets the
// maximum expiration and relies on the platform's own retries instead.
func (s *Sender) sendApnNotification(ctx context.Context, account entities.Account, device entities.Device) error {
	var message entities.ApnMessage

	if device.VoipApplePushID != "" {
		message = entities.NewVoipApnMessage(device.VoipApplePushID, account.Number, device.ID, time.Now().Add(VoipExpiration))
		s.fallback.Schedule(
			entities.NewDeliveryAddress(account.Number, device.ID),
			dispatch.FallbackTask{ApnID: device.ApplePushID, Message: message},
		)
	} else {
		message = entities.NewApnMessage(device.ApplePushID, account.Number, device.ID)
	}

	return s.gateway.Send(ctx, message)
}
