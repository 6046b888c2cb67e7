// Package dispatch defines the contracts between the push sender and its
// collaborators: the live-channel client, the platform push gateway, the APN
// fallback scheduler, and the metrics registry.
package dispatch

import (
	"context"

	"github.com/m-2-h/TextSecure-Server/pkg/entities"
)

// Channel hints passed to the live-channel client. They only affect
// bookkeeping; delivery semantics are identical.
type Channel string

const (
	// ChannelAPN marks deliveries to devices that can escalate to an APNs
	// wake-up notification.
	ChannelAPN Channel = "apn"
	// ChannelWeb marks deliveries to devices that poll for messages.
	ChannelWeb Channel = "web"
)

// DeliveryStatus is the outcome of a live-connection send attempt.
// Non-delivery is a normal outcome, not an error.
type DeliveryStatus struct {
	Delivered bool
}

// DeliveryChannelClient sends a message over a device's live persistent
// connection. Implementations must report ordinary non-delivery through
// DeliveryStatus; the error return is reserved for internal failures, which
// the sender treats as non-delivery.
type DeliveryChannelClient interface {
	Send(ctx context.Context, account entities.Account, device entities.Device, envelope entities.Envelope, channel Channel) (DeliveryStatus, error)
}

// GatewayClient sends a constructed wake-up notification to the platform
// push service. Failures are transient by contract and should be reported as
// a *TransientPushFailure.
type GatewayClient interface {
	Send(ctx context.Context, message entities.ApnMessage) error
}

// FallbackTask describes the recovery action for a VoIP notification that may
// have been silently lost: re-send to the device's standard APNs token.
type FallbackTask struct {
	// ApnID is the standard token the fallback notification targets.
	ApnID string
	// Message is the original VoIP notification, kept for bookkeeping.
	Message entities.ApnMessage
}

// FallbackScheduler registers a recovery task for a delivery address.
// Registration is fire-and-forget; cancellation happens elsewhere, when the
// device reconnects.
type FallbackScheduler interface {
	Schedule(address entities.DeliveryAddress, task FallbackTask)
}

// FallbackCanceler removes any pending fallback task for an address. The
// live-channel registry invokes it on reconnection.
type FallbackCanceler interface {
	Cancel(address entities.DeliveryAddress)
}

// GaugeRegistry is the injection point for on-demand metrics. The sender
// registers a queue-depth gauge at construction and owns no global state.
type GaugeRegistry interface {
	RegisterGauge(name string, fn func() int64)
}
