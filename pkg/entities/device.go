package entities

// Device is one of an account's linked devices. The dispatcher treats it as a
// read-only snapshot; push tokens are mutated by registration flows elsewhere.
type Device struct {
	ID uint64 `json:"id"`

	// MobilePushID is the GCM/FCM registration id, if any.
	MobilePushID string `json:"mobilePushId,omitempty"`
	// ApplePushID is the standard APNs token, if any.
	ApplePushID string `json:"applePushId,omitempty"`
	// VoipApplePushID is the VoIP-class APNs token, if any. VoIP pushes are
	// delivered with minimal latency but expire quickly.
	VoipApplePushID string `json:"voipPushId,omitempty"`

	// FetchesMessages is true for devices that poll for pending messages
	// rather than relying on platform push.
	FetchesMessages bool `json:"fetchesMessages"`
}

// PushRegistered reports whether the device exposes at least one delivery
// path: a mobile push token, an Apple push token, or message polling.
func (d Device) PushRegistered() bool {
	return d.MobilePushID != "" || d.ApplePushID != "" || d.FetchesMessages
}
