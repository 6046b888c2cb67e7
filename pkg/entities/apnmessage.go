package entities

import (
	"math"
	"time"
)

// ApnPayload is the content-available payload that wakes the app without
// rendering a user-visible alert.
const ApnPayload = `{"aps":{"content-available":1}}`

// ApnMaxExpiration is the furthest expiration APNs accepts; standard
// notifications use it so the platform retries delivery on our behalf.
var ApnMaxExpiration = time.Unix(math.MaxInt32, 0)

// ApnMessage is a constructed wake-up notification. It is built per dispatch
// attempt and discarded after the gateway call.
type ApnMessage struct {
	// Token is the APNs token the notification is addressed to.
	Token string
	// Number identifies the destination account.
	Number string
	// DeviceID identifies the destination device within the account.
	DeviceID uint64
	// Payload is the raw APS JSON body.
	Payload string
	// VoIP marks the notification for the high-priority, short-lived
	// VoIP notification class.
	VoIP bool
	// Expiration is the absolute time after which APNs discards the
	// notification.
	Expiration time.Time
}

// NewApnMessage builds a standard-priority notification with the maximum
// platform expiration.
func NewApnMessage(token, number string, deviceID uint64) ApnMessage {
	return ApnMessage{
		Token:      token,
		Number:     number,
		DeviceID:   deviceID,
		Payload:    ApnPayload,
		Expiration: ApnMaxExpiration,
	}
}

// NewVoipApnMessage builds a high-priority VoIP-class notification expiring
// shortly after dispatch.
func NewVoipApnMessage(token, number string, deviceID uint64, expiration time.Time) ApnMessage {
	return ApnMessage{
		Token:      token,
		Number:     number,
		DeviceID:   deviceID,
		Payload:    ApnPayload,
		VoIP:       true,
		Expiration: expiration,
	}
}
