package entities

import "github.com/google/uuid"

// EnvelopeType classifies an outbound message envelope.
type EnvelopeType int32

const (
	EnvelopeTypeUnknown EnvelopeType = iota
	EnvelopeTypeCiphertext
	EnvelopeTypeKeyExchange
	EnvelopeTypePrekeyBundle
	// EnvelopeTypeReceipt is a delivery/read acknowledgement. Receipts are
	// best-effort; losing one is acceptable and never triggers a wake-up push.
	EnvelopeTypeReceipt
)

func (t EnvelopeType) String() string {
	switch t {
	case EnvelopeTypeCiphertext:
		return "CIPHERTEXT"
	case EnvelopeTypeKeyExchange:
		return "KEY_EXCHANGE"
	case EnvelopeTypePrekeyBundle:
		return "PREKEY_BUNDLE"
	case EnvelopeTypeReceipt:
		return "RECEIPT"
	default:
		return "UNKNOWN"
	}
}

// Envelope is an outbound message. The payload is opaque to the dispatcher;
// it is produced upstream and passed through by value.
type Envelope struct {
	Type         EnvelopeType `json:"type"`
	Source       string       `json:"source,omitempty"`
	SourceDevice uint64       `json:"sourceDevice,omitempty"`
	Timestamp    int64        `json:"timestamp"`
	Content      []byte       `json:"content,omitempty"`
	ServerGUID   uuid.UUID    `json:"serverGuid"`
}
