// Package entities contains the domain models shared by the delivery
// dispatcher and its collaborators.
package entities

// Account is a registered user identity. For the purposes of the dispatcher
// it is a read-only snapshot; registration flows own its lifecycle.
type Account struct {
	// Number is the stable account identifier (an E.164 phone number).
	Number string `json:"number"`
}
