package model

// PairingState is the lifecycle state of the single pairing slot.
type PairingState int

const (
	PairingIdle PairingState = iota
	PairingRequesting
	PairingShowing
)

// String returns a human-readable name for the pairing state.
func (s PairingState) String() string {
	switch s {
	case PairingIdle:
		return "idle"
	case PairingRequesting:
		return "requesting"
	case PairingShowing:
		return "showing"
	default:
		return "unknown"
	}
}

// PairingSession holds the QR code shown to link one instance to a phone.
// Code is either an image data URI or the raw pairing payload.
type PairingSession struct {
	InstanceID int64
	Code       string
	Visible    bool
}
