package application

import (
	"errors"

	"github.com/ericfisherdev/heaterpanel/internal/domain/model"
)

// UserMessage maps an operation error to the text shown to the user. Only
// the operation kind is reflected; status codes and transport details stay
// in the logs.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, model.ErrNotAuthenticated):
		return "Error: Please login first"
	case errors.Is(err, model.ErrEmptyName):
		return "Error creating instance: Instance name must not be empty"
	}

	switch model.KindOf(err) {
	case model.KindAuth:
		return "Error: Login failed"
	case model.KindRegistration:
		return "Error: Registration failed"
	case model.KindFetch:
		return "Error: Failed to fetch instances"
	case model.KindCreate:
		return "Error creating instance: Failed to create instance"
	case model.KindToggle:
		return "Error: Failed to change warming"
	case model.KindPairing:
		return noticePairingCodeError
	default:
		return "Error: Something went wrong"
	}
}
