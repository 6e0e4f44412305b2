package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/heaterpanel/internal/domain/model"
)

// ErrEncryptionKeyNotSet is returned by CredentialStore operations when
// HEATER_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set HEATER_SECRET_KEY")

// CredentialStore defines the driven port for durable device-session tokens.
// The adapter layer is responsible for encryption/decryption; this interface
// operates on plaintext values at the domain boundary.
type CredentialStore interface {
	// Set stores or replaces the token for the given device.
	Set(ctx context.Context, deviceID, token string) error

	// Get retrieves the token for the given device.
	// Returns ("", nil) if the device has no stored token.
	Get(ctx context.Context, deviceID string) (string, error)

	// List returns all stored device sessions with decrypted tokens.
	List(ctx context.Context) ([]model.Credential, error)

	// Count returns the number of stored device sessions without opening
	// any token, so it keeps working after a key change.
	Count(ctx context.Context) (int, error)

	// Delete removes the token for the given device. Deleting a missing
	// device is not an error.
	Delete(ctx context.Context, deviceID string) error
}
