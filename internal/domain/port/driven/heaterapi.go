package driven

import (
	"context"

	"github.com/ericfisherdev/heaterpanel/internal/domain/model"
)

// HeaterAPI defines the driven port for the remote instance-management API.
// Implementations are stateless: every call is a single request with no
// retry, and any failure is reported as a *model.OpError of the operation's
// kind. Calls that take a token fail with model.ErrNotAuthenticated (wrapped)
// when the token is empty, without touching the network.
type HeaterAPI interface {
	// Authenticate exchanges username and password for an access token.
	Authenticate(ctx context.Context, username, password string) (model.Token, error)

	// Register creates a new account. It does not log the user in.
	Register(ctx context.Context, email, password string) (model.Confirmation, error)

	// ListInstances returns every instance owned by the token's user.
	ListInstances(ctx context.Context, token string) ([]model.Instance, error)

	// CreateInstance creates an instance with the given name.
	CreateInstance(ctx context.Context, token, name string) (model.Instance, error)

	// FetchPairingCode returns the QR code for pairing an instance. An empty
	// code with a nil error means the instance is already connected or not
	// ready yet.
	FetchPairingCode(ctx context.Context, token string, instanceID int64) (string, error)

	// SetWarming starts (enable=true) or stops warming for an instance.
	SetWarming(ctx context.Context, token string, instanceID int64, enable bool) (model.Confirmation, error)
}
