package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/ericfisherdev/heaterpanel/internal/domain/port/driven"
)

// SessionStore holds the bearer token of one device session. The in-memory
// value is authoritative; when a CredentialStore is configured the token is
// also written through so it survives restarts. Every operation is total:
// persistence failures are logged and otherwise ignored.
type SessionStore struct {
	mu       sync.RWMutex
	token    string
	deviceID string
	store    driven.CredentialStore // nil for memory-only sessions
	logger   *slog.Logger
}

// NewSessionStore creates an empty SessionStore for deviceID. store may be nil.
func NewSessionStore(deviceID string, store driven.CredentialStore, logger *slog.Logger) *SessionStore {
	return &SessionStore{
		deviceID: deviceID,
		store:    store,
		logger:   logger,
	}
}

// DeviceID returns the device the session belongs to.
func (s *SessionStore) DeviceID() string {
	return s.deviceID
}

// Load replaces the in-memory token with the persisted one, if any. It is the
// explicit init step run when a device session is first seen.
func (s *SessionStore) Load(ctx context.Context) {
	if s.store == nil {
		return
	}

	token, err := s.store.Get(ctx, s.deviceID)
	if err != nil {
		s.logPersistError("load", err)
		return
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// SetCredential stores token as the active credential. An empty token is
// equivalent to Clear.
func (s *SessionStore) SetCredential(ctx context.Context, token string) {
	if token == "" {
		s.Clear(ctx)
		return
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	if s.store == nil {
		return
	}
	if err := s.store.Set(ctx, s.deviceID, token); err != nil {
		s.logPersistError("save", err)
	}
}

// Credential returns the active token and whether one is present.
func (s *SessionStore) Credential() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// Clear drops the credential from memory and from durable storage.
func (s *SessionStore) Clear(ctx context.Context) {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()

	if s.store == nil {
		return
	}
	if err := s.store.Delete(ctx, s.deviceID); err != nil {
		s.logPersistError("delete", err)
	}
}

func (s *SessionStore) logPersistError(op string, err error) {
	if errors.Is(err, driven.ErrEncryptionKeyNotSet) {
		s.logger.Debug("session persistence disabled", "op", op, "device", s.deviceID)
		return
	}
	s.logger.Error("session persistence failed", "op", op, "device", s.deviceID, "error", err)
}
