package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/heaterpanel/internal/domain/model"
	"github.com/ericfisherdev/heaterpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo stores device-session tokens in the device_sessions table,
// sealed with a tokenCipher. Without a key only Delete works; everything
// else returns driven.ErrEncryptionKeyNotSet.
type CredentialRepo struct {
	db     *DB
	cipher *tokenCipher
	keyErr error
}

// NewCredentialRepo creates a CredentialRepo. key must be 32 bytes, or nil to
// disable token storage. A key of the wrong length is reported by every
// operation that needs it.
func NewCredentialRepo(db *DB, key []byte) *CredentialRepo {
	repo := &CredentialRepo{db: db}
	if key == nil {
		repo.keyErr = driven.ErrEncryptionKeyNotSet
		return repo
	}
	if len(key) != 32 {
		repo.keyErr = fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
		return repo
	}
	repo.cipher, repo.keyErr = newTokenCipher(key)
	return repo
}

// Set stores or replaces the token for the given device.
func (r *CredentialRepo) Set(ctx context.Context, deviceID, token string) error {
	if r.keyErr != nil {
		return r.keyErr
	}
	sealed, err := r.cipher.seal(deviceID, token)
	if err != nil {
		return err
	}

	const query = `INSERT INTO device_sessions (device_id, token, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at`
	updatedAt := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := r.db.Writer.ExecContext(ctx, query, deviceID, sealed, updatedAt); err != nil {
		return fmt.Errorf("set token for device %q: %w", deviceID, err)
	}
	return nil
}

// Get returns the plaintext token for the given device, or "" if none is
// stored.
func (r *CredentialRepo) Get(ctx context.Context, deviceID string) (string, error) {
	if r.keyErr != nil {
		return "", r.keyErr
	}

	var sealed string
	err := r.db.Reader.QueryRowContext(ctx,
		`SELECT token FROM device_sessions WHERE device_id = ?`, deviceID,
	).Scan(&sealed)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("get token for device %q: %w", deviceID, err)
	}

	token, err := r.cipher.open(deviceID, sealed)
	if err != nil {
		return "", fmt.Errorf("device %q: %w", deviceID, err)
	}
	return token, nil
}

// List returns every stored device session, ordered by device id.
func (r *CredentialRepo) List(ctx context.Context) ([]model.Credential, error) {
	if r.keyErr != nil {
		return nil, r.keyErr
	}

	rows, err := r.db.Reader.QueryContext(ctx,
		`SELECT id, device_id, token, updated_at FROM device_sessions ORDER BY device_id`)
	if err != nil {
		return nil, fmt.Errorf("list device sessions: %w", err)
	}
	defer rows.Close()

	creds := []model.Credential{}
	for rows.Next() {
		cred, err := r.scanCredential(rows)
		if err != nil {
			return nil, err
		}
		creds = append(creds, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate device sessions: %w", err)
	}
	return creds, nil
}

func (r *CredentialRepo) scanCredential(rows *sql.Rows) (model.Credential, error) {
	var (
		cred      model.Credential
		sealed    string
		updatedAt string
	)
	if err := rows.Scan(&cred.ID, &cred.DeviceID, &sealed, &updatedAt); err != nil {
		return model.Credential{}, fmt.Errorf("scan device session: %w", err)
	}

	token, err := r.cipher.open(cred.DeviceID, sealed)
	if err != nil {
		return model.Credential{}, fmt.Errorf("device %q: %w", cred.DeviceID, err)
	}
	cred.Token = token

	cred.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return model.Credential{}, fmt.Errorf("device %q: parse updated_at: %w", cred.DeviceID, err)
	}
	return cred, nil
}

// Count returns the number of stored device sessions. Like Delete it needs
// no key.
func (r *CredentialRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.Reader.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM device_sessions`,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count device sessions: %w", err)
	}
	return n, nil
}

// Delete removes the token for the given device. It works without a key so
// logout can always drop a stale row.
func (r *CredentialRepo) Delete(ctx context.Context, deviceID string) error {
	if _, err := r.db.Writer.ExecContext(ctx,
		`DELETE FROM device_sessions WHERE device_id = ?`, deviceID,
	); err != nil {
		return fmt.Errorf("delete token for device %q: %w", deviceID, err)
	}
	return nil
}
