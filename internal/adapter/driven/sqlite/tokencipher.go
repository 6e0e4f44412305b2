package sqlite

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

var errCiphertextTooShort = errors.New("ciphertext too short")

// tokenCipher seals device tokens with AES-256-GCM. The device id is bound as
// additional data, so a sealed token copied to another device's row fails to
// open. Sealed values are base64(nonce || ciphertext || tag).
type tokenCipher struct {
	aead cipher.AEAD
}

func newTokenCipher(key []byte) (*tokenCipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("token cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("token cipher: %w", err)
	}
	return &tokenCipher{aead: aead}, nil
}

func (c *tokenCipher) seal(deviceID, token string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(token), []byte(deviceID))
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *tokenCipher) open(deviceID, encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode sealed token: %w", err)
	}

	n := c.aead.NonceSize()
	if len(data) < n {
		return "", errCiphertextTooShort
	}

	token, err := c.aead.Open(nil, data[:n], data[n:], []byte(deviceID))
	if err != nil {
		return "", fmt.Errorf("open sealed token: %w", err)
	}
	return string(token), nil
}
