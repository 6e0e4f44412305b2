package model

import "time"

// Credential is the persisted bearer token for one device session. DeviceID
// identifies the browser (cookie) or CLI profile that owns the token.
type Credential struct {
	ID        int64
	DeviceID  string
	Token     string
	UpdatedAt time.Time
}

// Token is the backend's reply to a successful authentication.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Confirmation is the free-form object the backend returns for register and
// warming toggles, e.g. {"status": "warming started"}.
type Confirmation map[string]any
