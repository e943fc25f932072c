package model

import (
	"time"

	"github.com/google/uuid"
)

// Session is one live refresh-token slot for an account.
// TokenHash always holds the hash of the most recently issued refresh token.
type Session struct {
	ID         uuid.UUID `db:"id" json:"id"`
	AccountID  uuid.UUID `db:"account_id" json:"account_id"`
	TokenHash  string    `db:"token_hash" json:"-"` // Never expose hash
	ExpiresAt  time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	RotatedAt  time.Time `db:"rotated_at" json:"rotated_at"`
	DeviceInfo *string   `db:"device_info" json:"device_info,omitempty"`
	IPAddress  *string   `db:"ip_address" json:"ip_address,omitempty"`
}

// IsExpired returns true if the session's refresh token has expired
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// ClientInfo is request metadata recorded on a session.
type ClientInfo struct {
	DeviceInfo string
	IPAddress  string
}

// TokenPair represents both tokens returned after login/refresh
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"` // Seconds until access token expires
}

// LoginResult is returned after successful authentication
type LoginResult struct {
	Account *Account   `json:"account"`
	Tokens  *TokenPair `json:"tokens"`
}

// RefreshRequest is the request body for POST /auth/refresh
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}
