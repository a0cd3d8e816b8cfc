// Package storage defines the local state of the CLI client.
package storage

import (
	"context"
	"time"
)

// AuthStorage keeps the session of the signed-in account between runs.
type AuthStorage interface {
	// SaveAuth stores the account and its token pair, replacing the previous session
	SaveAuth(ctx context.Context, auth *AuthData) error

	// SaveTokens replaces only the token pair after a rotation.
	// Returns ErrAuthNotFound if no account is stored
	SaveTokens(ctx context.Context, tokens *Tokens) error

	// GetAuth retrieves stored authentication data
	// Returns ErrAuthNotFound if no auth data exists
	GetAuth(ctx context.Context) (*AuthData, error)

	// DeleteAuth removes stored authentication data (logout)
	DeleteAuth(ctx context.Context) error

	// IsAuthenticated reports whether a refresh token that has not expired is stored
	IsAuthenticated(ctx context.Context) (bool, error)
}

// Account identifies who is signed in and where.
type Account struct {
	ServerURL string `json:"server_url"`
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
}

// Tokens is the cached token pair.
type Tokens struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// AccessExpired reports whether the access token is expired at now.
func (t *Tokens) AccessExpired(now time.Time) bool {
	return !now.Before(t.AccessExpiresAt)
}

// RefreshExpired reports whether the refresh token is expired at now.
func (t *Tokens) RefreshExpired(now time.Time) bool {
	return !now.Before(t.RefreshExpiresAt)
}

// AuthData is the cached session of the signed-in account.
type AuthData struct {
	Account
	Tokens
}
