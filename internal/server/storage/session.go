package storage

import (
	"context"
	"time"

	"github.com/HakuMatsunoki/natours-api-typeorm/internal/models"
)

// SessionStorage defines interface for session (token pair) persistence.
// Tokens are addressed by their SHA256 digest, never by plaintext.
type SessionStorage interface {
	// CreateSession stores a new session
	CreateSession(ctx context.Context, session *models.Session) error

	// GetSessionByAccessToken retrieves session and its user by access token digest
	// Returns ErrSessionNotFound if no session matches
	GetSessionByAccessToken(ctx context.Context, accessHash string) (*models.Session, error)

	// GetSessionByRefreshToken retrieves session and its user by refresh token digest
	// Returns ErrSessionNotFound if no session matches
	GetSessionByRefreshToken(ctx context.Context, refreshHash string) (*models.Session, error)

	// ReplaceSession atomically swaps the token pair of the session currently
	// holding oldRefreshHash. Exactly one of several concurrent callers wins,
	// the rest get ErrSessionNotFound.
	ReplaceSession(ctx context.Context, oldRefreshHash string, session *models.Session) error

	// GetUserSessions retrieves all sessions of a user, newest first
	GetUserSessions(ctx context.Context, userID string) ([]*models.Session, error)

	// DeleteSessionByAccessToken deletes the session holding the access token digest.
	// Deleting a missing session is not an error.
	DeleteSessionByAccessToken(ctx context.Context, accessHash string) error

	// DeleteUserSessions deletes all sessions of a user
	// Returns number of deleted sessions
	DeleteUserSessions(ctx context.Context, userID string) (int, error)

	// DeleteExpiredSessions removes sessions whose refresh token expired before now
	// Returns number of deleted sessions
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)
}

// CredentialStorage commits a credential change as one unit.
type CredentialStorage interface {
	// ResetUserCredentials updates the user, deletes all of its sessions and,
	// when session is not nil, stores it as the only remaining session.
	// Returns ErrUserNotFound if user doesn't exist
	ResetUserCredentials(ctx context.Context, user *models.User, session *models.Session) error
}

// Storage is everything the auth subsystem needs from a backend.
type Storage interface {
	UserStorage
	SessionStorage
	CredentialStorage
	Ping(ctx context.Context) error
	Close() error
}
