// Package auth implements the credential and session lifecycle: signup,
// login, token rotation, revocation, password reset and role gating.
package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/HakuMatsunoki/natours-api-typeorm/internal/crypto"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/models"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/storage"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/token"
)

// Identity is the outcome of a successful authentication.
type Identity struct {
	User    *models.User // password hash stripped
	Session *models.Session
	Claims  *token.Claims
}

type identityKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored by WithIdentity.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}

// Authenticator resolves a presented token to an Identity.
type Authenticator struct {
	logger   *slog.Logger
	issuer   *token.Issuer
	sessions storage.SessionStorage
}

// NewAuthenticator creates a new Authenticator
func NewAuthenticator(logger *slog.Logger, issuer *token.Issuer, sessions storage.SessionStorage) *Authenticator {
	return &Authenticator{
		logger:   logger,
		issuer:   issuer,
		sessions: sessions,
	}
}

// Authenticate verifies raw as a token of the given kind.
// The token must carry a valid signature, match the digest of a stored session owned by the
// subject, belong to an active user and be issued no earlier than the last
// password change. Every rejection is an InvalidToken error.
func (a *Authenticator) Authenticate(ctx context.Context, raw string, kind token.Kind) (*Identity, error) {
	if raw == "" {
		return nil, newError(KindInvalidToken, MsgInvalidToken, errors.New("no token presented"))
	}

	claims, err := a.issuer.Verify(raw, kind)
	if err != nil {
		return nil, newError(KindInvalidToken, MsgInvalidToken, err)
	}

	hash := crypto.HashToken(raw)
	var session *models.Session
	if kind == token.Refresh {
		session, err = a.sessions.GetSessionByRefreshToken(ctx, hash)
	} else {
		session, err = a.sessions.GetSessionByAccessToken(ctx, hash)
	}
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return nil, newError(KindInvalidToken, MsgInvalidToken, err)
		}
		a.logger.ErrorContext(ctx, "session lookup failed", slog.Any("error", err))
		return nil, internalError("session lookup", err)
	}

	// the row must hold exactly this digest, whatever index found it
	stored := session.AccessTokenHash
	if kind == token.Refresh {
		stored = session.RefreshTokenHash
	}
	if !crypto.EqualTokenHash(stored, hash) {
		return nil, newError(KindInvalidToken, MsgInvalidToken, errors.New("session digest mismatch"))
	}

	user := session.User
	if user == nil || user.ID != claims.UserID || session.UserID != claims.UserID {
		return nil, newError(KindInvalidToken, MsgInvalidToken, errors.New("token subject does not own the session"))
	}

	if !user.Active {
		return nil, newError(KindInvalidToken, MsgInvalidToken, errors.New("user is deactivated"))
	}

	if user.ChangedPasswordAfter(claims.IssuedAt.Time) {
		return nil, newError(KindInvalidToken, MsgPasswordChanged, errors.New("password changed after token issue"))
	}

	session.User = nil
	return &Identity{
		User:    user.Sanitized(),
		Session: session,
		Claims:  claims,
	}, nil
}
