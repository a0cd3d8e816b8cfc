package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/HakuMatsunoki/natours-api-typeorm/internal/models"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/storage"
)

const sessionColumns = `s.id, s.user_id, s.access_token_hash, s.refresh_token_hash, s.expires_at, s.created_at`

// CreateSession stores a new session
func (s *Storage) CreateSession(ctx context.Context, session *models.Session) error {
	return createSession(ctx, s.db, s.q, session)
}

func createSession(ctx context.Context, db DBTX, q func(string) string, session *models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, access_token_hash, refresh_token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, q(query),
		session.ID,
		session.UserID,
		session.AccessTokenHash,
		session.RefreshTokenHash,
		session.ExpiresAt.UTC(),
		session.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	return nil
}

// GetSessionByAccessToken retrieves session with its user by access token digest
func (s *Storage) GetSessionByAccessToken(ctx context.Context, accessHash string) (*models.Session, error) {
	return s.getSession(ctx, "s.access_token_hash = ?", accessHash)
}

// GetSessionByRefreshToken retrieves session with its user by refresh token digest
func (s *Storage) GetSessionByRefreshToken(ctx context.Context, refreshHash string) (*models.Session, error) {
	return s.getSession(ctx, "s.refresh_token_hash = ?", refreshHash)
}

func (s *Storage) getSession(ctx context.Context, where string, arg any) (*models.Session, error) {
	query := `
		SELECT ` + userColumns + `, ` + sessionColumns + `
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE ` + where

	session := &models.Session{}
	user, err := scanUser(s.db.QueryRowContext(ctx, s.q(query), arg),
		&session.ID,
		&session.UserID,
		&session.AccessTokenHash,
		&session.RefreshTokenHash,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session.ExpiresAt = session.ExpiresAt.UTC()
	session.CreatedAt = session.CreatedAt.UTC()
	session.User = user

	return session, nil
}

// ReplaceSession swaps the token pair of the session holding oldRefreshHash.
// The conditional update makes concurrent refreshes of one token exclusive.
func (s *Storage) ReplaceSession(ctx context.Context, oldRefreshHash string, session *models.Session) error {
	query := `
		UPDATE sessions
		SET access_token_hash = ?, refresh_token_hash = ?, expires_at = ?
		WHERE refresh_token_hash = ?
	`

	result, err := s.db.ExecContext(ctx, s.q(query),
		session.AccessTokenHash,
		session.RefreshTokenHash,
		session.ExpiresAt.UTC(),
		oldRefreshHash,
	)
	if err != nil {
		return fmt.Errorf("failed to replace session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrSessionNotFound
	}

	return nil
}

// GetUserSessions retrieves all sessions of a user, newest first
func (s *Storage) GetUserSessions(ctx context.Context, userID string) ([]*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions s
		WHERE s.user_id = ?
		ORDER BY s.created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, s.q(query), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user sessions: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var sessions []*models.Session

	for rows.Next() {
		session := &models.Session{}
		if err := rows.Scan(
			&session.ID,
			&session.UserID,
			&session.AccessTokenHash,
			&session.RefreshTokenHash,
			&session.ExpiresAt,
			&session.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		session.ExpiresAt = session.ExpiresAt.UTC()
		session.CreatedAt = session.CreatedAt.UTC()
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return sessions, nil
}

// DeleteSessionByAccessToken deletes the session holding the access token digest
func (s *Storage) DeleteSessionByAccessToken(ctx context.Context, accessHash string) error {
	query := `DELETE FROM sessions WHERE access_token_hash = ?`

	if _, err := s.db.ExecContext(ctx, s.q(query), accessHash); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// DeleteUserSessions deletes all sessions of a user
func (s *Storage) DeleteUserSessions(ctx context.Context, userID string) (int, error) {
	return deleteUserSessions(ctx, s.db, s.q, userID)
}

func deleteUserSessions(ctx context.Context, db DBTX, q func(string) string, userID string) (int, error) {
	query := `DELETE FROM sessions WHERE user_id = ?`

	result, err := db.ExecContext(ctx, q(query), userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user sessions: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rows), nil
}

// DeleteExpiredSessions removes sessions whose refresh token expired before now
func (s *Storage) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	query := `DELETE FROM sessions WHERE expires_at < ?`

	result, err := s.db.ExecContext(ctx, s.q(query), now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rows), nil
}

// ResetUserCredentials updates the user, drops all of its sessions and stores
// the replacement session in one transaction.
func (s *Storage) ResetUserCredentials(ctx context.Context, user *models.User, session *models.Session) error {
	return s.withTx(ctx, func(ctx context.Context, tx DBTX) error {
		if err := updateUser(ctx, tx, s.q, user); err != nil {
			return err
		}

		if _, err := deleteUserSessions(ctx, tx, s.q, user.ID); err != nil {
			return err
		}

		if session == nil {
			return nil
		}
		return createSession(ctx, tx, s.q, session)
	})
}
