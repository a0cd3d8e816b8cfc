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

const userColumns = `u.id, u.name, u.email, u.photo, u.role, u.password_hash,
	u.password_changed_at, u.password_reset_token_hash, u.password_reset_expires,
	u.active, u.created_at, u.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner, extra ...any) (*models.User, error) {
	user := &models.User{}
	var (
		role           string
		changedAt      sql.NullTime
		resetTokenHash sql.NullString
		resetExpires   sql.NullTime
	)

	dest := append([]any{
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Photo,
		&role,
		&user.PasswordHash,
		&changedAt,
		&resetTokenHash,
		&resetExpires,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	}, extra...)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	user.Role = models.Role(role)
	if changedAt.Valid {
		t := changedAt.Time.UTC()
		user.PasswordChangedAt = &t
	}
	if resetTokenHash.Valid {
		user.PasswordResetTokenHash = &resetTokenHash.String
	}
	if resetExpires.Valid {
		t := resetExpires.Time.UTC()
		user.PasswordResetExpires = &t
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()

	return user, nil
}

// CreateUser creates a new user in the storage
func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, name, email, photo, role, password_hash,
			password_changed_at, password_reset_token_hash, password_reset_expires,
			active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, s.q(query),
		user.ID,
		user.Name,
		user.Email,
		user.Photo,
		string(user.Role),
		user.PasswordHash,
		nullTime(user.PasswordChangedAt),
		nullString(user.PasswordResetTokenHash),
		nullTime(user.PasswordResetExpires),
		user.Active,
		user.CreatedAt.UTC(),
		user.UpdatedAt.UTC(),
	)

	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetUserByID retrieves user by ID
func (s *Storage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	return s.getUser(ctx, "u.id = ?", userID)
}

// GetUserByEmail retrieves user by email
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "u.email = ?", email)
}

// GetUserByResetTokenHash retrieves user by password reset token digest
func (s *Storage) GetUserByResetTokenHash(ctx context.Context, hash string) (*models.User, error) {
	return s.getUser(ctx, "u.password_reset_token_hash = ?", hash)
}

func (s *Storage) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE ` + where

	user, err := scanUser(s.db.QueryRowContext(ctx, s.q(query), arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// UpdateUser updates all mutable user fields
func (s *Storage) UpdateUser(ctx context.Context, user *models.User) error {
	return updateUser(ctx, s.db, s.q, user)
}

func updateUser(ctx context.Context, db DBTX, q func(string) string, user *models.User) error {
	query := `
		UPDATE users
		SET name = ?, email = ?, photo = ?, role = ?, password_hash = ?,
			password_changed_at = ?, password_reset_token_hash = ?, password_reset_expires = ?,
			active = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := db.ExecContext(ctx, q(query),
		user.Name,
		user.Email,
		user.Photo,
		string(user.Role),
		user.PasswordHash,
		nullTime(user.PasswordChangedAt),
		nullString(user.PasswordResetTokenHash),
		nullTime(user.PasswordResetExpires),
		user.Active,
		user.UpdatedAt.UTC(),
		user.ID,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

// ListUsers returns all users ordered by creation time
func (s *Storage) ListUsers(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u ORDER BY u.created_at, u.id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return users, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
