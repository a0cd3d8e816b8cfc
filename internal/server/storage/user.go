package storage

import (
	"context"

	"github.com/HakuMatsunoki/natours-api-typeorm/internal/models"
)

// UserStorage defines interface for user persistence
type UserStorage interface {
	// CreateUser creates a new user in the storage
	// Returns ErrUserAlreadyExists if the email is taken
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByID retrieves user by ID
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByID(ctx context.Context, userID string) (*models.User, error)

	// GetUserByEmail retrieves user by lower-cased email
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByResetTokenHash retrieves the user holding the given reset token digest.
	// Expiry is not checked here.
	// Returns ErrUserNotFound if no user holds it
	GetUserByResetTokenHash(ctx context.Context, hash string) (*models.User, error)

	// UpdateUser overwrites all mutable fields of the user
	// Returns ErrUserNotFound if user doesn't exist, ErrUserAlreadyExists on email clash
	UpdateUser(ctx context.Context, user *models.User) error

	// ListUsers returns all users ordered by creation time
	ListUsers(ctx context.Context) ([]*models.User, error)
}
