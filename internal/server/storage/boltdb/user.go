package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/HakuMatsunoki/natours-api-typeorm/internal/models"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/storage"
)

// userDoc is the persisted form of models.User, credentials included.
type userDoc struct {
	ID                     string     `json:"id"`
	Name                   string     `json:"name"`
	Email                  string     `json:"email"`
	Photo                  string     `json:"photo"`
	Role                   string     `json:"role"`
	PasswordHash           string     `json:"password_hash"`
	PasswordChangedAt      *time.Time `json:"password_changed_at,omitempty"`
	PasswordResetTokenHash *string    `json:"password_reset_token_hash,omitempty"`
	PasswordResetExpires   *time.Time `json:"password_reset_expires,omitempty"`
	Active                 bool       `json:"active"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

func toUserDoc(u *models.User) userDoc {
	return userDoc{
		ID:                     u.ID,
		Name:                   u.Name,
		Email:                  u.Email,
		Photo:                  u.Photo,
		Role:                   string(u.Role),
		PasswordHash:           u.PasswordHash,
		PasswordChangedAt:      u.PasswordChangedAt,
		PasswordResetTokenHash: u.PasswordResetTokenHash,
		PasswordResetExpires:   u.PasswordResetExpires,
		Active:                 u.Active,
		CreatedAt:              u.CreatedAt,
		UpdatedAt:              u.UpdatedAt,
	}
}

func (d userDoc) model() *models.User {
	return &models.User{
		ID:                     d.ID,
		Name:                   d.Name,
		Email:                  d.Email,
		Photo:                  d.Photo,
		Role:                   models.Role(d.Role),
		PasswordHash:           d.PasswordHash,
		PasswordChangedAt:      d.PasswordChangedAt,
		PasswordResetTokenHash: d.PasswordResetTokenHash,
		PasswordResetExpires:   d.PasswordResetExpires,
		Active:                 d.Active,
		CreatedAt:              d.CreatedAt,
		UpdatedAt:              d.UpdatedAt,
	}
}

// CreateUser stores a new user document and its indexes
func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		users, err := bucket(tx, bucketUsers)
		if err != nil {
			return err
		}
		byEmail, err := bucket(tx, bucketUsersByEmail)
		if err != nil {
			return err
		}

		if users.Get([]byte(user.ID)) != nil || byEmail.Get([]byte(user.Email)) != nil {
			return storage.ErrUserAlreadyExists
		}

		return putUser(tx, user, nil)
	})
}

// GetUserByID retrieves user by ID
func (s *Storage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	var user *models.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		user, err = getUser(tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByEmail retrieves user by email through the email index
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUserByIndex(bucketUsersByEmail, email)
}

// GetUserByResetTokenHash retrieves user through the reset token index
func (s *Storage) GetUserByResetTokenHash(ctx context.Context, hash string) (*models.User, error) {
	return s.getUserByIndex(bucketUsersByReset, hash)
}

func (s *Storage) getUserByIndex(index []byte, key string) (*models.User, error) {
	var user *models.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		idx, err := bucket(tx, index)
		if err != nil {
			return err
		}

		id := idx.Get([]byte(key))
		if id == nil {
			return storage.ErrUserNotFound
		}

		user, err = getUser(tx, string(id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUser overwrites the user document and re-indexes changed keys
func (s *Storage) UpdateUser(ctx context.Context, user *models.User) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return updateUser(tx, user)
	})
}

// ListUsers returns all users ordered by creation time
func (s *Storage) ListUsers(ctx context.Context) ([]*models.User, error) {
	var users []*models.User

	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketUsers)
		if err != nil {
			return err
		}

		return b.ForEach(func(_, v []byte) error {
			var doc userDoc
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("failed to unmarshal user: %w", err)
			}
			users = append(users, doc.model())
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})

	return users, nil
}

func getUser(tx *bbolt.Tx, id string) (*models.User, error) {
	b, err := bucket(tx, bucketUsers)
	if err != nil {
		return nil, err
	}

	data := b.Get([]byte(id))
	if data == nil {
		return nil, storage.ErrUserNotFound
	}

	var doc userDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return doc.model(), nil
}

func updateUser(tx *bbolt.Tx, user *models.User) error {
	old, err := getUser(tx, user.ID)
	if err != nil {
		return err
	}

	if old.Email != user.Email {
		byEmail, err := bucket(tx, bucketUsersByEmail)
		if err != nil {
			return err
		}
		if owner := byEmail.Get([]byte(user.Email)); owner != nil && string(owner) != user.ID {
			return storage.ErrUserAlreadyExists
		}
	}

	return putUser(tx, user, old)
}

// putUser writes the document and moves index entries that changed since old.
func putUser(tx *bbolt.Tx, user, old *models.User) error {
	users, err := bucket(tx, bucketUsers)
	if err != nil {
		return err
	}
	byEmail, err := bucket(tx, bucketUsersByEmail)
	if err != nil {
		return err
	}
	byReset, err := bucket(tx, bucketUsersByReset)
	if err != nil {
		return err
	}

	data, err := json.Marshal(toUserDoc(user))
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	if err := users.Put([]byte(user.ID), data); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	if old != nil {
		if old.Email != user.Email {
			if err := byEmail.Delete([]byte(old.Email)); err != nil {
				return fmt.Errorf("failed to drop email index: %w", err)
			}
		}
		if old.PasswordResetTokenHash != nil {
			if err := byReset.Delete([]byte(*old.PasswordResetTokenHash)); err != nil {
				return fmt.Errorf("failed to drop reset index: %w", err)
			}
		}
	}

	if err := byEmail.Put([]byte(user.Email), []byte(user.ID)); err != nil {
		return fmt.Errorf("failed to index email: %w", err)
	}
	if user.PasswordResetTokenHash != nil {
		if err := byReset.Put([]byte(*user.PasswordResetTokenHash), []byte(user.ID)); err != nil {
			return fmt.Errorf("failed to index reset token: %w", err)
		}
	}

	return nil
}
