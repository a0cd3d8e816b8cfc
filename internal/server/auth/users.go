package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/HakuMatsunoki/natours-api-typeorm/internal/crypto"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/models"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/storage"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/validation"
)

// CreateUserInput is an administrator's request to open an account.
type CreateUserInput struct {
	Name  string
	Email string
	Role  models.Role
}

// UpdateUserInput patches an account. Nil fields are left unchanged.
type UpdateUserInput struct {
	Name  *string
	Email *string
	Role  *models.Role
}

// GetUser returns an account by ID.
func (s *Service) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, newError(KindNotFound, MsgNotFound, err)
		}
		return nil, internalError("get user", err)
	}
	return user.Sanitized(), nil
}

// ListUsers returns every account.
func (s *Service) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, internalError("list users", err)
	}
	for i, u := range users {
		users[i] = u.Sanitized()
	}
	return users, nil
}

// CreateUser opens an account on behalf of an administrator. The account gets
// a random password nobody knows; the welcome email points the user at the
// change password page.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	name, email, err := normalizeIdentity(in.Name, in.Email)
	if err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return nil, validationError(fmt.Errorf("unknown role %q", role))
	}

	temp, err := crypto.GenerateToken(s.cfg.ResetTokenBytes)
	if err != nil {
		return nil, internalError("generate password", err)
	}

	user, err := s.insertUser(ctx, name, email, temp, role)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user created by admin",
		slog.String("user_id", user.ID),
		slog.String("role", string(role)),
	)

	if err := s.sender.SendWelcomeFromRoot(ctx, recipient(user), s.cfg.ChangePasswordPath); err != nil {
		s.logger.ErrorContext(ctx, "welcome email failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return nil, newError(KindEmailFailed, MsgEmailFailed, err)
	}

	return user.Sanitized(), nil
}

// CreateAdmin bootstraps an administrator with a known password.
// No email is sent.
func (s *Service) CreateAdmin(ctx context.Context, name, email, password string) (*models.User, error) {
	name, email, err := normalizeIdentity(name, email)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, validationError(err)
	}

	user, err := s.insertUser(ctx, name, email, password, models.RoleAdmin)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "admin created", slog.String("user_id", user.ID))
	return user.Sanitized(), nil
}

// UpdateUser applies an administrator's patch. Changing the email or role
// does not revoke sessions.
func (s *Service) UpdateUser(ctx context.Context, userID string, in UpdateUserInput) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, newError(KindNotFound, MsgNotFound, err)
		}
		return nil, internalError("get user", err)
	}

	if in.Name != nil {
		if err := validation.ValidateName(*in.Name); err != nil {
			return nil, validationError(err)
		}
		name := validation.NormalizeName(*in.Name)
		if name == "" {
			return nil, validationError(errors.New("name must contain latin letters"))
		}
		user.Name = name
	}
	if in.Email != nil {
		if err := validation.ValidateEmail(*in.Email); err != nil {
			return nil, validationError(err)
		}
		user.Email = validation.NormalizeEmail(*in.Email)
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, validationError(fmt.Errorf("unknown role %q", *in.Role))
		}
		user.Role = *in.Role
	}
	user.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, storage.ErrUserAlreadyExists):
			return nil, newError(KindDuplicateAccount, MsgDuplicateAccount, err)
		case errors.Is(err, storage.ErrUserNotFound):
			return nil, newError(KindNotFound, MsgNotFound, err)
		}
		return nil, internalError("update user", err)
	}

	return user.Sanitized(), nil
}

// DeactivateUser soft-deletes an account and revokes all of its sessions.
// Used for both self-deletion and administrator deletion.
func (s *Service) DeactivateUser(ctx context.Context, userID string) error {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return newError(KindNotFound, MsgNotFound, err)
		}
		return internalError("get user", err)
	}

	user.Active = false
	user.UpdatedAt = s.now().UTC()

	if err := s.store.ResetUserCredentials(ctx, user, nil); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return newError(KindNotFound, MsgNotFound, err)
		}
		return internalError("deactivate user", err)
	}

	s.logger.InfoContext(ctx, "user deactivated", slog.String("user_id", user.ID))
	return nil
}

func (s *Service) insertUser(ctx context.Context, name, email, password string, role models.Role) (*models.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, internalError("hash password", err)
	}

	now := s.now().UTC()
	user := &models.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		Photo:        models.DefaultPhoto,
		Role:         role,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			return nil, newError(KindDuplicateAccount, MsgDuplicateAccount, err)
		}
		return nil, internalError("create user", err)
	}
	return user, nil
}
