package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/HakuMatsunoki/natours-api-typeorm/internal/crypto"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/models"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/metrics"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/notify"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/storage"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/token"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/validation"
)

// Defaults for Config.
const (
	DefaultResetTokenTTL = 10 * time.Minute
)

// Auth event names reported to metrics.
const (
	EventSignup         = "signup"
	EventLogin          = "login"
	EventRefresh        = "refresh"
	EventLogout         = "logout"
	EventLogoutAll      = "logout_all"
	EventForgotPassword = "forgot_password"
	EventResetPassword  = "reset_password"
	EventUpdatePassword = "update_password"
)

// Config holds the tunables of the credential flows.
type Config struct {
	ResetTokenBytes int
	ResetTokenTTL   time.Duration
	// ChangePasswordPath is linked from the email sent to admin-created users.
	ChangePasswordPath string
}

// Result is returned by every flow that establishes a session.
type Result struct {
	User   *models.User
	Tokens token.Pair
}

// Service implements signup, login, token rotation, revocation and the
// password flows on top of a storage backend.
type Service struct {
	logger  *slog.Logger
	store   storage.Storage
	hasher  *crypto.Hasher
	issuer  *token.Issuer
	sender  notify.Sender
	cfg     Config
	now     func() time.Time
	metrics *metrics.Metrics

	dummyOnce sync.Once
	dummyHash string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithMetrics enables auth event counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a new Service
func NewService(
	logger *slog.Logger,
	store storage.Storage,
	hasher *crypto.Hasher,
	issuer *token.Issuer,
	sender notify.Sender,
	cfg Config,
	opts ...Option,
) *Service {
	if cfg.ResetTokenBytes <= 0 {
		cfg.ResetTokenBytes = crypto.DefaultResetTokenBytes
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = DefaultResetTokenTTL
	}

	s := &Service{
		logger: logger,
		store:  store,
		hasher: hasher,
		issuer: issuer,
		sender: sender,
		cfg:    cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignupInput is the payload of a self-registration.
type SignupInput struct {
	Name     string
	Email    string
	Password string
}

// Signup registers a new user with role user and opens its first session.
// The welcome email is sent after the account is committed; a delivery
// failure is reported as EmailFailed and the account stays.
func (s *Service) Signup(ctx context.Context, in SignupInput) (res *Result, err error) {
	defer func() { s.metrics.AuthEvent(EventSignup, err) }()

	name, email, err := normalizeIdentity(in.Name, in.Email)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, validationError(err)
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, newError(KindDuplicateAccount, MsgDuplicateAccount, storage.ErrUserAlreadyExists)
	} else if !errors.Is(err, storage.ErrUserNotFound) {
		return nil, internalError("lookup user", err)
	}

	user, err := s.insertUser(ctx, name, email, in.Password, models.RoleUser)
	if err != nil {
		return nil, err
	}

	pair, err := s.openSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user signed up", slog.String("user_id", user.ID))

	if err := s.sender.SendWelcome(ctx, recipient(user)); err != nil {
		s.logger.ErrorContext(ctx, "welcome email failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return nil, newError(KindEmailFailed, MsgEmailFailed, err)
	}

	return &Result{User: user.Sanitized(), Tokens: pair}, nil
}

// Login checks email and password and opens a new session.
// Unknown email, wrong password and deactivated accounts are indistinguishable.
func (s *Service) Login(ctx context.Context, email, password string) (res *Result, err error) {
	defer func() { s.metrics.AuthEvent(EventLogin, err) }()

	email = validation.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, newError(KindInvalidCredentials, MsgInvalidCredentials, errors.New("missing credentials"))
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, storage.ErrUserNotFound) {
			return nil, internalError("lookup user", err)
		}
		// burn the same bcrypt time as a real check
		s.hasher.Verify(password, s.dummy())
		return nil, newError(KindInvalidCredentials, MsgInvalidCredentials, err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, newError(KindInvalidCredentials, MsgInvalidCredentials, errors.New("password mismatch"))
	}
	if !user.Active {
		return nil, newError(KindInvalidCredentials, MsgInvalidCredentials, errors.New("user is deactivated"))
	}

	pair, err := s.openSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))

	return &Result{User: user.Sanitized(), Tokens: pair}, nil
}

// Logout deletes the session of the authenticated access token.
func (s *Service) Logout(ctx context.Context, id *Identity) (err error) {
	defer func() { s.metrics.AuthEvent(EventLogout, err) }()

	if id == nil || id.Session == nil {
		return newError(KindInvalidToken, MsgInvalidToken, errors.New("no session"))
	}
	if err := s.store.DeleteSessionByAccessToken(ctx, id.Session.AccessTokenHash); err != nil {
		return internalError("delete session", err)
	}

	s.logger.InfoContext(ctx, "user logged out", slog.String("user_id", id.Session.UserID))
	return nil
}

// LogoutAll deletes every session of the authenticated user.
func (s *Service) LogoutAll(ctx context.Context, id *Identity) (err error) {
	defer func() { s.metrics.AuthEvent(EventLogoutAll, err) }()

	if id == nil || id.User == nil {
		return newError(KindInvalidToken, MsgInvalidToken, errors.New("no identity"))
	}
	n, err := s.store.DeleteUserSessions(ctx, id.User.ID)
	if err != nil {
		return internalError("delete sessions", err)
	}

	s.logger.InfoContext(ctx, "user logged out everywhere",
		slog.String("user_id", id.User.ID),
		slog.Int("sessions", n),
	)
	return nil
}

// Refresh rotates the pair of a session authenticated by its refresh token.
// The old pair stops working. Of two concurrent refreshes with the same token
// only one succeeds; the other gets InvalidToken.
func (s *Service) Refresh(ctx context.Context, id *Identity) (res *Result, err error) {
	defer func() { s.metrics.AuthEvent(EventRefresh, err) }()

	if id == nil || id.Session == nil || id.User == nil {
		return nil, newError(KindInvalidToken, MsgInvalidToken, errors.New("no session"))
	}

	pair, err := s.issuer.Issue(id.User.ID)
	if err != nil {
		return nil, internalError("issue tokens", err)
	}

	next := &models.Session{
		ID:               id.Session.ID,
		UserID:           id.User.ID,
		AccessTokenHash:  crypto.HashToken(pair.AccessToken),
		RefreshTokenHash: crypto.HashToken(pair.RefreshToken),
		ExpiresAt:        pair.RefreshExpiresAt.UTC(),
		CreatedAt:        id.Session.CreatedAt,
	}

	if err := s.store.ReplaceSession(ctx, id.Session.RefreshTokenHash, next); err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			s.logger.WarnContext(ctx, "refresh token already rotated", slog.String("user_id", id.User.ID))
			return nil, newError(KindInvalidToken, MsgInvalidToken, err)
		}
		return nil, internalError("replace session", err)
	}

	return &Result{User: id.User, Tokens: pair}, nil
}

// ForgotPassword stores a fresh reset digest for the account and emails the
// plaintext token. Unknown or deactivated accounts are a silent no-op.
func (s *Service) ForgotPassword(ctx context.Context, email string) (err error) {
	defer func() { s.metrics.AuthEvent(EventForgotPassword, err) }()

	if err := validation.ValidateEmail(email); err != nil {
		return validationError(err)
	}

	user, err := s.store.GetUserByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			s.logger.InfoContext(ctx, "password reset for unknown email")
			return nil
		}
		return internalError("lookup user", err)
	}
	if !user.Active {
		return nil
	}

	plain, hash, err := crypto.GenerateResetToken(s.cfg.ResetTokenBytes)
	if err != nil {
		return internalError("generate reset token", err)
	}

	expires := s.now().Add(s.cfg.ResetTokenTTL).UTC()
	user.PasswordResetTokenHash = &hash
	user.PasswordResetExpires = &expires
	user.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return internalError("store reset token", err)
	}
	s.metrics.ResetRequested()

	if err := s.sender.SendPasswordReset(ctx, recipient(user), plain); err != nil {
		s.logger.ErrorContext(ctx, "reset email failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return newError(KindEmailFailed, MsgEmailFailed, err)
	}

	s.logger.InfoContext(ctx, "password reset requested", slog.String("user_id", user.ID))
	return nil
}

// ResetPassword redeems a reset token. The token must be unexpired at the
// moment of redemption. All sessions of the user are revoked and a single new
// one is opened.
func (s *Service) ResetPassword(ctx context.Context, resetToken, password string) (res *Result, err error) {
	defer func() { s.metrics.AuthEvent(EventResetPassword, err) }()

	if resetToken == "" {
		return nil, newError(KindExpiredOrInvalidToken, MsgExpiredToken, errors.New("empty reset token"))
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, validationError(err)
	}

	user, err := s.store.GetUserByResetTokenHash(ctx, crypto.HashToken(resetToken))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, newError(KindExpiredOrInvalidToken, MsgExpiredToken, err)
		}
		return nil, internalError("lookup reset token", err)
	}

	now := s.now()
	if user.PasswordResetExpires == nil || !now.Before(*user.PasswordResetExpires) {
		return nil, newError(KindExpiredOrInvalidToken, MsgExpiredToken, errors.New("reset token expired"))
	}
	if !user.Active {
		return nil, newError(KindExpiredOrInvalidToken, MsgExpiredToken, errors.New("user is deactivated"))
	}

	pair, err := s.changePassword(ctx, user, password, now)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "password reset", slog.String("user_id", user.ID))
	if err := s.notifyPasswordUpdated(ctx, user); err != nil {
		return nil, err
	}

	return &Result{User: user.Sanitized(), Tokens: pair}, nil
}

// UpdatePassword changes the password of an authenticated user after
// checking the current one.
func (s *Service) UpdatePassword(ctx context.Context, userID, current, password string) (pair token.Pair, err error) {
	defer func() { s.metrics.AuthEvent(EventUpdatePassword, err) }()

	if err := validation.ValidatePassword(password); err != nil {
		return token.Pair{}, validationError(err)
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return token.Pair{}, newError(KindInvalidCredentials, MsgWrongPassword, err)
		}
		return token.Pair{}, internalError("lookup user", err)
	}

	if !s.hasher.Verify(current, user.PasswordHash) {
		return token.Pair{}, newError(KindInvalidCredentials, MsgWrongPassword, errors.New("current password mismatch"))
	}

	pair, err = s.changePassword(ctx, user, password, s.now())
	if err != nil {
		return token.Pair{}, err
	}

	s.logger.InfoContext(ctx, "password updated", slog.String("user_id", user.ID))
	if err := s.notifyPasswordUpdated(ctx, user); err != nil {
		return token.Pair{}, err
	}

	return pair, nil
}

// Sessions lists the open sessions of a user.
func (s *Service) Sessions(ctx context.Context, userID string) ([]*models.Session, error) {
	sessions, err := s.store.GetUserSessions(ctx, userID)
	if err != nil {
		return nil, internalError("list sessions", err)
	}
	return sessions, nil
}

// PurgeExpiredSessions deletes sessions whose refresh token has expired.
func (s *Service) PurgeExpiredSessions(ctx context.Context) (int, error) {
	n, err := s.store.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge expired sessions: %w", err)
	}
	s.metrics.SessionsExpired(n)
	return n, nil
}

// changePassword hashes the new secret, stamps PasswordChangedAt, clears the
// reset fields and replaces every session with a new one, all in one
// storage commit.
func (s *Service) changePassword(ctx context.Context, user *models.User, password string, now time.Time) (token.Pair, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return token.Pair{}, internalError("hash password", err)
	}

	changed := now.UTC()
	user.PasswordHash = hash
	user.PasswordChangedAt = &changed
	user.PasswordResetTokenHash = nil
	user.PasswordResetExpires = nil
	user.UpdatedAt = changed

	pair, err := s.issuer.Issue(user.ID)
	if err != nil {
		return token.Pair{}, internalError("issue tokens", err)
	}

	if err := s.store.ResetUserCredentials(ctx, user, newSession(user.ID, pair, changed)); err != nil {
		return token.Pair{}, internalError("reset credentials", err)
	}
	return pair, nil
}

func (s *Service) notifyPasswordUpdated(ctx context.Context, user *models.User) error {
	if err := s.sender.SendCustomMessage(ctx, recipient(user), notify.MsgPasswordUpdated, ""); err != nil {
		s.logger.ErrorContext(ctx, "password updated email failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return newError(KindEmailFailed, MsgEmailFailed, err)
	}
	return nil
}

// openSession mints a pair and persists its digests as a new session.
func (s *Service) openSession(ctx context.Context, userID string) (token.Pair, error) {
	pair, err := s.issuer.Issue(userID)
	if err != nil {
		return token.Pair{}, internalError("issue tokens", err)
	}
	if err := s.store.CreateSession(ctx, newSession(userID, pair, s.now().UTC())); err != nil {
		return token.Pair{}, internalError("create session", err)
	}
	return pair, nil
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash(uuid.NewString())
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

func newSession(userID string, pair token.Pair, now time.Time) *models.Session {
	return &models.Session{
		ID:               uuid.New().String(),
		UserID:           userID,
		AccessTokenHash:  crypto.HashToken(pair.AccessToken),
		RefreshTokenHash: crypto.HashToken(pair.RefreshToken),
		ExpiresAt:        pair.RefreshExpiresAt.UTC(),
		CreatedAt:        now,
	}
}

func recipient(user *models.User) notify.Recipient {
	return notify.Recipient{Name: user.Name, Email: user.Email}
}

// normalizeIdentity validates the raw name and email and returns their
// stored forms.
func normalizeIdentity(rawName, rawEmail string) (string, string, error) {
	if err := validation.ValidateName(rawName); err != nil {
		return "", "", validationError(err)
	}
	name := validation.NormalizeName(rawName)
	if name == "" {
		return "", "", validationError(errors.New("name must contain latin letters"))
	}
	if err := validation.ValidateEmail(rawEmail); err != nil {
		return "", "", validationError(err)
	}
	return name, validation.NormalizeEmail(rawEmail), nil
}
