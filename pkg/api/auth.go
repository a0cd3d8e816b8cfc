package api

import "time"

// Response statuses
const (
	StatusSuccess = "success"
	StatusFail    = "fail"  // 4xx
	StatusError   = "error" // 5xx
)

// SignupRequest представляет запрос на регистрацию нового пользователя
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"passwd"`
}

// LoginRequest представляет запрос на аутентификацию
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"passwd"`
}

// ForgotPasswordRequest asks for a reset token to be emailed.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest carries the new password; the reset token is in the path.
type ResetPasswordRequest struct {
	Password string `json:"passwd"`
}

// UpdatePasswordRequest changes the password of the caller.
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"passwdCurrent"`
	Password        string `json:"passwd"`
}

// TokenPair представляет пару токенов доступа
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// AuthResponse is returned by signup, login, refresh and password reset.
type AuthResponse struct {
	Status    string        `json:"status"`
	User      *UserResponse `json:"user"`
	TokenPair TokenPair     `json:"tokenPair"`
}

// TokenResponse is returned by password update.
type TokenResponse struct {
	Status    string    `json:"status"`
	TokenPair TokenPair `json:"tokenPair"`
}

// StatusResponse is a bare acknowledgement.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Status  string `json:"status"`           // fail or error
	Error   string `json:"error"`            // machine readable kind
	Message string `json:"message"`          // client facing message
	Detail  string `json:"detail,omitempty"` // cause, outside production only
}
