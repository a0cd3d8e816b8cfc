package models

import "time"

// Role is a fixed set of access levels a user can hold.
type Role string

const (
	RoleUser      Role = "user"
	RoleGuide     Role = "guide"
	RoleLeadGuide Role = "lead-guide"
	RoleAdmin     Role = "admin"
)

// DefaultPhoto is assigned to every new account.
const DefaultPhoto = "default.jpg"

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	}
	return false
}

// User is an account (principal) in the system.
type User struct {
	ID                     string     `json:"id"`
	Name                   string     `json:"name"`
	Email                  string     `json:"email"` // always lower-cased
	Photo                  string     `json:"photo"`
	Role                   Role       `json:"role"`
	PasswordHash           string     `json:"-"` // bcrypt
	PasswordChangedAt      *time.Time `json:"passwd_changed_at,omitempty"`
	PasswordResetTokenHash *string    `json:"-"` // sha256 hex of the emailed reset token
	PasswordResetExpires   *time.Time `json:"-"`
	Active                 bool       `json:"active"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// Sanitized returns a copy of the user without any credential material.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.PasswordHash = ""
	c.PasswordResetTokenHash = nil
	c.PasswordResetExpires = nil
	return &c
}

// ChangedPasswordAfter reports whether the password was changed after a token
// issued at iat. Both sides are compared in whole milliseconds, so the pair
// minted by the change itself stays fresh. iat is rounded because a decoded
// NumericDate can land just below the millisecond it was issued at.
func (u *User) ChangedPasswordAfter(iat time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.Truncate(time.Millisecond).After(iat.Round(time.Millisecond))
}

// Session links an issued access/refresh token pair to its owner.
// Only SHA-256 digests of the tokens are persisted.
type Session struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	AccessTokenHash  string    `json:"-"`
	RefreshTokenHash string    `json:"-"`
	ExpiresAt        time.Time `json:"expires_at"` // refresh token expiry
	CreatedAt        time.Time `json:"created_at"`

	// User is populated by lookups by token.
	User *User `json:"-"`
}
