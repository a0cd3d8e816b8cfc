package api

import "time"

// UserResponse is the public view of an account. It never carries
// credential material.
type UserResponse struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Photo             string     `json:"photo"`
	Role              string     `json:"role"`
	PasswordChangedAt *time.Time `json:"passwdChangedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// UserEnvelope wraps a single user.
type UserEnvelope struct {
	Status string        `json:"status"`
	User   *UserResponse `json:"user"`
}

// UsersResponse lists users.
type UsersResponse struct {
	Status  string          `json:"status"`
	Results int             `json:"results"`
	Users   []*UserResponse `json:"users"`
}

// CreateUserRequest is an administrator's request to open an account.
type CreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// UpdateUserRequest patches an account; absent fields stay unchanged.
type UpdateUserRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Role  *string `json:"role,omitempty"`
}

// UpdateMeRequest is a user's edit of their own profile. Role and
// password are not accepted here.
type UpdateMeRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

// SessionResponse describes one signed-in device.
type SessionResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Current   bool      `json:"current"`
}

// SessionsResponse lists the sessions of the caller.
type SessionsResponse struct {
	Status   string             `json:"status"`
	Results  int                `json:"results"`
	Sessions []*SessionResponse `json:"sessions"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}
