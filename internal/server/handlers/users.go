package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/HakuMatsunoki/natours-api-typeorm/internal/models"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/auth"
	"github.com/HakuMatsunoki/natours-api-typeorm/pkg/api"
)

// UserService is the account management used by UserHandler.
type UserService interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	CreateUser(ctx context.Context, in auth.CreateUserInput) (*models.User, error)
	UpdateUser(ctx context.Context, userID string, in auth.UpdateUserInput) (*models.User, error)
	DeactivateUser(ctx context.Context, userID string) error
	Sessions(ctx context.Context, userID string) ([]*models.Session, error)
}

// UserHandler serves /api/v1/users.
type UserHandler struct {
	logger *slog.Logger
	svc    UserService
	resp   *Responder
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(logger *slog.Logger, svc UserService, resp *Responder) *UserHandler {
	return &UserHandler{
		logger: logger,
		svc:    svc,
		resp:   resp,
	}
}

// Me обрабатывает GET /api/v1/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		h.resp.WriteError(w, r, err)
		return
	}

	h.resp.SendJSON(w, api.UserEnvelope{
		Status: api.StatusSuccess,
		User:   userResponse(id.User),
	}, http.StatusOK)
}

// UpdateMe обрабатывает PATCH /api/v1/users/updateMe
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		h.resp.WriteError(w, r, err)
		return
	}

	// unknown fields (role, passwd) fail decoding
	var req api.UpdateMeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.resp.WriteError(w, r, err)
		return
	}

	user, err := h.svc.UpdateUser(r.Context(), id.User.ID, auth.UpdateUserInput{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		h.resp.WriteError(w, r, err)
		return
	}

	h.resp.SendJSON(w, api.UserEnvelope{Status: api.StatusSuccess, User: userResponse(user)}, http.StatusOK)
}

// DeleteMe обрабатывает DELETE /api/v1/users/deleteMe
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err == nil {
		err = h.svc.DeactivateUser(r.Context(), id.User.ID)
	}
	if err != nil {
		h.resp.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Sessions обрабатывает GET /api/v1/users/me/sessions
func (h *UserHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		h.resp.WriteError(w, r, err)
		return
	}

	sessions, err := h.svc.Sessions(r.Context(), id.User.ID)
	if err != nil {
		h.resp.WriteError(w, r, err)
		return
	}

	resp := api.SessionsResponse{
		Status:   api.StatusSuccess,
		Results:  len(sessions),
		Sessions: make([]*api.SessionResponse, 0, len(sessions)),
	}
	for _, s := range sessions {
		resp.Sessions = append(resp.Sessions, &api.SessionResponse{
			ID:        s.ID,
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
			Current:   id.Session != nil && s.ID == id.Session.ID,
		})
	}

	h.resp.SendJSON(w, resp, http.StatusOK)
}

// List обрабатывает GET /api/v1/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		h.resp.WriteError(w, r, err)
		return
	}

	resp := api.UsersResponse{
		Status:  api.StatusSuccess,
		Results: len(users),
		Users:   make([]*api.UserResponse, 0, len(users)),
	}
	for _, u := range users {
		resp.Users = append(resp.Users, userResponse(u))
	}

	h.resp.SendJSON(w, resp, http.StatusOK)
}

// Create обрабатывает POST /api/v1/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req api.CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		h.resp.WriteError(w, r, err)
		return
	}

	user, err := h.svc.CreateUser(r.Context(), auth.CreateUserInput{
		Name:  req.Name,
		Email: req.Email,
		Role:  models.Role(req.Role),
	})
	if err != nil {
		h.resp.WriteError(w, r, err)
		return
	}

	h.resp.SendJSON(w, api.UserEnvelope{Status: api.StatusSuccess, User: userResponse(user)}, http.StatusCreated)
}

// Get обрабатывает GET /api/v1/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		h.resp.WriteError(w, r, err)
		return
	}

	h.resp.SendJSON(w, api.UserEnvelope{Status: api.StatusSuccess, User: userResponse(user)}, http.StatusOK)
}

// Update обрабатывает PATCH /api/v1/users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		h.resp.WriteError(w, r, err)
		return
	}

	in := auth.UpdateUserInput{
		Name:  req.Name,
		Email: req.Email,
	}
	if req.Role != nil {
		role := models.Role(*req.Role)
		in.Role = &role
	}

	user, err := h.svc.UpdateUser(r.Context(), r.PathValue("id"), in)
	if err != nil {
		h.resp.WriteError(w, r, err)
		return
	}

	h.resp.SendJSON(w, api.UserEnvelope{Status: api.StatusSuccess, User: userResponse(user)}, http.StatusOK)
}

// Delete обрабатывает DELETE /api/v1/users/{id}
// Accounts are deactivated, never removed.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeactivateUser(r.Context(), r.PathValue("id")); err != nil {
		h.resp.WriteError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "user deleted by admin", slog.String("user_id", r.PathValue("id")))
	w.WriteHeader(http.StatusNoContent)
}

func userResponse(u *models.User) *api.UserResponse {
	if u == nil {
		return nil
	}
	return &api.UserResponse{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		Photo:             u.Photo,
		Role:              string(u.Role),
		PasswordChangedAt: u.PasswordChangedAt,
		CreatedAt:         u.CreatedAt,
	}
}
