package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/auth"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/token"
	"github.com/HakuMatsunoki/natours-api-typeorm/pkg/api"
)

// AuthService is the credential lifecycle used by AuthHandler.
type AuthService interface {
	Signup(ctx context.Context, in auth.SignupInput) (*auth.Result, error)
	Login(ctx context.Context, email, password string) (*auth.Result, error)
	Logout(ctx context.Context, id *auth.Identity) error
	LogoutAll(ctx context.Context, id *auth.Identity) error
	Refresh(ctx context.Context, id *auth.Identity) (*auth.Result, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, resetToken, password string) (*auth.Result, error)
	UpdatePassword(ctx context.Context, userID, current, password string) (token.Pair, error)
}

// MsgResetSent is returned by forgotPasswd whether or not the account exists.
const MsgResetSent = "If the account exists, a reset token was sent to its email"

// AuthHandler обрабатывает запросы авторизации
type AuthHandler struct {
	logger *slog.Logger
	svc    AuthService
	resp   *Responder
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(logger *slog.Logger, svc AuthService, resp *Responder) *AuthHandler {
	return &AuthHandler{
		logger: logger,
		svc:    svc,
		resp:   resp,
	}
}

// Signup обрабатывает POST /api/v1/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req api.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		h.resp.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Signup(r.Context(), auth.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.resp.WriteError(w, r, err)
		return
	}

	h.resp.SendJSON(w, authResponse(res), http.StatusOK)
}

// Login обрабатывает POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.resp.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.resp.WriteError(w, r, err)
		return
	}

	h.resp.SendJSON(w, authResponse(res), http.StatusOK)
}

// Logout обрабатывает POST /api/v1/auth/logout
// Only the session of the presented access token is closed.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err == nil {
		err = h.svc.Logout(r.Context(), id)
	}
	if err != nil {
		h.resp.WriteError(w, r, err)
		return
	}

	h.resp.SendJSON(w, api.StatusResponse{Status: api.StatusSuccess}, http.StatusOK)
}

// LogoutAll обрабатывает POST /api/v1/auth/logoutAll
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err == nil {
		err = h.svc.LogoutAll(r.Context(), id)
	}
	if err != nil {
		h.resp.WriteError(w, r, err)
		return
	}

	h.resp.SendJSON(w, api.StatusResponse{Status: api.StatusSuccess}, http.StatusOK)
}

// Refresh обрабатывает POST /api/v1/auth/refresh
// Expects the refresh token as the bearer credential.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		h.resp.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Refresh(r.Context(), id)
	if err != nil {
		h.resp.WriteError(w, r, err)
		return
	}

	h.resp.SendJSON(w, authResponse(res), http.StatusOK)
}

// ForgotPassword обрабатывает POST /api/v1/auth/forgotPasswd
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req api.ForgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		h.resp.WriteError(w, r, err)
		return
	}

	if err := h.svc.ForgotPassword(r.Context(), req.Email); err != nil {
		h.resp.WriteError(w, r, err)
		return
	}

	h.resp.SendJSON(w, api.StatusResponse{Status: api.StatusSuccess, Message: MsgResetSent}, http.StatusOK)
}

// ResetPassword обрабатывает POST /api/v1/auth/resetPasswd/{token}
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req api.ResetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		h.resp.WriteError(w, r, err)
		return
	}

	res, err := h.svc.ResetPassword(r.Context(), r.PathValue("token"), req.Password)
	if err != nil {
		h.resp.WriteError(w, r, err)
		return
	}

	h.resp.SendJSON(w, authResponse(res), http.StatusOK)
}

// UpdatePassword обрабатывает PATCH /api/v1/auth/updateMyPasswd
func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		h.resp.WriteError(w, r, err)
		return
	}

	var req api.UpdatePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		h.resp.WriteError(w, r, err)
		return
	}

	pair, err := h.svc.UpdatePassword(r.Context(), id.User.ID, req.CurrentPassword, req.Password)
	if err != nil {
		h.resp.WriteError(w, r, err)
		return
	}

	h.resp.SendJSON(w, api.TokenResponse{
		Status:    api.StatusSuccess,
		TokenPair: tokenPair(pair),
	}, http.StatusOK)
}

func authResponse(res *auth.Result) api.AuthResponse {
	return api.AuthResponse{
		Status:    api.StatusSuccess,
		User:      userResponse(res.User),
		TokenPair: tokenPair(res.Tokens),
	}
}

func tokenPair(p token.Pair) api.TokenPair {
	return api.TokenPair{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		AccessExpiresAt:  p.AccessExpiresAt,
		RefreshExpiresAt: p.RefreshExpiresAt,
	}
}
