// Package api is the HTTP client of the natours auth API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/HakuMatsunoki/natours-api-typeorm/pkg/api"
)

// Error is a non-2xx answer of the server.
type Error struct {
	StatusCode int
	Kind       string
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error (%d)", e.StatusCode)
	}
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient создает новый API клиент
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// BaseURL returns the server address the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Signup регистрирует нового пользователя
func (c *Client) Signup(ctx context.Context, req api.SignupRequest) (*api.AuthResponse, error) {
	var resp api.AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/signup", "", req, &resp); err != nil {
		return nil, fmt.Errorf("signup request failed: %w", err)
	}
	return &resp, nil
}

// Login выполняет аутентификацию пользователя
func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error) {
	var resp api.AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/login", "", req, &resp); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return &resp, nil
}

// Refresh rotates the token pair. Takes the refresh token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*api.AuthResponse, error) {
	var resp api.AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/refresh", refreshToken, nil, &resp); err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	return &resp, nil
}

// Logout closes the session of accessToken.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/logout", accessToken, nil, nil); err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	return nil
}

// LogoutAll closes every session of the account.
func (c *Client) LogoutAll(ctx context.Context, accessToken string) error {
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/logoutAll", accessToken, nil, nil); err != nil {
		return fmt.Errorf("logout all request failed: %w", err)
	}
	return nil
}

// ForgotPassword asks the server to email a reset token.
func (c *Client) ForgotPassword(ctx context.Context, email string) (*api.StatusResponse, error) {
	var resp api.StatusResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/forgotPasswd", "", api.ForgotPasswordRequest{Email: email}, &resp)
	if err != nil {
		return nil, fmt.Errorf("forgot password request failed: %w", err)
	}
	return &resp, nil
}

// ResetPassword sets a new password with an emailed reset token.
func (c *Client) ResetPassword(ctx context.Context, resetToken, password string) (*api.AuthResponse, error) {
	var resp api.AuthResponse
	path := "/api/v1/auth/resetPasswd/" + url.PathEscape(resetToken)
	if err := c.doRequest(ctx, http.MethodPost, path, "", api.ResetPasswordRequest{Password: password}, &resp); err != nil {
		return nil, fmt.Errorf("reset password request failed: %w", err)
	}
	return &resp, nil
}

// UpdatePassword changes the password of the signed-in account.
func (c *Client) UpdatePassword(ctx context.Context, accessToken string, req api.UpdatePasswordRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	if err := c.doRequest(ctx, http.MethodPatch, "/api/v1/auth/updateMyPasswd", accessToken, req, &resp); err != nil {
		return nil, fmt.Errorf("update password request failed: %w", err)
	}
	return &resp, nil
}

// Me returns the signed-in account.
func (c *Client) Me(ctx context.Context, accessToken string) (*api.UserEnvelope, error) {
	var resp api.UserEnvelope
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/users/me", accessToken, nil, &resp); err != nil {
		return nil, fmt.Errorf("me request failed: %w", err)
	}
	return &resp, nil
}

// UpdateMe changes the name or email of the signed-in account.
func (c *Client) UpdateMe(ctx context.Context, accessToken string, req api.UpdateMeRequest) (*api.UserEnvelope, error) {
	var resp api.UserEnvelope
	if err := c.doRequest(ctx, http.MethodPatch, "/api/v1/users/updateMe", accessToken, req, &resp); err != nil {
		return nil, fmt.Errorf("update me request failed: %w", err)
	}
	return &resp, nil
}

// Sessions lists the active sessions of the account.
func (c *Client) Sessions(ctx context.Context, accessToken string) (*api.SessionsResponse, error) {
	var resp api.SessionsResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/users/me/sessions", accessToken, nil, &resp); err != nil {
		return nil, fmt.Errorf("sessions request failed: %w", err)
	}
	return &resp, nil
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, method, path, bearer string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil {
			apiErr.Kind = errResp.Error
			apiErr.Message = errResp.Message
		} else {
			apiErr.Message = string(bytes.TrimSpace(respBody))
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
