package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HakuMatsunoki/natours-api-typeorm/internal/models"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/auth"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/handlers"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/token"
	"github.com/HakuMatsunoki/natours-api-typeorm/pkg/api"
)

// setupTestLogger creates a logger for testing
func setupTestLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelError,
	}
	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler)
}

// fakeAuthenticator accepts tokens from a fixed table.
type fakeAuthenticator struct {
	tokens   map[string]*auth.Identity
	lastKind token.Kind
}

func (f *fakeAuthenticator) Authenticate(ctx context.Context, raw string, kind token.Kind) (*auth.Identity, error) {
	f.lastKind = kind
	id, ok := f.tokens[raw]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return id, nil
}

func newIdentity(role models.Role) *auth.Identity {
	return &auth.Identity{
		User:    &models.User{ID: "user-" + string(role), Role: role, Active: true},
		Session: &models.Session{ID: "session-" + string(role)},
	}
}

func newFakeAuthenticator() *fakeAuthenticator {
	return &fakeAuthenticator{
		tokens: map[string]*auth.Identity{
			"user-token":  newIdentity(models.RoleUser),
			"admin-token": newIdentity(models.RoleAdmin),
			"guide-token": newIdentity(models.RoleLeadGuide),
		},
	}
}

func okHandler(t *testing.T, expectedUserID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFrom(r.Context())
		require.True(t, ok, "identity should be in context")
		assert.Equal(t, expectedUserID, id.User.ID)

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

func TestAuthenticate_Success(t *testing.T) {
	logger := setupTestLogger()
	authn := newFakeAuthenticator()
	mw := Authenticate(logger, authn, handlers.NewResponder(logger, false), token.Refresh)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	w := httptest.NewRecorder()

	mw(okHandler(t, "user-user")).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	assert.Equal(t, token.Refresh, authn.lastKind)
}

func TestAuthenticate_Rejects(t *testing.T) {
	logger := setupTestLogger()
	mw := Authenticate(logger, newFakeAuthenticator(), handlers.NewResponder(logger, false), token.Access)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("Handler should not be called")
	}))

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "no bearer prefix", header: "user-token"},
		{name: "wrong scheme", header: "Basic user-token"},
		{name: "empty token", header: "Bearer "},
		{name: "unknown token", header: "Bearer forged-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			var resp api.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, "invalid_token", resp.Error)
			assert.Equal(t, auth.MsgInvalidToken, resp.Message)
		})
	}
}

func TestAuthenticate_SchemeIsCaseInsensitive(t *testing.T) {
	logger := setupTestLogger()
	mw := Authenticate(logger, newFakeAuthenticator(), handlers.NewResponder(logger, false), token.Access)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "bearer admin-token")
	w := httptest.NewRecorder()

	mw(okHandler(t, "user-admin")).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRestrictTo(t *testing.T) {
	logger := setupTestLogger()
	resp := handlers.NewResponder(logger, false)
	chain := func(next http.Handler) http.Handler {
		return Authenticate(logger, newFakeAuthenticator(), resp, token.Access)(
			RestrictTo(resp, models.RoleAdmin, models.RoleLeadGuide)(next))
	}

	tests := []struct {
		name           string
		token          string
		expectedStatus int
	}{
		{name: "admin allowed", token: "admin-token", expectedStatus: http.StatusOK},
		{name: "lead guide allowed", token: "guide-token", expectedStatus: http.StatusOK},
		{name: "user forbidden", token: "user-token", expectedStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestRestrictTo_WithoutAuthenticate(t *testing.T) {
	handler := RestrictTo(handlers.NewResponder(setupTestLogger(), false), models.RoleAdmin)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("Handler should not be called")
		}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/users", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
