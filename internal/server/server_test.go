package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/config"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/notify"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/storage/sqlstore"
	"github.com/HakuMatsunoki/natours-api-typeorm/pkg/api"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

type outbox struct {
	mu     sync.Mutex
	resets []string
}

func (o *outbox) lastReset() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.resets) == 0 {
		return ""
	}
	return o.resets[len(o.resets)-1]
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.BcryptCost = 4
	cfg.RateLimitMax = 1000
	cfg.DB = ":memory:"
	return cfg
}

type testClient struct {
	t   *testing.T
	srv *httptest.Server
}

func (c *testClient) do(method, path, bearer string, body any) (int, []byte) {
	c.t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, c.srv.URL+path, r)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.srv.Client().Do(req)
	require.NoError(c.t, err)
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, data
}

func (c *testClient) authDo(method, path, bearer string, body any) (int, api.AuthResponse) {
	c.t.Helper()
	status, data := c.do(method, path, bearer, body)
	var resp api.AuthResponse
	if status == http.StatusOK {
		require.NoError(c.t, json.Unmarshal(data, &resp))
	}
	return status, resp
}

func setupTestServer(t *testing.T, cfg *config.Config) (*testClient, *Server, *outbox) {
	t.Helper()

	store, err := sqlstore.New(context.Background(), sqlstore.DriverSQLite, ":memory:")
	require.NoError(t, err)

	box := &outbox{}
	sender := &notify.SenderMock{
		SendWelcomeFunc: func(ctx context.Context, to notify.Recipient) error { return nil },
		SendPasswordResetFunc: func(ctx context.Context, to notify.Recipient, token string) error {
			box.mu.Lock()
			defer box.mu.Unlock()
			box.resets = append(box.resets, token)
			return nil
		},
		SendWelcomeFromRootFunc: func(ctx context.Context, to notify.Recipient, path string) error { return nil },
		SendCustomMessageFunc: func(ctx context.Context, to notify.Recipient, msg string, path string) error {
			return nil
		},
	}

	s, err := New(cfg, setupTestLogger(), store, sender)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	return &testClient{t: t, srv: srv}, s, box
}

func TestServer_AuthLifecycle(t *testing.T) {
	c, _, box := setupTestServer(t, testConfig())

	status, signup := c.authDo(http.MethodPost, "/api/v1/auth/signup", "", api.SignupRequest{
		Name: "jimi hendrix", Email: "Jimi@Example.com", Password: "Purple#Haze1967",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Jimi Hendrix", signup.User.Name)
	assert.Equal(t, "jimi@example.com", signup.User.Email)
	assert.Equal(t, "user", signup.User.Role)

	// второе устройство
	status, login := c.authDo(http.MethodPost, "/api/v1/auth/login", "", api.LoginRequest{
		Email: "jimi@example.com", Password: "Purple#Haze1967",
	})
	require.Equal(t, http.StatusOK, status)

	status, data := c.do(http.MethodGet, "/api/v1/users/me/sessions", login.TokenPair.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	var sessions api.SessionsResponse
	require.NoError(t, json.Unmarshal(data, &sessions))
	assert.Equal(t, 2, sessions.Results)

	// refresh only accepts the refresh token
	status, _ = c.do(http.MethodPost, "/api/v1/auth/refresh", login.TokenPair.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, refreshed := c.authDo(http.MethodPost, "/api/v1/auth/refresh", login.TokenPair.RefreshToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotEqual(t, login.TokenPair.RefreshToken, refreshed.TokenPair.RefreshToken)

	// rotated refresh token is single use
	status, _ = c.do(http.MethodPost, "/api/v1/auth/refresh", login.TokenPair.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// logout closes only this device
	status, _ = c.do(http.MethodPost, "/api/v1/auth/logout", refreshed.TokenPair.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = c.do(http.MethodGet, "/api/v1/users/me", refreshed.TokenPair.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = c.do(http.MethodGet, "/api/v1/users/me", signup.TokenPair.AccessToken, nil)
	assert.Equal(t, http.StatusOK, status)

	// forgot + reset revokes every session
	status, _ = c.do(http.MethodPost, "/api/v1/auth/forgotPasswd", "", api.ForgotPasswordRequest{Email: "jimi@example.com"})
	require.Equal(t, http.StatusOK, status)
	resetToken := box.lastReset()
	require.NotEmpty(t, resetToken)

	status, reset := c.authDo(http.MethodPost, "/api/v1/auth/resetPasswd/"+resetToken, "", api.ResetPasswordRequest{
		Password: "Little#Wing1967",
	})
	require.Equal(t, http.StatusOK, status)

	status, _ = c.do(http.MethodGet, "/api/v1/users/me", signup.TokenPair.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = c.do(http.MethodGet, "/api/v1/users/me", reset.TokenPair.AccessToken, nil)
	assert.Equal(t, http.StatusOK, status)

	// reset token is single use
	status, _ = c.do(http.MethodPost, "/api/v1/auth/resetPasswd/"+resetToken, "", api.ResetPasswordRequest{
		Password: "Voodoo#Child1968",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = c.do(http.MethodPost, "/api/v1/auth/login", "", api.LoginRequest{
		Email: "jimi@example.com", Password: "Purple#Haze1967",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestServer_UpdateMe(t *testing.T) {
	c, _, _ := setupTestServer(t, testConfig())

	status, signup := c.authDo(http.MethodPost, "/api/v1/auth/signup", "", api.SignupRequest{
		Name: "Jimi Hendrix", Email: "jimi@example.com", Password: "Purple#Haze1967",
	})
	require.Equal(t, http.StatusOK, status)
	token := signup.TokenPair.AccessToken

	// must not fall through to the admin-only /users/{id}
	name := "James Marshall Hendrix"
	status, data := c.do(http.MethodPatch, "/api/v1/users/updateMe", token, api.UpdateMeRequest{Name: &name})
	require.Equal(t, http.StatusOK, status, string(data))
	var env api.UserEnvelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, signup.User.ID, env.User.ID)
	assert.Equal(t, name, env.User.Name)
	assert.Equal(t, "user", env.User.Role)

	status, _ = c.do(http.MethodPatch, "/api/v1/users/updateMe", token, map[string]string{"role": "admin"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, data = c.do(http.MethodGet, "/api/v1/users/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, name, env.User.Name)
	assert.Equal(t, "user", env.User.Role)

	status, _ = c.do(http.MethodPatch, "/api/v1/users/updateMe", "", api.UpdateMeRequest{Name: &name})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestServer_AdminRoutes(t *testing.T) {
	c, s, _ := setupTestServer(t, testConfig())

	_, err := s.Service().CreateAdmin(context.Background(), "Root Admin", "root@example.com", "Root#Passwd2024")
	require.NoError(t, err)

	status, adminLogin := c.authDo(http.MethodPost, "/api/v1/auth/login", "", api.LoginRequest{
		Email: "root@example.com", Password: "Root#Passwd2024",
	})
	require.Equal(t, http.StatusOK, status)
	adminToken := adminLogin.TokenPair.AccessToken

	status, userSignup := c.authDo(http.MethodPost, "/api/v1/auth/signup", "", api.SignupRequest{
		Name: "Noel Redding", Email: "noel@example.com", Password: "Fire#Bass1967x",
	})
	require.Equal(t, http.StatusOK, status)

	// regular users are forbidden
	status, _ = c.do(http.MethodGet, "/api/v1/users", userSignup.TokenPair.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, data := c.do(http.MethodGet, "/api/v1/users", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	var list api.UsersResponse
	require.NoError(t, json.Unmarshal(data, &list))
	assert.Equal(t, 2, list.Results)

	status, data = c.do(http.MethodPost, "/api/v1/users", adminToken, api.CreateUserRequest{
		Name: "Mitch Mitchell", Email: "mitch@example.com", Role: "guide",
	})
	require.Equal(t, http.StatusCreated, status)
	var created api.UserEnvelope
	require.NoError(t, json.Unmarshal(data, &created))
	assert.Equal(t, "guide", created.User.Role)

	role := "lead-guide"
	status, data = c.do(http.MethodPatch, "/api/v1/users/"+created.User.ID, adminToken, api.UpdateUserRequest{Role: &role})
	require.Equal(t, http.StatusOK, status)
	var updated api.UserEnvelope
	require.NoError(t, json.Unmarshal(data, &updated))
	assert.Equal(t, "lead-guide", updated.User.Role)

	status, _ = c.do(http.MethodDelete, "/api/v1/users/"+userSignup.User.ID, adminToken, nil)
	assert.Equal(t, http.StatusNoContent, status)

	// the deleted account loses its sessions and cannot log in
	status, _ = c.do(http.MethodGet, "/api/v1/users/me", userSignup.TokenPair.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = c.do(http.MethodPost, "/api/v1/auth/login", "", api.LoginRequest{
		Email: "noel@example.com", Password: "Fire#Bass1967x",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = c.do(http.MethodGet, "/api/v1/users/00000000-0000-0000-0000-000000000000", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServer_Ambient(t *testing.T) {
	cfg := testConfig()
	cfg.RequestBodyMax = 64
	c, _, _ := setupTestServer(t, cfg)

	t.Run("health", func(t *testing.T) {
		status, data := c.do(http.MethodGet, "/api/v1/health", "", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `{"status":"ok"}`, string(data))
	})

	t.Run("unknown route", func(t *testing.T) {
		status, data := c.do(http.MethodGet, "/api/v1/tours", "", nil)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Contains(t, string(data), `"not_found"`)
	})

	t.Run("body too large", func(t *testing.T) {
		status, _ := c.do(http.MethodPost, "/api/v1/auth/signup", "", api.SignupRequest{
			Name: strings.Repeat("a", 128), Email: "big@example.com", Password: "Purple#Haze1967",
		})
		assert.Equal(t, http.StatusRequestEntityTooLarge, status)
	})

	t.Run("metrics", func(t *testing.T) {
		status, data := c.do(http.MethodGet, "/metrics", "", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, string(data), "natours_http_requests_total")
		assert.Contains(t, string(data), `route="GET /api/v1/health"`)
	})
}

func TestServer_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitMax = 2
	c, _, _ := setupTestServer(t, cfg)

	for i := 0; i < 2; i++ {
		status, _ := c.do(http.MethodGet, "/api/v1/health", "", nil)
		require.Equal(t, http.StatusOK, status)
	}
	status, data := c.do(http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Contains(t, string(data), "rate_limited")

	// metrics are outside the limiter
	status, _ = c.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestServer_InvalidSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.SessionCleanupSchedule = "every now and then"

	store, err := sqlstore.New(context.Background(), sqlstore.DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, err = New(cfg, setupTestLogger(), store, &notify.SenderMock{})
	assert.Error(t, err)
}

func TestOpenStorage(t *testing.T) {
	ctx := context.Background()

	t.Run("bolt", func(t *testing.T) {
		cfg := testConfig()
		cfg.DBDriver = config.DriverBolt
		cfg.DB = filepath.Join(t.TempDir(), "natours.bolt")

		store, err := OpenStorage(ctx, cfg)
		require.NoError(t, err)
		defer func() { _ = store.Close() }()
		assert.NoError(t, store.Ping(ctx))
	})

	t.Run("sqlite", func(t *testing.T) {
		store, err := OpenStorage(ctx, testConfig())
		require.NoError(t, err)
		defer func() { _ = store.Close() }()
		assert.NoError(t, store.Ping(ctx))
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := testConfig()
		cfg.DBDriver = "mongodb"
		_, err := OpenStorage(ctx, cfg)
		assert.Error(t, err)
	})
}

func TestRun_GracefulShutdown(t *testing.T) {
	cfg := testConfig()
	cfg.Port = 0
	_, s, _ := setupTestServer(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	cfg := testConfig()
	cfg.Env = config.EnvProduction
	logger, err := NewLogger(cfg, &buf)
	require.NoError(t, err)
	logger.Info("hello")
	assert.True(t, json.Valid(bytes.TrimSpace(buf.Bytes())), "production logs are JSON")

	cfg.LogLevel = "loud"
	_, err = NewLogger(cfg, &buf)
	assert.Error(t, err)
}
