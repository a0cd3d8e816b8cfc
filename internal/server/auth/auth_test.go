package auth

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/HakuMatsunoki/natours-api-typeorm/internal/crypto"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/notify"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/storage/sqlstore"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/token"
)

const (
	testName     = "Jimi Hendrix"
	testEmail    = "jimi@example.com"
	testPassword = "Purple#Haze1967"
	newPassword  = "Little#Wing1967"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// mailbox records what the service sent.
type mailbox struct {
	mu          sync.Mutex
	resetTokens []string
}

func (m *mailbox) lastResetToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.resetTokens) == 0 {
		return ""
	}
	return m.resetTokens[len(m.resetTokens)-1]
}

type testEnv struct {
	svc    *Service
	authn  *Authenticator
	store  *sqlstore.Storage
	sender *notify.SenderMock
	mail   *mailbox
	clock  *testClock
}

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlstore.New(context.Background(), sqlstore.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	clock := &testClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}

	issuer, err := token.NewIssuer(token.Config{
		AccessSecret:  []byte("mega_super-SecReT"),
		RefreshSecret: []byte("super_duper_seCreT"),
		AccessTTL:     30 * time.Minute,
		RefreshTTL:    30 * 24 * time.Hour,
	}, token.WithClock(clock.Now))
	require.NoError(t, err)

	hasher, err := crypto.NewHasher(4)
	require.NoError(t, err)

	mail := &mailbox{}
	sender := &notify.SenderMock{
		SendWelcomeFunc: func(ctx context.Context, to notify.Recipient) error {
			return nil
		},
		SendPasswordResetFunc: func(ctx context.Context, to notify.Recipient, token string) error {
			mail.mu.Lock()
			defer mail.mu.Unlock()
			mail.resetTokens = append(mail.resetTokens, token)
			return nil
		},
		SendWelcomeFromRootFunc: func(ctx context.Context, to notify.Recipient, path string) error {
			return nil
		},
		SendCustomMessageFunc: func(ctx context.Context, to notify.Recipient, msg string, path string) error {
			return nil
		},
	}

	logger := setupTestLogger()
	svc := NewService(logger, store, hasher, issuer, sender, Config{
		ResetTokenBytes:    32,
		ResetTokenTTL:      10 * time.Minute,
		ChangePasswordPath: "change-password",
	}, WithClock(clock.Now))

	return &testEnv{
		svc:    svc,
		authn:  NewAuthenticator(logger, issuer, store),
		store:  store,
		sender: sender,
		mail:   mail,
		clock:  clock,
	}
}

func (e *testEnv) signup(t *testing.T) *Result {
	t.Helper()
	res, err := e.svc.Signup(context.Background(), SignupInput{
		Name:     testName,
		Email:    testEmail,
		Password: testPassword,
	})
	require.NoError(t, err)
	return res
}

func (e *testEnv) login(t *testing.T) *Result {
	t.Helper()
	res, err := e.svc.Login(context.Background(), testEmail, testPassword)
	require.NoError(t, err)
	return res
}
