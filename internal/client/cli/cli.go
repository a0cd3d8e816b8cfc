// Package cli implements the commands of the natours client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/HakuMatsunoki/natours-api-typeorm/internal/client/api"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/client/iocli"
	"github.com/HakuMatsunoki/natours-api-typeorm/internal/client/storage"
	pkgapi "github.com/HakuMatsunoki/natours-api-typeorm/pkg/api"
)

// PasswordEnv may hold the password for non-interactive use.
const PasswordEnv = "NATOURS_PASSWD"

// ErrUnknownCommand is returned by Run for commands it does not know.
var ErrUnknownCommand = errors.New("unknown command")

// Passwords are the non-interactive password sources.
type Passwords struct {
	FromFile string
	FromArgs string
}

type Cli struct {
	apiClient *api.Client
	store     storage.AuthStorage
	io        iocli.IO
	passwords Passwords
	getenv    func(string) string
	now       func() time.Time
}

// Option configures a Cli.
type Option func(*Cli)

// WithClock overrides the time source used to judge token expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Cli) {
		c.now = now
	}
}

func New(apiClient *api.Client, store storage.AuthStorage, io iocli.IO, passwords Passwords, opts ...Option) *Cli {
	c := &Cli{
		apiClient: apiClient,
		store:     store,
		io:        io,
		passwords: passwords,
		getenv:    os.Getenv,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes command with its arguments.
func (c *Cli) Run(ctx context.Context, command string, args []string) error {
	switch command {
	case "signup":
		return c.runSignup(ctx)
	case "login":
		return c.runLogin(ctx)
	case "logout":
		return c.runLogout(ctx)
	case "logout-all":
		return c.runLogoutAll(ctx)
	case "refresh":
		return c.runRefresh(ctx)
	case "status":
		return c.runStatus(ctx)
	case "me":
		return c.runMe(ctx)
	case "sessions":
		return c.runSessions(ctx)
	case "forgot":
		return c.runForgot(ctx, args)
	case "reset":
		return c.runReset(ctx, args)
	case "passwd":
		return c.runPasswd(ctx)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}
}

// getPassword retrieves the password with priority:
// 1. Environment variable NATOURS_PASSWD
// 2. File given by -passwd-file
// 3. Command-line parameter -passwd
// 4. Interactive prompt (fallback)
func (c *Cli) getPassword(prompt string) (string, error) {
	if envPassword := c.getenv(PasswordEnv); envPassword != "" {
		return envPassword, nil
	}

	if c.passwords.FromFile != "" {
		content, err := os.ReadFile(c.passwords.FromFile)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		password := strings.TrimSpace(string(content))
		if password == "" {
			return "", fmt.Errorf("password file is empty")
		}
		return password, nil
	}

	if c.passwords.FromArgs != "" {
		return c.passwords.FromArgs, nil
	}

	password, err := c.io.ReadPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	return password, nil
}

// readNewPassword prompts twice for a new password.
func (c *Cli) readNewPassword() (string, error) {
	password, err := c.io.ReadPassword("New password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	confirm, err := c.io.ReadPassword("Confirm new password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}
	if password != confirm {
		return "", fmt.Errorf("passwords do not match")
	}
	return password, nil
}

// saveAuth caches the session returned by the server. Without a user only
// the token pair of the cached account is replaced.
func (c *Cli) saveAuth(ctx context.Context, user *pkgapi.UserResponse, pair pkgapi.TokenPair) error {
	tokens := storage.Tokens{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}

	var err error
	if user == nil {
		err = c.store.SaveTokens(ctx, &tokens)
	} else {
		err = c.store.SaveAuth(ctx, &storage.AuthData{
			Account: storage.Account{
				ServerURL: c.apiClient.BaseURL(),
				UserID:    user.ID,
				Email:     user.Email,
				Name:      user.Name,
				Role:      user.Role,
			},
			Tokens: tokens,
		})
	}
	if err != nil {
		return fmt.Errorf("failed to save auth data: %w", err)
	}
	return nil
}

// session returns the cached session with a usable access token, rotating
// the pair first when the access token has expired.
func (c *Cli) session(ctx context.Context) (*storage.AuthData, error) {
	auth, err := c.store.GetAuth(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return nil, fmt.Errorf("not authenticated. Please run 'natours login' first")
		}
		return nil, fmt.Errorf("failed to get auth data: %w", err)
	}
	if auth.ServerURL != "" && auth.ServerURL != c.apiClient.BaseURL() {
		return nil, fmt.Errorf("logged in to %s, not %s", auth.ServerURL, c.apiClient.BaseURL())
	}

	now := c.now()
	if !auth.AccessExpired(now) {
		return auth, nil
	}
	if auth.RefreshExpired(now) {
		return nil, fmt.Errorf("session expired. Please run 'natours login' again")
	}

	return c.refresh(ctx, auth)
}

func (c *Cli) refresh(ctx context.Context, auth *storage.AuthData) (*storage.AuthData, error) {
	resp, err := c.apiClient.Refresh(ctx, auth.RefreshToken)
	if err != nil {
		if api.IsUnauthorized(err) {
			_ = c.store.DeleteAuth(ctx)
			return nil, fmt.Errorf("session revoked. Please run 'natours login' again: %w", err)
		}
		return nil, err
	}
	if err := c.saveAuth(ctx, resp.User, resp.TokenPair); err != nil {
		return nil, err
	}
	return c.store.GetAuth(ctx)
}

func PrintUsage(io iocli.IO) {
	io.Println("Natours Client")
	io.Println()
	io.Println("Usage:")
	io.Println("  natours [OPTIONS] COMMAND [ARGS]")
	io.Println()
	io.Println("Options:")
	io.Println("  -version            Show version information")
	io.Println("  -server URL         Server URL (default: http://localhost:3000)")
	io.Println("  -db PATH            Path to local session cache (default: natours-client.db)")
	io.Println("  -passwd PASSWORD    Password (not recommended, use env var or file)")
	io.Println("  -passwd-file PATH   Path to file containing the password")
	io.Println()
	io.Println("Password priority (highest to lowest):")
	io.Println("  1. " + PasswordEnv + " environment variable")
	io.Println("  2. -passwd-file")
	io.Println("  3. -passwd")
	io.Println("  4. Interactive prompt")
	io.Println()
	io.Println("Commands:")
	io.Println("  signup              Create an account")
	io.Println("  login               Log in and cache the session")
	io.Println("  logout              Close this session")
	io.Println("  logout-all          Close every session of the account")
	io.Println("  refresh             Rotate the token pair")
	io.Println("  status              Show the cached session")
	io.Println("  me                  Show the signed-in account")
	io.Println("  sessions            List active sessions")
	io.Println("  forgot [EMAIL]      Request a password reset email")
	io.Println("  reset TOKEN         Set a new password with a reset token")
	io.Println("  passwd              Change the password")
}
