package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/HakuMatsunoki/natours-api-typeorm/pkg/api"
)

func (c *Cli) runLogin(ctx context.Context) error {
	c.io.Println("=== Login ===")
	c.io.Println()

	email, err := c.io.ReadInput("Email: ")
	if err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}
	password, err := c.getPassword("Password: ")
	if err != nil {
		return err
	}

	resp, err := c.apiClient.Login(ctx, api.LoginRequest{Email: email, Password: password})
	if err != nil {
		return err
	}
	if err := c.saveAuth(ctx, resp.User, resp.TokenPair); err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Login successful!")
	c.io.Printf("Logged in as %s <%s>\n", resp.User.Name, resp.User.Email)
	c.io.Printf("Access token expires: %s\n", resp.TokenPair.AccessExpiresAt.Local().Format(time.RFC3339))
	return nil
}

func (c *Cli) runRefresh(ctx context.Context) error {
	auth, err := c.store.GetAuth(ctx)
	if err != nil {
		return fmt.Errorf("not authenticated. Please run 'natours login' first")
	}

	auth, err = c.refresh(ctx, auth)
	if err != nil {
		return err
	}

	c.io.Println("✓ Tokens rotated")
	c.io.Printf("Access token expires: %s\n", auth.AccessExpiresAt.Local().Format(time.RFC3339))
	return nil
}
