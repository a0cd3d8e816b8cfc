package cli

import (
	"context"
	"fmt"

	"github.com/HakuMatsunoki/natours-api-typeorm/pkg/api"
)

func (c *Cli) runSignup(ctx context.Context) error {
	c.io.Println("=== Sign up ===")
	c.io.Println()

	name, err := c.io.ReadInput("Name: ")
	if err != nil {
		return fmt.Errorf("failed to read name: %w", err)
	}
	email, err := c.io.ReadInput("Email: ")
	if err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}
	password, err := c.readNewPassword()
	if err != nil {
		return err
	}

	resp, err := c.apiClient.Signup(ctx, api.SignupRequest{Name: name, Email: email, Password: password})
	if err != nil {
		return err
	}
	if err := c.saveAuth(ctx, resp.User, resp.TokenPair); err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Account created, you are logged in.")
	c.io.Printf("Name:  %s\n", resp.User.Name)
	c.io.Printf("Email: %s\n", resp.User.Email)
	return nil
}
