package cli

import (
	"context"
	"fmt"

	"github.com/HakuMatsunoki/natours-api-typeorm/pkg/api"
)

func (c *Cli) runForgot(ctx context.Context, args []string) error {
	var email string
	if len(args) > 0 {
		email = args[0]
	} else {
		var err error
		if email, err = c.io.ReadInput("Email: "); err != nil {
			return fmt.Errorf("failed to read email: %w", err)
		}
	}

	resp, err := c.apiClient.ForgotPassword(ctx, email)
	if err != nil {
		return err
	}

	c.io.Println(resp.Message)
	c.io.Println("Then run 'natours reset <token>'.")
	return nil
}

func (c *Cli) runReset(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing reset token. Usage: natours reset <token>")
	}

	password, err := c.readNewPassword()
	if err != nil {
		return err
	}

	resp, err := c.apiClient.ResetPassword(ctx, args[0], password)
	if err != nil {
		return err
	}
	if err := c.saveAuth(ctx, resp.User, resp.TokenPair); err != nil {
		return err
	}

	c.io.Println("✓ Password reset, all other sessions were closed. You are logged in.")
	return nil
}

func (c *Cli) runPasswd(ctx context.Context) error {
	auth, err := c.session(ctx)
	if err != nil {
		return err
	}

	current, err := c.getPassword("Current password: ")
	if err != nil {
		return err
	}
	password, err := c.readNewPassword()
	if err != nil {
		return err
	}

	resp, err := c.apiClient.UpdatePassword(ctx, auth.AccessToken, api.UpdatePasswordRequest{
		CurrentPassword: current,
		Password:        password,
	})
	if err != nil {
		return err
	}
	if err := c.saveAuth(ctx, nil, resp.TokenPair); err != nil {
		return err
	}

	c.io.Println("✓ Password changed, all other sessions were closed.")
	return nil
}
