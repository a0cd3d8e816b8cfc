package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/HakuMatsunoki/natours-api-typeorm/internal/client/storage"
)

func (c *Cli) runLogout(ctx context.Context) error {
	auth, err := c.session(ctx)
	if err != nil {
		return err
	}

	if err := c.apiClient.Logout(ctx, auth.AccessToken); err != nil {
		return err
	}
	if err := c.forget(ctx); err != nil {
		return err
	}

	c.io.Println("✓ Logged out")
	return nil
}

func (c *Cli) runLogoutAll(ctx context.Context) error {
	auth, err := c.session(ctx)
	if err != nil {
		return err
	}

	if err := c.apiClient.LogoutAll(ctx, auth.AccessToken); err != nil {
		return err
	}
	if err := c.forget(ctx); err != nil {
		return err
	}

	c.io.Println("✓ Logged out from all devices")
	return nil
}

func (c *Cli) forget(ctx context.Context) error {
	if err := c.store.DeleteAuth(ctx); err != nil && !errors.Is(err, storage.ErrAuthNotFound) {
		return fmt.Errorf("failed to delete auth data: %w", err)
	}
	return nil
}
