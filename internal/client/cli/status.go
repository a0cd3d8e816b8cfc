package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/HakuMatsunoki/natours-api-typeorm/internal/client/storage"
)

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Authentication Status ===")
	c.io.Println()

	auth, err := c.store.GetAuth(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			c.io.Println("Status: Not authenticated")
			c.io.Println()
			c.io.Println("Run 'natours login' to authenticate.")
			return nil
		}
		return fmt.Errorf("failed to get auth data: %w", err)
	}

	now := c.now()
	if auth.RefreshExpired(now) {
		c.io.Println("Status: Session expired")
		c.io.Println("Run 'natours login' to authenticate.")
		return nil
	}

	c.io.Println("Status: Authenticated")
	c.io.Printf("Server:  %s\n", auth.ServerURL)
	c.io.Printf("Account: %s <%s> (%s)\n", auth.Name, auth.Email, auth.Role)
	if auth.AccessExpired(now) {
		c.io.Println("Access token expired, it will be refreshed on the next request.")
	} else {
		c.io.Printf("Access token expires in: %s\n", auth.AccessExpiresAt.Sub(now).Round(time.Second))
	}
	c.io.Printf("Session expires: %s\n", auth.RefreshExpiresAt.Local().Format(time.RFC3339))
	return nil
}
