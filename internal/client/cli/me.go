package cli

import (
	"context"
	"text/tabwriter"
	"time"
)

func (c *Cli) runMe(ctx context.Context) error {
	auth, err := c.session(ctx)
	if err != nil {
		return err
	}

	resp, err := c.apiClient.Me(ctx, auth.AccessToken)
	if err != nil {
		return err
	}

	u := resp.User
	c.io.Printf("ID:      %s\n", u.ID)
	c.io.Printf("Name:    %s\n", u.Name)
	c.io.Printf("Email:   %s\n", u.Email)
	c.io.Printf("Role:    %s\n", u.Role)
	c.io.Printf("Created: %s\n", u.CreatedAt.Local().Format(time.RFC3339))
	if u.PasswordChangedAt != nil {
		c.io.Printf("Password changed: %s\n", u.PasswordChangedAt.Local().Format(time.RFC3339))
	}
	return nil
}

func (c *Cli) runSessions(ctx context.Context) error {
	auth, err := c.session(ctx)
	if err != nil {
		return err
	}

	resp, err := c.apiClient.Sessions(ctx, auth.AccessToken)
	if err != nil {
		return err
	}

	c.io.Printf("Active sessions: %d\n\n", resp.Results)

	w := tabwriter.NewWriter(c.io, 0, 0, 2, ' ', 0)
	_, _ = w.Write([]byte("ID\tCREATED\tEXPIRES\t\n"))
	for _, s := range resp.Sessions {
		marker := ""
		if s.Current {
			marker = "(this device)"
		}
		_, _ = w.Write([]byte(s.ID + "\t" +
			s.CreatedAt.Local().Format(time.DateTime) + "\t" +
			s.ExpiresAt.Local().Format(time.DateTime) + "\t" + marker + "\n"))
	}
	return w.Flush()
}
