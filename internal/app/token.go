package app

import (
	"errors"
	"fmt"
	"io"
	"time"

	"lira-rate-alerts/internal/auth"
)

// Token mints a bearer token for local testing against the API.
func (a *App) Token(out io.Writer, opts TokenOptions) error {
	if opts.UserID <= 0 {
		return errors.New("--user must be a positive id")
	}

	cfg := a.Config.Auth
	manager, err := auth.NewManager(cfg.Secret, cfg.Issuer, cfg.TokenTTL, cfg.AdminRole)
	if err != nil {
		return err
	}

	role := opts.Role
	if role == "" {
		role = "USER"
	}
	token, expires, err := manager.Issue(auth.Identity{UserID: opts.UserID, Role: role})
	if err != nil {
		return err
	}

	fmt.Fprintln(out, token)
	a.Logger.Info().Int64("user_id", opts.UserID).Str("role", role).Str("expires", expires.Format(time.RFC3339)).Msg("token issued")
	return nil
}
