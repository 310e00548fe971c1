// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package main

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/accountd/accountd/internal/accounts"
	"github.com/accountd/accountd/internal/config"
	"github.com/accountd/accountd/internal/httpapi"
	"github.com/accountd/accountd/internal/notify"
	"github.com/accountd/accountd/internal/observability"
	"github.com/accountd/accountd/internal/token"
)

// app holds the wired services.
type app struct {
	auth        *accounts.AuthService
	accounts    *accounts.AccountService
	credentials *accounts.CredentialService
	admin       *accounts.AdminService
}

// newNotifier builds the configured notification driver, counted in
// metrics when metrics is non-nil. The console driver writes to console.
func newNotifier(cfg config.MailConfig, console io.Writer, metrics *observability.Metrics, logger *slog.Logger) (accounts.Notifier, error) {
	var (
		n   accounts.Notifier
		err error
	)
	switch cfg.Driver {
	case config.MailDriverSMTP:
		n, err = notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     cfg.Host,
			Port:     cfg.Port,
			Username: cfg.Username,
			Password: cfg.Password,
			From:     cfg.From,
			TLS:      cfg.TLS,
		}, logger)
	case config.MailDriverConsole, "":
		n, err = notify.NewConsoleNotifier(console, cfg.From, logger)
	default:
		return nil, oops.Code("CONFIG_INVALID").With("driver", cfg.Driver).Errorf("unknown mail driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return notify.WithMetrics(n, metrics), nil
}

// newApp wires the account services over repo. tokens may be nil for
// commands that never authenticate.
func newApp(repo accounts.Repository, notifier accounts.Notifier, tokens accounts.TokenIssuer, logger *slog.Logger) (*app, error) {
	hasher := accounts.NewArgon2idHasher()

	a := &app{}
	var err error
	if tokens != nil {
		if a.auth, err = accounts.NewAuthServiceWithLogger(repo, hasher, tokens, logger); err != nil {
			return nil, err
		}
	}
	if a.accounts, err = accounts.NewAccountService(repo, hasher, notifier, accounts.WithAccountLogger(logger)); err != nil {
		return nil, err
	}
	if a.credentials, err = accounts.NewCredentialServiceWithLogger(repo, hasher, notifier, logger); err != nil {
		return nil, err
	}
	if a.admin, err = accounts.NewAdminService(repo, logger); err != nil {
		return nil, err
	}
	return a, nil
}

// newTokenIssuer builds the JWT issuer from configuration.
func newTokenIssuer(cfg *config.Config) (*token.JWTIssuer, error) {
	//nolint:wrapcheck // issuer errors carry their own codes
	return token.NewJWTIssuer(token.Config{
		SigningKey: []byte(cfg.Token.SigningKey),
		Issuer:     cfg.Token.Issuer,
		AccessTTL:  cfg.AccessTTL(),
		RefreshTTL: cfg.RefreshTTL(),
	})
}

// router builds the API handler.
func (a *app) router(publicRoutes []string, metrics *observability.Metrics, logger *slog.Logger) (http.Handler, error) {
	if a.auth == nil {
		return nil, oops.Errorf("token issuer is required to serve the API")
	}
	//nolint:wrapcheck // router errors carry their own codes
	return httpapi.NewRouter(httpapi.Deps{
		Auth:         a.auth,
		Accounts:     a.accounts,
		Credentials:  a.credentials,
		Admin:        a.admin,
		PublicRoutes: publicRoutes,
		Metrics:      metrics,
		Logger:       logger,
	})
}
