// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package accounts_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"

	"github.com/accountd/accountd/internal/accounts"
	"github.com/accountd/accountd/internal/accounts/memstore"
)

// fastHasher keeps argon2id cheap enough for unit tests.
func fastHasher() *accounts.Argon2idHasher {
	return accounts.NewArgon2idHasherWithParams(accounts.Argon2Params{
		Time:    1,
		Memory:  8 * 1024,
		Threads: 1,
	})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingNotifier stores every notification it is asked to send.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []accounts.Notification
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, msg accounts.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) last(t *testing.T) accounts.Notification {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.sent, "expected a notification")
	return n.sent[len(n.sent)-1]
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

var passwordLine = regexp.MustCompile(`(?m)^Password: (\S+)$`)

// passwordFrom extracts the one-time password from a credentials notification.
func passwordFrom(t *testing.T, n accounts.Notification) string {
	t.Helper()
	m := passwordLine.FindStringSubmatch(n.Body)
	require.Len(t, m, 2, "notification body has no password line: %q", n.Body)
	return m[1]
}

// stubTokens issues opaque tokens of the form "<kind>:<account id>".
type stubTokens struct{}

func (stubTokens) Issue(_ context.Context, id accounts.Identity) (*accounts.IssuedToken, error) {
	return &accounts.IssuedToken{
		AccessToken:  string(accounts.TokenAccess) + ":" + id.AccountID.String(),
		RefreshToken: string(accounts.TokenRefresh) + ":" + id.AccountID.String(),
		ExpiresIn:    accounts.DefaultTokenLifetime,
	}, nil
}

func (stubTokens) Verify(_ context.Context, raw string, kind accounts.TokenKind) (ulid.ULID, error) {
	prefix := string(kind) + ":"
	if !strings.HasPrefix(raw, prefix) {
		return ulid.ULID{}, errors.New("wrong token kind")
	}
	return ulid.Parse(strings.TrimPrefix(raw, prefix))
}

// harness wires every service against one in-memory store.
type harness struct {
	store       *memstore.Store
	notifier    *recordingNotifier
	auth        *accounts.AuthService
	accounts    *accounts.AccountService
	credentials *accounts.CredentialService
	admin       *accounts.AdminService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := memstore.New()
	notifier := &recordingNotifier{}
	hasher := fastHasher()
	logger := discardLogger()

	authSvc, err := accounts.NewAuthServiceWithLogger(store, hasher, stubTokens{}, logger)
	require.NoError(t, err)
	accountSvc, err := accounts.NewAccountService(store, hasher, notifier, accounts.WithAccountLogger(logger))
	require.NoError(t, err)
	credSvc, err := accounts.NewCredentialServiceWithLogger(store, hasher, notifier, logger)
	require.NoError(t, err)
	adminSvc, err := accounts.NewAdminService(store, logger)
	require.NoError(t, err)

	return &harness{
		store:       store,
		notifier:    notifier,
		auth:        authSvc,
		accounts:    accountSvc,
		credentials: credSvc,
		admin:       adminSvc,
	}
}

func adminRequester() *accounts.Requester {
	return &accounts.Requester{AccountID: ulid.Make(), Username: "admin", Role: "admin"}
}

// create provisions an account and returns its profile and one-time password.
func (h *harness) create(t *testing.T, username, email string, groups ...string) (*accounts.Profile, string) {
	t.Helper()
	profile, err := h.accounts.CreateAccount(context.Background(), adminRequester(), accounts.CreateAccountRequest{
		FirstName: "Test",
		LastName:  "User",
		UserName:  username,
		Email:     email,
		Role:      "staff",
		Groups:    groups,
	})
	require.NoError(t, err)
	return profile, passwordFrom(t, h.notifier.last(t))
}
