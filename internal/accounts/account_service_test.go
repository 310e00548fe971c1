// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package accounts_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/accountd/accountd/internal/accounts"
	"github.com/accountd/accountd/internal/accounts/mocks"
	"github.com/accountd/accountd/pkg/errutil"
)

func validCreateRequest() accounts.CreateAccountRequest {
	return accounts.CreateAccountRequest{
		FirstName: "Alice",
		LastName:  "Smith",
		UserName:  "alice",
		Email:     "a@x.com",
		Role:      "staff",
		Groups:    []string{"staff"},
	}
}

func TestNewAccountService_NilDependencies(t *testing.T) {
	_, err := accounts.NewAccountService(nil, fastHasher(), &recordingNotifier{})
	assert.ErrorContains(t, err, "account repository is required")
	_, err = accounts.NewAccountService(mocks.NewMockRepository(t), nil, &recordingNotifier{})
	assert.ErrorContains(t, err, "password hasher is required")
	_, err = accounts.NewAccountService(mocks.NewMockRepository(t), fastHasher(), nil)
	assert.ErrorContains(t, err, "notifier is required")
}

func TestCreateAccountRequest_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*accounts.CreateAccountRequest)
		field  string
	}{
		{"missing first name", func(r *accounts.CreateAccountRequest) { r.FirstName = "" }, "firstName"},
		{"missing last name", func(r *accounts.CreateAccountRequest) { r.LastName = "" }, "lastName"},
		{"missing username", func(r *accounts.CreateAccountRequest) { r.UserName = "" }, "userName"},
		{"username with space", func(r *accounts.CreateAccountRequest) { r.UserName = "al ice" }, "userName"},
		{"missing email", func(r *accounts.CreateAccountRequest) { r.Email = "" }, "email"},
		{"malformed email", func(r *accounts.CreateAccountRequest) { r.Email = "alice" }, "email"},
		{"blank group", func(r *accounts.CreateAccountRequest) { r.Groups = []string{"staff", " "} }, "group"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			tt.modify(&req)
			err := req.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}

	t.Run("valid request", func(t *testing.T) {
		assert.NoError(t, validCreateRequest().Validate())
	})

	t.Run("unicode username", func(t *testing.T) {
		req := validCreateRequest()
		req.UserName = "zoë.müller"
		req.FirstName = strings.Repeat("é", accounts.MaxNameLength)
		assert.NoError(t, req.Validate())
	})

	t.Run("role and groups are optional", func(t *testing.T) {
		req := validCreateRequest()
		req.Role = ""
		req.Groups = nil
		assert.NoError(t, req.Validate())
	})
}

func TestAccountService_CreateAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("creates account with groups and sends credentials", func(t *testing.T) {
		h := newHarness(t)

		profile, err := h.accounts.CreateAccount(ctx, adminRequester(), validCreateRequest())
		require.NoError(t, err)
		assert.Equal(t, "alice", profile.Username)
		assert.Equal(t, []string{"staff"}, profile.Groups)

		stored, err := h.store.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, stored.FirstLogin)
		assert.True(t, stored.Active)
		assert.Equal(t, "staff", stored.Role)
		assert.Equal(t, []string{"staff"}, h.store.Groups())

		n := h.notifier.last(t)
		assert.Equal(t, accounts.NotificationAccountCreated, n.Kind)
		assert.Equal(t, "a@x.com", n.To)
		password := passwordFrom(t, n)
		assert.Len(t, password, accounts.OneTimePasswordLength)
		assert.NotContains(t, stored.PasswordHash, password)

		ok, err := fastHasher().Verify(password, stored.PasswordHash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("duplicate email fails regardless of username", func(t *testing.T) {
		h := newHarness(t)
		h.create(t, "alice", "a@x.com")

		req := validCreateRequest()
		req.UserName = "someone-else"
		_, err := h.accounts.CreateAccount(ctx, adminRequester(), req)
		errutil.AssertErrorCode(t, err, accounts.CodeDuplicateEmail)
		assert.Equal(t, 1, h.notifier.count())
	})

	t.Run("duplicate username fails", func(t *testing.T) {
		h := newHarness(t)
		h.create(t, "alice", "a@x.com")

		req := validCreateRequest()
		req.Email = "other@x.com"
		_, err := h.accounts.CreateAccount(ctx, adminRequester(), req)
		errutil.AssertErrorCode(t, err, accounts.CodeDuplicateUsername)

		list, err := h.store.List(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("invalid request is a validation error", func(t *testing.T) {
		h := newHarness(t)
		req := validCreateRequest()
		req.Email = "nope"
		_, err := h.accounts.CreateAccount(ctx, adminRequester(), req)
		errutil.AssertErrorCode(t, err, accounts.CodeValidation)
		assert.Equal(t, 0, h.notifier.count())
	})

	t.Run("store failure sends nothing", func(t *testing.T) {
		repo := mocks.NewMockRepository(t)
		notifier := mocks.NewMockNotifier(t)
		svc, err := accounts.NewAccountService(repo, fastHasher(), notifier)
		require.NoError(t, err)

		repo.On("GetByEmail", ctx, "a@x.com").Return(nil, accounts.ErrNotFound)
		repo.On("Create", ctx, mock.AnythingOfType("*accounts.Account")).Return(errors.New("disk full"))

		_, err = svc.CreateAccount(ctx, adminRequester(), validCreateRequest())
		errutil.AssertErrorCode(t, err, "ACCOUNT_CREATE_FAILED")
		notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("email check failure", func(t *testing.T) {
		repo := mocks.NewMockRepository(t)
		svc, err := accounts.NewAccountService(repo, fastHasher(), mocks.NewMockNotifier(t))
		require.NoError(t, err)

		repo.On("GetByEmail", ctx, "a@x.com").Return(nil, errors.New("timeout"))

		_, err = svc.CreateAccount(ctx, adminRequester(), validCreateRequest())
		errutil.AssertErrorCode(t, err, "ACCOUNT_CREATE_FAILED")
		errutil.AssertErrorContext(t, err, "operation", "check email")
	})

	t.Run("notification failure is reported after commit", func(t *testing.T) {
		h := newHarness(t)
		h.notifier.err = errors.New("smtp unavailable")

		_, err := h.accounts.CreateAccount(ctx, adminRequester(), validCreateRequest())
		errutil.AssertErrorCode(t, err, accounts.CodeNotificationFailed)

		stored, getErr := h.store.GetByUsername(ctx, "alice")
		require.NoError(t, getErr)
		errutil.AssertErrorContext(t, err, "account_id", stored.ID.String())
	})

	t.Run("custom password generator", func(t *testing.T) {
		store := newHarness(t).store
		notifier := &recordingNotifier{}
		svc, err := accounts.NewAccountService(store, fastHasher(), notifier,
			accounts.WithPasswordGenerator(func() (string, error) { return "Fixed1234567", nil }))
		require.NoError(t, err)

		_, err = svc.CreateAccount(ctx, adminRequester(), validCreateRequest())
		require.NoError(t, err)
		assert.Equal(t, "Fixed1234567", passwordFrom(t, notifier.last(t)))
	})

	t.Run("generator failure", func(t *testing.T) {
		repo := mocks.NewMockRepository(t)
		svc, err := accounts.NewAccountService(repo, fastHasher(), mocks.NewMockNotifier(t),
			accounts.WithPasswordGenerator(func() (string, error) { return "", errors.New("entropy exhausted") }))
		require.NoError(t, err)

		repo.On("GetByEmail", ctx, "a@x.com").Return(nil, accounts.ErrNotFound)

		_, err = svc.CreateAccount(ctx, adminRequester(), validCreateRequest())
		errutil.AssertErrorCode(t, err, "ACCOUNT_CREATE_FAILED")
	})
}
