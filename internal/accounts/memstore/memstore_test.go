// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package memstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accountd/accountd/internal/accounts"
	"github.com/accountd/accountd/internal/accounts/memstore"
)

func newAccount(t *testing.T, username, email string, groups ...string) *accounts.Account {
	t.Helper()
	a, err := accounts.NewAccount(username, email, "First", "Last", "", "hash", groups)
	require.NoError(t, err)
	return a
}

func TestStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	a := newAccount(t, "alice", "a@x.com", "staff", "ops")
	require.NoError(t, s.Create(ctx, a))

	byID, err := s.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Username, byID.Username)

	byName, err := s.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, a.ID, byName.ID)

	byEmail, err := s.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, a.ID, byEmail.ID)
	assert.Equal(t, []string{"ops", "staff"}, byEmail.Groups)
	assert.Equal(t, []string{"ops", "staff"}, s.Groups())

	t.Run("returned accounts are copies", func(t *testing.T) {
		byID.Active = false
		byID.Groups[0] = "mutated"
		again, err := s.GetByID(ctx, a.ID)
		require.NoError(t, err)
		assert.True(t, again.Active)
		assert.Equal(t, []string{"ops", "staff"}, again.Groups)
	})

	t.Run("lookups are exact", func(t *testing.T) {
		_, err := s.GetByUsername(ctx, "Alice")
		assert.ErrorIs(t, err, accounts.ErrNotFound)
		_, err = s.GetByEmail(ctx, "A@X.COM")
		assert.ErrorIs(t, err, accounts.ErrNotFound)
		_, err = s.GetByID(ctx, ulid.Make())
		assert.ErrorIs(t, err, accounts.ErrNotFound)
	})
}

func TestStore_CreateConflicts(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	require.NoError(t, s.Create(ctx, newAccount(t, "alice", "a@x.com")))

	err := s.Create(ctx, newAccount(t, "bob", "a@x.com"))
	assert.ErrorIs(t, err, accounts.ErrEmailTaken)
	assert.ErrorIs(t, err, accounts.ErrConflict)

	err = s.Create(ctx, newAccount(t, "alice", "b@x.com"))
	assert.ErrorIs(t, err, accounts.ErrUsernameTaken)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestStore_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("applies mutation", func(t *testing.T) {
		s := memstore.New()
		a := newAccount(t, "alice", "a@x.com")
		require.NoError(t, s.Create(ctx, a))

		updated, err := s.Update(ctx, a.ID, func(acc *accounts.Account) error {
			acc.Active = false
			acc.PasswordHash = "new"
			return nil
		})
		require.NoError(t, err)
		assert.False(t, updated.Active)

		stored, err := s.GetByID(ctx, a.ID)
		require.NoError(t, err)
		assert.False(t, stored.Active)
		assert.Equal(t, "new", stored.PasswordHash)
	})

	t.Run("mutation error discards changes", func(t *testing.T) {
		s := memstore.New()
		a := newAccount(t, "alice", "a@x.com")
		require.NoError(t, s.Create(ctx, a))

		boom := errors.New("boom")
		_, err := s.Update(ctx, a.ID, func(acc *accounts.Account) error {
			acc.PasswordHash = "changed"
			return boom
		})
		assert.Same(t, boom, err)

		stored, err := s.GetByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "hash", stored.PasswordHash)
	})

	t.Run("identity fields are not updatable", func(t *testing.T) {
		s := memstore.New()
		a := newAccount(t, "alice", "a@x.com")
		require.NoError(t, s.Create(ctx, a))

		_, err := s.Update(ctx, a.ID, func(acc *accounts.Account) error {
			acc.Username = "mallory"
			acc.Email = "m@x.com"
			return nil
		})
		require.NoError(t, err)

		_, err = s.GetByUsername(ctx, "alice")
		assert.NoError(t, err)
	})

	t.Run("unknown account", func(t *testing.T) {
		s := memstore.New()
		_, err := s.Update(ctx, ulid.Make(), func(*accounts.Account) error { return nil })
		assert.ErrorIs(t, err, accounts.ErrNotFound)
	})
}

func TestStore_ListOrder(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	for _, name := range []string{"carol", "alice", "bob"} {
		require.NoError(t, s.Create(ctx, newAccount(t, name, name+"@x.com")))
	}

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "carol", list[0].Username)
	assert.Equal(t, "alice", list[1].Username)
	assert.Equal(t, "bob", list[2].Username)
}

func TestStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := memstore.New()
	err := s.Create(ctx, newAccount(t, "alice", "a@x.com"))
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
