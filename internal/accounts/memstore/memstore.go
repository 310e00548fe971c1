// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

// Package memstore provides an in-memory accounts.Repository for tests and
// local development.
package memstore

import (
	"context"
	"slices"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/accountd/accountd/internal/accounts"
)

// Store is an in-memory accounts.Repository. It is safe for concurrent use.
// Stored accounts are copied on the way in and out.
type Store struct {
	mu     sync.Mutex
	byID   map[ulid.ULID]*accounts.Account
	order  []ulid.ULID
	groups map[string]struct{}
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		byID:   make(map[ulid.ULID]*accounts.Account),
		groups: make(map[string]struct{}),
	}
}

// Create stores a copy of account and registers its groups.
func (s *Store) Create(ctx context.Context, account *accounts.Account) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("ACCOUNT_STORE_CREATE_FAILED").Wrap(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.byID {
		if existing.Email == account.Email {
			return oops.Code("ACCOUNT_STORE_CONFLICT").
				With("email", account.Email).
				Wrap(accounts.ErrEmailTaken)
		}
		if existing.Username == account.Username {
			return oops.Code("ACCOUNT_STORE_CONFLICT").
				With("username", account.Username).
				Wrap(accounts.ErrUsernameTaken)
		}
	}
	if _, ok := s.byID[account.ID]; ok {
		return oops.Code("ACCOUNT_STORE_CONFLICT").
			With("id", account.ID.String()).
			Wrap(accounts.ErrConflict)
	}

	stored := account.Clone()
	stored.Groups = accounts.NormalizeGroups(stored.Groups)
	for _, g := range stored.Groups {
		s.groups[g] = struct{}{}
	}
	s.byID[stored.ID] = stored
	s.order = append(s.order, stored.ID)
	return nil
}

// GetByID retrieves an account by ID.
func (s *Store) GetByID(ctx context.Context, id ulid.ULID) (*accounts.Account, error) {
	return s.find(ctx, "id", id.String(), func(a *accounts.Account) bool { return a.ID == id })
}

// GetByUsername retrieves an account by username.
func (s *Store) GetByUsername(ctx context.Context, username string) (*accounts.Account, error) {
	return s.find(ctx, "username", username, func(a *accounts.Account) bool { return a.Username == username })
}

// GetByEmail retrieves an account by email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	return s.find(ctx, "email", email, func(a *accounts.Account) bool { return a.Email == email })
}

func (s *Store) find(ctx context.Context, field, value string, match func(*accounts.Account) bool) (*accounts.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.Code("ACCOUNT_STORE_GET_FAILED").Wrap(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.order {
		if a := s.byID[id]; match(a) {
			return a.Clone(), nil
		}
	}
	return nil, oops.Code("ACCOUNT_STORE_NOT_FOUND").
		With(field, value).
		Wrap(accounts.ErrNotFound)
}

// Update applies mutate to a copy of the account while holding the store
// lock and stores the copy only if mutate succeeds.
func (s *Store) Update(ctx context.Context, id ulid.ULID, mutate func(*accounts.Account) error) (*accounts.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.Code("ACCOUNT_STORE_UPDATE_FAILED").Wrap(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[id]
	if !ok {
		return nil, oops.Code("ACCOUNT_STORE_NOT_FOUND").
			With("id", id.String()).
			Wrap(accounts.ErrNotFound)
	}

	working := current.Clone()
	if err := mutate(working); err != nil {
		return nil, err
	}

	// Identity, uniqueness keys and membership are not updatable.
	working.ID = current.ID
	working.Username = current.Username
	working.Email = current.Email
	working.Groups = slices.Clone(current.Groups)
	working.CreatedAt = current.CreatedAt

	s.byID[id] = working
	return working.Clone(), nil
}

// List returns every account in creation order.
func (s *Store) List(ctx context.Context) ([]*accounts.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.Code("ACCOUNT_STORE_LIST_FAILED").Wrap(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := make([]*accounts.Account, 0, len(s.order))
	for _, id := range s.order {
		list = append(list, s.byID[id].Clone())
	}
	return list, nil
}

// Groups returns every known group name, sorted.
func (s *Store) Groups() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.groups))
	for g := range s.groups {
		names = append(names, g)
	}
	slices.Sort(names)
	return names
}

// Compile-time interface check.
var _ accounts.Repository = (*Store)(nil)
