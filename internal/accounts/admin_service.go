// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package accounts

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// AdminService provides account administration.
type AdminService struct {
	repo   Repository
	logger *slog.Logger
}

// NewAdminService creates a new AdminService.
func NewAdminService(repo Repository, logger *slog.Logger) (*AdminService, error) {
	if repo == nil {
		return nil, oops.Errorf("account repository is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &AdminService{repo: repo, logger: logger}, nil
}

// ListAccounts returns the profile of every account ordered by creation time.
func (s *AdminService) ListAccounts(ctx context.Context, requester *Requester) ([]Profile, error) {
	if err := requireAuthenticated(requester); err != nil {
		return nil, err
	}

	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, oops.Code("ACCOUNT_LIST_FAILED").
			With("operation", "list accounts").
			Wrap(err)
	}

	profiles := make([]Profile, 0, len(list))
	for _, a := range list {
		profiles = append(profiles, a.Profile())
	}
	return profiles, nil
}

// LockAccount deactivates an account. Locking a locked account succeeds.
// There is no unlock operation.
func (s *AdminService) LockAccount(ctx context.Context, requester *Requester, accountID string) error {
	if err := requireAuthenticated(requester); err != nil {
		return err
	}
	id, err := parseAccountID(accountID)
	if err != nil {
		return err
	}

	_, err = s.repo.Update(ctx, id, func(a *Account) error {
		if a.Active {
			a.Active = false
			a.UpdatedAt = time.Now().UTC()
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return accountNotFound(id)
		}
		return oops.Code("ACCOUNT_LOCK_FAILED").
			With("operation", "lock account").
			With("account_id", id.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "account locked",
		"account_id", id.String(),
		"locked_by", requester.Username)
	return nil
}
