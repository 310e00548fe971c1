// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package accounts

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// CredentialService manages the password lifecycle: administrator resets and
// the first-login password change.
type CredentialService struct {
	repo     Repository
	hasher   PasswordHasher
	notifier Notifier
	generate PasswordGenerator
	logger   *slog.Logger
}

// NewCredentialService creates a new CredentialService using the default logger.
func NewCredentialService(repo Repository, hasher PasswordHasher, notifier Notifier) (*CredentialService, error) {
	return NewCredentialServiceWithLogger(repo, hasher, notifier, slog.Default())
}

// NewCredentialServiceWithLogger creates a new CredentialService with a custom logger.
func NewCredentialServiceWithLogger(repo Repository, hasher PasswordHasher, notifier Notifier, logger *slog.Logger) (*CredentialService, error) {
	if repo == nil {
		return nil, oops.Errorf("account repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if notifier == nil {
		return nil, oops.Errorf("notifier is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &CredentialService{
		repo:     repo,
		hasher:   hasher,
		notifier: notifier,
		generate: GenerateOneTimePassword,
		logger:   logger,
	}, nil
}

// SetPasswordGenerator overrides the one-time password generator.
func (s *CredentialService) SetPasswordGenerator(gen PasswordGenerator) {
	if gen != nil {
		s.generate = gen
	}
}

// parseAccountID converts an external identifier. Unparsable identifiers
// cannot name an account, so they are reported as not found.
func parseAccountID(raw string) (ulid.ULID, error) {
	id, err := ulid.Parse(raw)
	if err != nil {
		return ulid.ULID{}, oops.Code(CodeNotFound).
			With("account_id", raw).
			Errorf("account not found")
	}
	return id, nil
}

func accountNotFound(id ulid.ULID) error {
	return oops.Code(CodeNotFound).
		With("account_id", id.String()).
		Errorf("account not found")
}

// ResetPassword replaces the account's credential with a new one-time
// password, flags the account for a first-login change and mails the new
// password to the account holder.
func (s *CredentialService) ResetPassword(ctx context.Context, requester *Requester, accountID string) error {
	if err := requireAuthenticated(requester); err != nil {
		return err
	}
	id, err := parseAccountID(accountID)
	if err != nil {
		return err
	}

	password, err := s.generate()
	if err != nil {
		return oops.Code("ACCOUNT_RESET_FAILED").
			With("operation", "generate password").
			Wrap(err)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return oops.Code("ACCOUNT_RESET_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	account, err := s.repo.Update(ctx, id, func(a *Account) error {
		a.PasswordHash = hash
		a.FirstLogin = true
		a.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return accountNotFound(id)
		}
		return oops.Code("ACCOUNT_RESET_FAILED").
			With("operation", "update credential").
			With("account_id", id.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "password reset",
		"account_id", id.String(),
		"reset_by", requester.Username)

	if err := s.notifier.Send(ctx, CredentialsNotification(NotificationPasswordReset, account, password)); err != nil {
		return oops.Code(CodeNotificationFailed).
			With("operation", "send credentials").
			With("account_id", id.String()).
			With("reason", err.Error()).
			Errorf("password reset but credentials could not be delivered")
	}
	return nil
}

// CompleteFirstLogin replaces the temporary credential with newPassword.
// The temporary password is checked against the stored hash inside the
// store's atomic update; on mismatch the stored credential is untouched.
func (s *CredentialService) CompleteFirstLogin(ctx context.Context, accountID, temporaryPassword, newPassword string) error {
	if accountID == "" {
		return oops.Code(CodeValidation).
			With("field", "userId").
			Errorf("user id is required")
	}
	if temporaryPassword == "" {
		return oops.Code(CodeValidation).
			With("field", "temporaryPassword").
			Errorf("temporary password is required")
	}
	if newPassword == "" {
		return oops.Code(CodeValidation).
			With("field", "newPassword").
			Errorf("new password cannot be empty")
	}
	id, err := parseAccountID(accountID)
	if err != nil {
		return err
	}

	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("ACCOUNT_SET_PASSWORD_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	var rejected error
	_, err = s.repo.Update(ctx, id, func(a *Account) error {
		valid, verifyErr := s.hasher.Verify(temporaryPassword, a.PasswordHash)
		if verifyErr != nil {
			rejected = oops.Code("ACCOUNT_SET_PASSWORD_FAILED").
				With("operation", "verify temporary password").
				With("account_id", id.String()).
				Wrap(verifyErr)
			return rejected
		}
		if !valid {
			rejected = oops.Code(CodeInvalidTemporaryCredential).
				With("account_id", id.String()).
				Errorf("temporary password is incorrect")
			return rejected
		}
		a.PasswordHash = newHash
		a.FirstLogin = false
		a.UpdatedAt = time.Now().UTC()
		return nil
	})
	if rejected != nil {
		return rejected
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return accountNotFound(id)
		}
		return oops.Code("ACCOUNT_SET_PASSWORD_FAILED").
			With("operation", "update credential").
			With("account_id", id.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "first login completed", "account_id", id.String())
	return nil
}
