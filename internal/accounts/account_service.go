// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package accounts

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/samber/oops"
)

// CreateAccountRequest carries the administrator-supplied account details.
type CreateAccountRequest struct {
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	UserName  string   `json:"userName"`
	Email     string   `json:"email"`
	Role      string   `json:"role"`
	Groups    []string `json:"group"`
}

// Validate checks the request fields.
func (r CreateAccountRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.RuneLength(1, MaxNameLength)),
		validation.Field(&r.LastName, validation.Required, validation.RuneLength(1, MaxNameLength)),
		validation.Field(&r.UserName, validation.Required, validation.RuneLength(1, MaxUsernameLength),
			validation.Match(usernameRegex).Error("may contain only letters, digits and @/./+/-/_")),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Role, validation.RuneLength(0, MaxRoleLength)),
		validation.Field(&r.Groups, validation.By(nonBlankGroups)),
	)
}

func nonBlankGroups(value interface{}) error {
	groups, _ := value.([]string)
	for _, g := range groups {
		if strings.TrimSpace(g) == "" {
			return errors.New("group names must not be blank")
		}
	}
	return nil
}

// AccountService provisions new accounts.
type AccountService struct {
	repo     Repository
	hasher   PasswordHasher
	notifier Notifier
	generate PasswordGenerator
	logger   *slog.Logger
}

// AccountServiceOption configures an AccountService.
type AccountServiceOption func(*AccountService)

// WithPasswordGenerator overrides the one-time password generator.
func WithPasswordGenerator(gen PasswordGenerator) AccountServiceOption {
	return func(s *AccountService) {
		if gen != nil {
			s.generate = gen
		}
	}
}

// WithAccountLogger sets the logger used by the service.
func WithAccountLogger(logger *slog.Logger) AccountServiceOption {
	return func(s *AccountService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewAccountService creates a new AccountService.
func NewAccountService(repo Repository, hasher PasswordHasher, notifier Notifier, opts ...AccountServiceOption) (*AccountService, error) {
	if repo == nil {
		return nil, oops.Errorf("account repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if notifier == nil {
		return nil, oops.Errorf("notifier is required")
	}
	s := &AccountService{
		repo:     repo,
		hasher:   hasher,
		notifier: notifier,
		generate: GenerateOneTimePassword,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateAccount creates an account with a generated one-time password and
// sends the credentials to the new account's email address.
//
// The account and its group memberships are stored in one unit of work; the
// notification is sent only after the store commits. A delivery failure is
// reported as CodeNotificationFailed and the account remains created.
func (s *AccountService) CreateAccount(ctx context.Context, requester *Requester, req CreateAccountRequest) (*Profile, error) {
	if err := requireAuthenticated(requester); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, oops.Code(CodeValidation).Wrap(err)
	}

	_, err := s.repo.GetByEmail(ctx, req.Email)
	switch {
	case err == nil:
		return nil, oops.Code(CodeDuplicateEmail).
			With("email", req.Email).
			Errorf("email is already in use")
	case !errors.Is(err, ErrNotFound):
		return nil, oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "check email").
			Wrap(err)
	}

	password, err := s.generate()
	if err != nil {
		return nil, oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "generate password").
			Wrap(err)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	account, err := NewAccount(req.UserName, req.Email, req.FirstName, req.LastName, req.Role, hash, req.Groups)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, account); err != nil {
		switch {
		case errors.Is(err, ErrEmailTaken):
			return nil, oops.Code(CodeDuplicateEmail).
				With("email", req.Email).
				Errorf("email is already in use")
		case errors.Is(err, ErrUsernameTaken):
			return nil, oops.Code(CodeDuplicateUsername).
				With("username", req.UserName).
				Errorf("username is already in use")
		default:
			return nil, oops.Code("ACCOUNT_CREATE_FAILED").
				With("operation", "create account").
				Wrap(err)
		}
	}

	s.logger.InfoContext(ctx, "account created",
		"account_id", account.ID.String(),
		"username", account.Username,
		"groups", account.Groups,
		"created_by", requester.Username)

	if err := s.notifier.Send(ctx, CredentialsNotification(NotificationAccountCreated, account, password)); err != nil {
		return nil, oops.Code(CodeNotificationFailed).
			With("operation", "send credentials").
			With("account_id", account.ID.String()).
			With("reason", err.Error()).
			Errorf("account created but credentials could not be delivered")
	}

	profile := account.Profile()
	return &profile, nil
}
