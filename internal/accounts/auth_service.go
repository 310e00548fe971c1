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

// AuthService authenticates credentials and bearer tokens.
type AuthService struct {
	repo   Repository
	hasher PasswordHasher
	tokens TokenIssuer
	logger *slog.Logger
}

// SignInResult is returned by a successful sign-in or token refresh.
type SignInResult struct {
	Profile      Profile
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	FirstLogin   bool
}

// NewAuthService creates a new AuthService using the default logger.
func NewAuthService(repo Repository, hasher PasswordHasher, tokens TokenIssuer) (*AuthService, error) {
	return NewAuthServiceWithLogger(repo, hasher, tokens, slog.Default())
}

// NewAuthServiceWithLogger creates a new AuthService with a custom logger.
func NewAuthServiceWithLogger(repo Repository, hasher PasswordHasher, tokens TokenIssuer, logger *slog.Logger) (*AuthService, error) {
	if repo == nil {
		return nil, oops.Errorf("account repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token issuer is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &AuthService{repo: repo, hasher: hasher, tokens: tokens, logger: logger}, nil
}

// dummyPasswordHash is verified when no account matches so that response time
// does not reveal whether an identifier exists. It never matches any password.
//
//nolint:gosec // G101: intentionally fake hash, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

func invalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Errorf("invalid credentials")
}

// SignIn authenticates identifier as a username and, failing that, as an
// email address. Unknown identifiers, wrong passwords and locked accounts all
// produce the same CodeInvalidCredentials error. SignIn does not modify state.
func (s *AuthService) SignIn(ctx context.Context, identifier, password string) (*SignInResult, error) {
	if identifier == "" || password == "" {
		return nil, oops.Code(CodeValidation).Errorf("email/username and password are required")
	}

	account, err := s.checkCredentials(ctx, s.repo.GetByUsername, identifier, password)
	if err != nil {
		return nil, err
	}
	if account == nil {
		account, err = s.checkCredentials(ctx, s.repo.GetByEmail, identifier, password)
		if err != nil {
			return nil, err
		}
	}
	if account == nil {
		return nil, invalidCredentials()
	}

	return s.issue(ctx, account)
}

// checkCredentials looks the account up with lookup and verifies password.
// It returns (nil, nil) when the credentials do not authenticate.
func (s *AuthService) checkCredentials(
	ctx context.Context,
	lookup func(context.Context, string) (*Account, error),
	key, password string,
) (*Account, error) {
	account, err := lookup(ctx, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("AUTH_SIGN_IN_FAILED").
			With("operation", "lookup account").
			Wrap(err)
	}

	targetHash := dummyPasswordHash
	if account != nil {
		targetHash = account.PasswordHash
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if account == nil {
		return nil, nil
	}
	if verifyErr != nil {
		return nil, oops.Code("AUTH_SIGN_IN_FAILED").
			With("operation", "verify password").
			With("account_id", account.ID.String()).
			Wrap(verifyErr)
	}
	if !valid || !account.Active {
		return nil, nil
	}
	return account, nil
}

// Authenticate resolves a bearer access token to the Requester it identifies.
// Missing, invalid or expired tokens and locked or deleted accounts fail
// with CodeUnauthenticated.
func (s *AuthService) Authenticate(ctx context.Context, bearer string) (*Requester, error) {
	if bearer == "" {
		return nil, oops.Code(CodeUnauthenticated).Errorf("authentication required")
	}

	id, err := s.tokens.Verify(ctx, bearer, TokenAccess)
	if err != nil {
		return nil, oops.Code(CodeUnauthenticated).
			With("reason", err.Error()).
			Errorf("invalid token")
	}

	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeUnauthenticated).Errorf("invalid token")
		}
		return nil, oops.Code("AUTH_AUTHENTICATE_FAILED").
			With("operation", "get account by id").
			With("account_id", id.String()).
			Wrap(err)
	}
	if !account.Active {
		return nil, oops.Code(CodeUnauthenticated).Errorf("account is locked")
	}

	return &Requester{AccountID: account.ID, Username: account.Username, Role: account.Role}, nil
}

// Refresh exchanges a refresh token for a new token pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*SignInResult, error) {
	if refreshToken == "" {
		return nil, oops.Code(CodeValidation).Errorf("refresh token is required")
	}

	id, err := s.tokens.Verify(ctx, refreshToken, TokenRefresh)
	if err != nil {
		return nil, oops.Code(CodeUnauthenticated).
			With("reason", err.Error()).
			Errorf("invalid refresh token")
	}

	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeUnauthenticated).Errorf("invalid refresh token")
		}
		return nil, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "get account by id").
			With("account_id", id.String()).
			Wrap(err)
	}
	if !account.Active {
		return nil, oops.Code(CodeUnauthenticated).Errorf("account is locked")
	}

	return s.issue(ctx, account)
}

func (s *AuthService) issue(ctx context.Context, account *Account) (*SignInResult, error) {
	issued, err := s.tokens.Issue(ctx, account.Identity())
	if err != nil {
		return nil, oops.Code("AUTH_TOKEN_ISSUE_FAILED").
			With("operation", "issue token").
			With("account_id", account.ID.String()).
			Wrap(err)
	}

	expiresIn := issued.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = DefaultTokenLifetime
	}

	s.logger.DebugContext(ctx, "tokens issued",
		"account_id", account.ID.String(),
		"first_login", account.FirstLogin)

	return &SignInResult{
		Profile:      account.Profile(),
		AccessToken:  issued.AccessToken,
		RefreshToken: issued.RefreshToken,
		ExpiresIn:    expiresIn,
		FirstLogin:   account.FirstLogin,
	}, nil
}
