// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package accounts

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// TokenKind distinguishes access tokens from refresh tokens.
type TokenKind string

// Token kinds.
const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

// DefaultTokenLifetime is the access token lifetime reported to clients.
const DefaultTokenLifetime = time.Hour

// Identity is the subject a token is minted for.
type Identity struct {
	AccountID ulid.ULID
	Username  string
	Role      string
}

// IssuedToken is a freshly minted access/refresh pair.
type IssuedToken struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// TokenIssuer mints and verifies bearer tokens.
type TokenIssuer interface {
	// Issue mints an access and refresh token for the identity.
	Issue(ctx context.Context, id Identity) (*IssuedToken, error)

	// Verify checks a raw token of the given kind and returns the account it
	// was issued to. Any failure (signature, expiry, wrong kind) is an error.
	Verify(ctx context.Context, raw string, kind TokenKind) (ulid.ULID, error)
}
