// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

// Package token mints and verifies HS256 JWT access and refresh tokens.
package token

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/accountd/accountd/internal/accounts"
)

// MinKeyLength is the shortest accepted HMAC signing key, in bytes.
const MinKeyLength = 32

// Default token lifetimes.
const (
	DefaultAccessTTL  = accounts.DefaultTokenLifetime
	DefaultRefreshTTL = 24 * time.Hour
	DefaultIssuer     = "accountd"
)

// Claims is the JWT payload.
type Claims struct {
	jwt.RegisteredClaims
	Username  string             `json:"username"`
	Role      string             `json:"role"`
	TokenType accounts.TokenKind `json:"token_type"`
}

// Config configures a JWTIssuer.
type Config struct {
	SigningKey []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Now overrides the clock; nil uses time.Now.
	Now func() time.Time
}

// JWTIssuer implements accounts.TokenIssuer.
type JWTIssuer struct {
	key        []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewJWTIssuer creates a JWTIssuer. Zero TTLs and issuer take the defaults.
func NewJWTIssuer(cfg Config) (*JWTIssuer, error) {
	if len(cfg.SigningKey) < MinKeyLength {
		return nil, oops.Code("TOKEN_KEY_INVALID").
			With("min_length", MinKeyLength).
			Errorf("signing key must be at least %d bytes", MinKeyLength)
	}
	i := &JWTIssuer{
		key:        append([]byte(nil), cfg.SigningKey...),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        cfg.Now,
	}
	if i.issuer == "" {
		i.issuer = DefaultIssuer
	}
	if i.accessTTL <= 0 {
		i.accessTTL = DefaultAccessTTL
	}
	if i.refreshTTL <= 0 {
		i.refreshTTL = DefaultRefreshTTL
	}
	if i.now == nil {
		i.now = time.Now
	}
	return i, nil
}

// Issue mints an access and refresh token for id.
func (i *JWTIssuer) Issue(_ context.Context, id accounts.Identity) (*accounts.IssuedToken, error) {
	now := i.now()

	access, err := i.sign(id, accounts.TokenAccess, now, i.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := i.sign(id, accounts.TokenRefresh, now, i.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &accounts.IssuedToken{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    i.accessTTL,
	}, nil
}

func (i *JWTIssuer) sign(id accounts.Identity, kind accounts.TokenKind, now time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    i.issuer,
			Subject:   id.AccountID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Username:  id.Username,
		Role:      id.Role,
		TokenType: kind,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").
			With("token_type", string(kind)).
			Wrap(err)
	}
	return signed, nil
}

// Verify parses raw, checks signature, issuer, expiry and token type, and
// returns the account ID in the subject claim.
func (i *JWTIssuer) Verify(_ context.Context, raw string, kind accounts.TokenKind) (ulid.ULID, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return i.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return ulid.ULID{}, oops.Code("TOKEN_INVALID").Wrap(err)
	}
	if claims.TokenType != kind {
		return ulid.ULID{}, oops.Code("TOKEN_WRONG_TYPE").
			With("expected", string(kind)).
			With("actual", string(claims.TokenType)).
			Errorf("token is not a %s token", kind)
	}

	id, err := ulid.Parse(claims.Subject)
	if err != nil {
		return ulid.ULID{}, oops.Code("TOKEN_INVALID").
			With("subject", claims.Subject).
			Wrap(err)
	}
	return id, nil
}

// Compile-time interface check.
var _ accounts.TokenIssuer = (*JWTIssuer)(nil)
