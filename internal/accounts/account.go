// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package accounts

import (
	"context"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Username validation constraints.
const (
	MaxUsernameLength = 150
	MaxNameLength     = 150
	MaxRoleLength     = 50
)

// usernameRegex accepts Unicode letters, combining marks, digits and the
// characters @ . + - _
var usernameRegex = regexp.MustCompile(`^[\p{L}\p{M}\p{N}_.@+-]+$`)

// Account represents a user account.
type Account struct {
	ID           ulid.ULID
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string `json:"-"`
	Role         string
	Groups       []string
	Active       bool
	FirstLogin   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewAccount creates a validated Account with a fresh ID.
// The account starts active and flagged for a first-login password change.
// Groups are trimmed, de-duplicated and sorted.
func NewAccount(username, email, firstName, lastName, role, passwordHash string, groups []string) (*Account, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := validation.Validate(email, validation.Required, is.Email); err != nil {
		return nil, oops.Code(CodeValidation).With("field", "email").Wrap(err)
	}
	if passwordHash == "" {
		return nil, oops.Code(CodeValidation).With("field", "password").Errorf("password hash cannot be empty")
	}

	now := time.Now().UTC()
	return &Account{
		ID:           ulid.Make(),
		Username:     username,
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: passwordHash,
		Role:         role,
		Groups:       NormalizeGroups(groups),
		Active:       true,
		FirstLogin:   true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Profile returns the public projection of the account.
func (a *Account) Profile() Profile {
	groups := a.Groups
	if groups == nil {
		groups = []string{}
	}
	return Profile{
		ID:        a.ID.String(),
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Username:  a.Username,
		Email:     a.Email,
		Role:      a.Role,
		Groups:    slices.Clone(groups),
		CreatedAt: a.CreatedAt,
	}
}

// Identity returns the token identity for the account.
func (a *Account) Identity() Identity {
	return Identity{
		AccountID: a.ID,
		Username:  a.Username,
		Role:      a.Role,
	}
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	c := *a
	c.Groups = slices.Clone(a.Groups)
	return &c
}

// Profile is the public projection of an account. It never carries credentials.
type Profile struct {
	ID        string    `json:"userId"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Username  string    `json:"userName"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Groups    []string  `json:"group"`
	CreatedAt time.Time `json:"date_joined"`
}

// ValidateUsername validates a username against rules.
// Username requirements:
// - Length: 1 to MaxUsernameLength characters (runes, not bytes)
// - Only letters, digits and @ . + - _
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code(CodeValidation).With("field", "userName").Errorf("username cannot be empty")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return oops.Code(CodeValidation).
			With("field", "userName").
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return oops.Code(CodeValidation).
			With("field", "userName").
			Errorf("username may contain only letters, digits and @/./+/-/_")
	}
	return nil
}

// NormalizeGroups trims group names, drops blanks and duplicates, and sorts the result.
func NormalizeGroups(groups []string) []string {
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		g = strings.TrimSpace(g)
		if g == "" || slices.Contains(out, g) {
			continue
		}
		out = append(out, g)
	}
	slices.Sort(out)
	return out
}

// Repository manages account persistence.
// Lookups compare usernames and emails with case-sensitive exact match.
type Repository interface {
	// Create stores a new account and attaches its groups, creating groups
	// that do not exist yet. Either everything is stored or nothing is.
	// Returns ErrEmailTaken or ErrUsernameTaken on uniqueness violations.
	Create(ctx context.Context, account *Account) error

	// GetByID retrieves an account by ID.
	// Returns ErrNotFound if no account has the given ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// GetByUsername retrieves an account by username.
	// Returns ErrNotFound if no account has the given username.
	GetByUsername(ctx context.Context, username string) (*Account, error)

	// GetByEmail retrieves an account by email.
	// Returns ErrNotFound if no account has the given email.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// Update atomically loads the account, applies mutate and persists the
	// result. If mutate returns an error nothing is written and that error is
	// returned unchanged. Returns ErrNotFound if the account does not exist.
	Update(ctx context.Context, id ulid.ULID, mutate func(*Account) error) (*Account, error)

	// List returns every account ordered by creation time.
	List(ctx context.Context) ([]*Account, error)
}
