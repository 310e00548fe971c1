// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package accounts

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a uniqueness constraint.
var ErrConflict = errors.New("conflict")

// Uniqueness violations reported by repositories. Both wrap ErrConflict.
var (
	ErrEmailTaken    = fmt.Errorf("email already in use: %w", ErrConflict)
	ErrUsernameTaken = fmt.Errorf("username already in use: %w", ErrConflict)
)

// Error codes surfaced by the services. Transports map these to status classes.
const (
	CodeValidation                 = "ACCOUNT_VALIDATION_FAILED"
	CodeDuplicateEmail             = "ACCOUNT_DUPLICATE_EMAIL"
	CodeDuplicateUsername          = "ACCOUNT_DUPLICATE_USERNAME"
	CodeNotFound                   = "ACCOUNT_NOT_FOUND"
	CodeNotificationFailed         = "ACCOUNT_NOTIFICATION_FAILED"
	CodeInvalidCredentials         = "AUTH_INVALID_CREDENTIALS"
	CodeInvalidTemporaryCredential = "AUTH_INVALID_TEMPORARY_CREDENTIAL"
	CodeUnauthenticated            = "AUTH_UNAUTHENTICATED"
)
