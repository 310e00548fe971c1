// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package accounts

import (
	"crypto/rand"
	"math/big"

	"github.com/samber/oops"
)

// One-time password configuration.
const (
	OneTimePasswordLength   = 12
	OneTimePasswordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// PasswordGenerator produces one-time passwords.
type PasswordGenerator func() (string, error)

// GenerateOneTimePassword returns OneTimePasswordLength characters drawn
// uniformly from OneTimePasswordAlphabet using crypto/rand.
func GenerateOneTimePassword() (string, error) {
	alphabetLen := big.NewInt(int64(len(OneTimePasswordAlphabet)))
	out := make([]byte, OneTimePasswordLength)
	for i := range out {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", oops.Code("ACCOUNT_PASSWORD_GENERATE_FAILED").
				With("operation", "crypto/rand.Int").
				Wrap(err)
		}
		out[i] = OneTimePasswordAlphabet[n.Int64()]
	}
	return string(out), nil
}
