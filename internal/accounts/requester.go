// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package accounts

import (
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// SystemUsername is the username reported by SystemRequester.
const SystemUsername = "system"

// Requester is the verified identity performing an operation.
// It is passed explicitly to every operation that requires authentication.
type Requester struct {
	AccountID ulid.ULID
	Username  string
	Role      string
	system    bool
}

// SystemRequester returns the identity used by local administrative tooling
// such as the seed command. It has no backing account.
func SystemRequester() *Requester {
	return &Requester{Username: SystemUsername, Role: "admin", system: true}
}

// IsSystem reports whether r is the SystemRequester.
func (r *Requester) IsSystem() bool {
	return r != nil && r.system
}

func requireAuthenticated(r *Requester) error {
	if r == nil || (!r.system && r.AccountID == (ulid.ULID{})) {
		return oops.Code(CodeUnauthenticated).Errorf("authentication required")
	}
	return nil
}
