// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

// Package accounts provides account provisioning, authentication and the
// credential lifecycle for accountd.
//
// # Domain Types
//
// Account is the only entity. New accounts should be built with NewAccount,
// which validates the username and email and fills the lifecycle flags.
// Direct struct initialization bypasses validation and may create invalid state.
//
// # Services
//
// Service types coordinate domain operations:
//   - AuthService - sign-in by username or email, bearer authentication, token refresh
//   - AccountService - account creation with a generated one-time password
//   - CredentialService - administrator password reset and first-login password change
//   - AdminService - account listing and locking
//
// Operations that require an authenticated caller take an explicit *Requester.
// Services are created with New*Service constructors that validate dependencies.
//
// # Collaborators
//
// Persistence, notification delivery and token minting sit behind the
// Repository, Notifier and TokenIssuer interfaces. Repository.Update is the
// atomic read-modify-write primitive: implementations must serialize
// concurrent updates of the same account.
package accounts
