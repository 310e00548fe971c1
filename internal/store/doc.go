// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

// Package store owns the PostgreSQL connection pool and the account schema.
package store
