// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

// Package postgres implements accounts.Repository on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/accountd/accountd/internal/accounts"
)

// Unique constraint names created by the accounts migration.
const (
	constraintUsername = "accounts_username_key"
	constraintEmail    = "accounts_email_key"
)

// DBTX is the subset of *pgxpool.Pool the repository uses.
// pgxmock.PgxPoolIface satisfies it in tests.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// querier is implemented by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const selectAccount = `
	SELECT a.id, a.username, a.email, a.first_name, a.last_name,
	       a.password_hash, a.role, a.active, a.first_login,
	       a.created_at, a.updated_at,
	       ARRAY(
	           SELECT g.name FROM account_groups ag
	           JOIN groups g ON g.id = ag.group_id
	           WHERE ag.account_id = a.id
	           ORDER BY g.name
	       ) AS groups
	FROM accounts a`

// AccountRepository implements accounts.Repository using PostgreSQL.
// Username and email lookups are case-sensitive exact matches.
type AccountRepository struct {
	pool DBTX
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool DBTX) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Create inserts the account and attaches its groups in one transaction,
// creating groups that do not exist yet.
func (r *AccountRepository) Create(ctx context.Context, account *accounts.Account) (err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return oops.Code("ACCOUNT_STORE_CREATE_FAILED").
			With("operation", "begin transaction").
			Wrap(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx) //nolint:errcheck // rollback after failure; original error wins
		}
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO accounts (
			id, username, email, first_name, last_name, password_hash,
			role, active, first_login, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		account.ID.String(),
		account.Username,
		account.Email,
		account.FirstName,
		account.LastName,
		account.PasswordHash,
		account.Role,
		account.Active,
		account.FirstLogin,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return translateInsertError(err, account)
	}

	for _, name := range account.Groups {
		var groupID int64
		err = tx.QueryRow(ctx, `
			INSERT INTO groups (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, name).Scan(&groupID)
		if err != nil {
			return oops.Code("ACCOUNT_STORE_CREATE_FAILED").
				With("operation", "get or create group").
				With("group", name).
				Wrap(err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO account_groups (account_id, group_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, account.ID.String(), groupID)
		if err != nil {
			return oops.Code("ACCOUNT_STORE_CREATE_FAILED").
				With("operation", "attach group").
				With("group", name).
				Wrap(err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return oops.Code("ACCOUNT_STORE_CREATE_FAILED").
			With("operation", "commit").
			Wrap(err)
	}
	return nil
}

func translateInsertError(err error, account *accounts.Account) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		switch pgErr.ConstraintName {
		case constraintEmail:
			return oops.Code("ACCOUNT_STORE_CONFLICT").
				With("email", account.Email).
				Wrap(accounts.ErrEmailTaken)
		case constraintUsername:
			return oops.Code("ACCOUNT_STORE_CONFLICT").
				With("username", account.Username).
				Wrap(accounts.ErrUsernameTaken)
		default:
			return oops.Code("ACCOUNT_STORE_CONFLICT").
				With("constraint", pgErr.ConstraintName).
				Wrap(accounts.ErrConflict)
		}
	}
	return oops.Code("ACCOUNT_STORE_CREATE_FAILED").
		With("operation", "insert account").
		With("username", account.Username).
		Wrap(err)
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*accounts.Account, error) {
	return r.getOne(ctx, r.pool, selectAccount+` WHERE a.id = $1`, "id", id.String())
}

// GetByUsername retrieves an account by username.
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*accounts.Account, error) {
	return r.getOne(ctx, r.pool, selectAccount+` WHERE a.username = $1`, "username", username)
}

// GetByEmail retrieves an account by email.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	return r.getOne(ctx, r.pool, selectAccount+` WHERE a.email = $1`, "email", email)
}

func (r *AccountRepository) getOne(ctx context.Context, q querier, sql, field, value string) (*accounts.Account, error) {
	account, err := scanAccount(q.QueryRow(ctx, sql, value))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_STORE_NOT_FOUND").
			With(field, value).
			Wrap(accounts.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_STORE_GET_FAILED").
			With("operation", "get account by "+field).
			With(field, value).
			Wrap(err)
	}
	return account, nil
}

// Update locks the account row, applies mutate and writes the result back in
// one transaction. Group membership is not changed by Update.
func (r *AccountRepository) Update(
	ctx context.Context,
	id ulid.ULID,
	mutate func(*accounts.Account) error,
) (_ *accounts.Account, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, oops.Code("ACCOUNT_STORE_UPDATE_FAILED").
			With("operation", "begin transaction").
			Wrap(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx) //nolint:errcheck // rollback after failure; original error wins
		}
	}()

	account, err := r.getOne(ctx, tx, selectAccount+` WHERE a.id = $1 FOR UPDATE OF a`, "id", id.String())
	if err != nil {
		return nil, err
	}

	if err = mutate(account); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE accounts SET
			first_name = $2,
			last_name = $3,
			password_hash = $4,
			role = $5,
			active = $6,
			first_login = $7,
			updated_at = $8
		WHERE id = $1
	`,
		account.ID.String(),
		account.FirstName,
		account.LastName,
		account.PasswordHash,
		account.Role,
		account.Active,
		account.FirstLogin,
		account.UpdatedAt,
	)
	if err != nil {
		return nil, oops.Code("ACCOUNT_STORE_UPDATE_FAILED").
			With("operation", "update account").
			With("id", id.String()).
			Wrap(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, oops.Code("ACCOUNT_STORE_UPDATE_FAILED").
			With("operation", "commit").
			With("id", id.String()).
			Wrap(err)
	}
	return account, nil
}

// List returns every account ordered by creation time.
func (r *AccountRepository) List(ctx context.Context) ([]*accounts.Account, error) {
	rows, err := r.pool.Query(ctx, selectAccount+` ORDER BY a.created_at, a.id`)
	if err != nil {
		return nil, oops.Code("ACCOUNT_STORE_LIST_FAILED").
			With("operation", "query accounts").
			Wrap(err)
	}
	defer rows.Close()

	list := make([]*accounts.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, oops.Code("ACCOUNT_STORE_LIST_FAILED").
				With("operation", "scan account").
				Wrap(err)
		}
		list = append(list, account)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ACCOUNT_STORE_LIST_FAILED").
			With("operation", "iterate accounts").
			Wrap(err)
	}
	return list, nil
}

// scanAccount scans a single row into an Account.
// Callers are responsible for handling pgx.ErrNoRows.
func scanAccount(row pgx.Row) (*accounts.Account, error) {
	var (
		idStr     string
		account   accounts.Account
		groups    []string
		createdAt time.Time
		updatedAt time.Time
	)

	err := row.Scan(
		&idStr,
		&account.Username,
		&account.Email,
		&account.FirstName,
		&account.LastName,
		&account.PasswordHash,
		&account.Role,
		&account.Active,
		&account.FirstLogin,
		&createdAt,
		&updatedAt,
		&groups,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with context-specific info
		}
		return nil, oops.Code("ACCOUNT_STORE_SCAN_FAILED").
			With("operation", "scan account").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("ACCOUNT_STORE_INVALID_ID").
			With("operation", "parse account id").
			With("id", idStr).
			Wrap(err)
	}

	account.ID = id
	account.CreatedAt = createdAt.UTC()
	account.UpdatedAt = updatedAt.UTC()
	if groups == nil {
		groups = []string{}
	}
	account.Groups = groups
	return &account, nil
}

// Compile-time interface check.
var _ accounts.Repository = (*AccountRepository)(nil)
