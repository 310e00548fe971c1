// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// ConnectOptions tunes the startup connection loop.
type ConnectOptions struct {
	// MaxRetries is the number of retries after the first failed attempt.
	MaxRetries uint64
	// InitialBackoff is the first delay; later delays double up to MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// MaxConns caps the pool size. Zero keeps the pgxpool default.
	MaxConns int32
	Logger   *slog.Logger
}

// DefaultConnectOptions returns the options used by the serve command.
func DefaultConnectOptions() ConnectOptions {
	return ConnectOptions{
		MaxRetries:     8,
		InitialBackoff: 250 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Logger:         slog.Default(),
	}
}

// pinger is the part of *pgxpool.Pool used to check connectivity.
type pinger interface {
	Ping(ctx context.Context) error
	Close()
}

// Connect opens a pgx pool for dsn and waits, with exponential backoff,
// until the database answers a ping. The database is often still starting
// when the service comes up under an orchestrator.
func Connect(ctx context.Context, dsn string, opts ConnectOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").
			With("operation", "parse database url").
			Wrap(err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}

	var pool *pgxpool.Pool
	err = connectWithRetry(ctx, opts, func(ctx context.Context) (pinger, error) {
		p, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		pool = p
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return pool, nil
}

func connectWithRetry(ctx context.Context, opts ConnectOptions, open func(context.Context) (pinger, error)) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	initial := opts.InitialBackoff
	if initial <= 0 {
		initial = 250 * time.Millisecond
	}

	backoff := retry.NewExponential(initial)
	if opts.MaxBackoff > 0 {
		backoff = retry.WithCappedDuration(opts.MaxBackoff, backoff)
	}
	backoff = retry.WithMaxRetries(opts.MaxRetries, backoff)

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		p, err := open(ctx)
		if err != nil {
			logger.WarnContext(ctx, "database connect failed", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			logger.WarnContext(ctx, "database ping failed", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").
			With("attempts", attempt).
			Wrap(err)
	}
	logger.InfoContext(ctx, "database connected", "attempts", attempt)
	return nil
}
