// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

// Package pgstore implements store.Store on PostgreSQL through the pgx
// database/sql driver. It is the engine for multi-process deployments where
// several API processes share users, refresh-token chains and alerts.
package pgstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tomtom215/safex/internal/logging"
	"github.com/tomtom215/safex/internal/store"
)

// Options configures Open.
type Options struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store is a PostgreSQL-backed store.Store.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open creates the connection pool. It does not contact the server; call
// Ping or Migrate to verify connectivity.
func Open(opts Options) (*Store, error) {
	if opts.DSN == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := sql.Open("pgx", opts.DSN)
	if err != nil {
		return nil, store.Unavailable(fmt.Errorf("open postgres: %w", err))
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing pool.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying pool.
func (s *Store) DB() *sql.DB { return s.db }

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return classify("migrate", err)
		}
	}
	logging.Info().Int("statements", len(schema)).Msg("Postgres schema ready")
	return nil
}

// Update runs fn in a read-committed transaction and commits iff fn
// returns nil.
func (s *Store) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.run(ctx, nil, fn)
}

// View runs fn in a read-only transaction.
func (s *Store) View(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.run(ctx, &sql.TxOptions{ReadOnly: true}, fn)
}

func (s *Store) run(ctx context.Context, opts *sql.TxOptions, fn func(tx store.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return classify("begin", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	if err := fn(&tx{tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return classify("commit", err)
	}
	return nil
}

// Ping verifies the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return store.Unavailable(err)
	}
	return nil
}

// Close closes the pool.
func (s *Store) Close() error { return s.db.Close() }

type tx struct {
	tx *sql.Tx
}

func (t *tx) Users() store.UserRepository                 { return userRepo{tx: t.tx} }
func (t *tx) RefreshTokens() store.RefreshTokenRepository { return tokenRepo{tx: t.tx} }
func (t *tx) Alerts() store.AlertRepository               { return alertRepo{tx: t.tx} }

// SQLSTATE codes and classes used by classify.
const (
	codeUniqueViolation = "23505"
	classConnection     = "08"
	classTxRollback     = "40"
	classResources      = "53"
	classOperator       = "57"
)

// classify maps a driver error onto the store taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	wrapped := fmt.Errorf("%s: %w", op, err)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == codeUniqueViolation {
			return fmt.Errorf("%s: %w: %s", op, store.ErrConflict, pgErr.ConstraintName)
		}
		if len(pgErr.Code) >= 2 {
			switch pgErr.Code[:2] {
			case classConnection, classTxRollback, classResources, classOperator:
				return store.Transient(wrapped)
			}
		}
		return wrapped
	}

	switch {
	case errors.Is(err, context.Canceled):
		return store.Unavailable(wrapped)
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		pgconn.Timeout(err),
		pgconn.SafeToRetry(err):
		return store.Transient(wrapped)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return store.Transient(wrapped)
	}
	return wrapped
}
