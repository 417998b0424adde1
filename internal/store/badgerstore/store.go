// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

// Package badgerstore implements store.Store on an embedded BadgerDB.
//
// Key layout:
//
//	user:<id>                    -> userRecord JSON
//	user_email:<lower(email)>    -> user id
//	rt:<token hash>              -> models.RefreshToken JSON
//	rt_user:<user id>:<hash>     -> token hash
//	alert:<ulid>                 -> models.Alert JSON
//	alert_feed:<feed id>:<ulid>  -> alert id
//
// Alert ids are ULIDs, so reverse iteration over a prefix yields newest first.
package badgerstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/safex/internal/logging"
	"github.com/tomtom215/safex/internal/store"
)

// maxConflictAttempts bounds how often Update re-runs fn after Badger
// reports a write conflict with a concurrent transaction.
const maxConflictAttempts = 5

// Options configures Open.
type Options struct {
	// Path is the data directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
}

// Store is a Badger-backed store.Store.
type Store struct {
	db *badger.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (or creates) the database described by opts.
func Open(opts Options) (*Store, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Path == "" {
			return nil, errors.New("badger path is required")
		}
		bopts = badger.DefaultOptions(opts.Path)
	}
	bopts.Logger = nil

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, store.Unavailable(fmt.Errorf("open badger db: %w", err))
	}

	logging.Info().Str("path", opts.Path).Bool("in_memory", opts.InMemory).Msg("Badger store opened")
	return &Store{db: db}, nil
}

// Update runs fn in a read-write transaction. Write conflicts with
// concurrent transactions re-run fn against fresh state.
func (s *Store) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxConflictAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return store.Unavailable(ctxErr)
		}
		err = s.db.Update(func(txn *badger.Txn) error {
			return fn(&tx{txn: txn})
		})
		if !errors.Is(err, badger.ErrConflict) {
			return classify(err)
		}
		logging.Ctx(ctx).Debug().Int("attempt", attempt).Msg("badger write conflict, re-running transaction")
	}
	return store.Transient(err)
}

// View runs fn in a read-only transaction.
func (s *Store) View(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return store.Unavailable(err)
	}
	return classify(s.db.View(func(txn *badger.Txn) error {
		return fn(&tx{txn: txn})
	}))
}

// Ping reports an error once the database has been closed.
func (s *Store) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return store.Unavailable(badger.ErrDBClosed)
	}
	return ctx.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// classify maps engine errors onto the store taxonomy. Errors produced by
// repositories or by the caller's fn pass through untouched.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrDBClosed), errors.Is(err, badger.ErrBlockedWrites):
		return store.Unavailable(err)
	case errors.Is(err, badger.ErrTxnTooBig):
		return store.Transient(err)
	default:
		return err
	}
}

type tx struct {
	txn *badger.Txn
}

func (t *tx) Users() store.UserRepository                 { return userRepo{txn: t.txn} }
func (t *tx) RefreshTokens() store.RefreshTokenRepository { return tokenRepo{txn: t.txn} }
func (t *tx) Alerts() store.AlertRepository               { return alertRepo{txn: t.txn} }
