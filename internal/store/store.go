// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

// Package store defines the persistence contract used by the token service
// and the alert publisher. Engines live in subpackages:
//
//   - badgerstore: embedded Badger KV (single node, tests)
//   - pgstore: PostgreSQL through pgx (multi-process deployments)
//
// All repository access happens inside a transaction obtained from Update or
// View, which gives read-your-writes within fn and atomic commit.
package store

import (
	"context"
	"time"

	"github.com/tomtom215/safex/internal/models"
)

// Store is a transactional persistence engine.
type Store interface {
	// Update runs fn in a read-write transaction. The transaction commits
	// iff fn returns nil; fn's error is returned unchanged.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(tx Tx) error) error

	// Ping reports whether the engine is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// Tx exposes the repositories bound to one transaction.
type Tx interface {
	Users() UserRepository
	RefreshTokens() RefreshTokenRepository
	Alerts() AlertRepository
}

// UserRepository persists console users.
type UserRepository interface {
	// CreateUser returns ErrConflict when the email is taken.
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
}

// RefreshTokenRepository persists refresh-token records keyed by hash.
type RefreshTokenRepository interface {
	CreateRefreshToken(ctx context.Context, t *models.RefreshToken) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error)

	// CompareAndRevoke marks the token revoked only if it is currently not
	// revoked. It returns ErrTokenRevoked when the token was already revoked
	// and ErrNotFound when it does not exist.
	CompareAndRevoke(ctx context.Context, tokenHash, replacedBy string, at time.Time) error

	// RevokeAllForUser revokes every unrevoked token of userID and returns
	// how many were changed.
	RevokeAllForUser(ctx context.Context, userID string, at time.Time) (int, error)

	// DeleteExpired removes records with expires_at before cutoff.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int, error)
}

// AlertRepository persists alerts.
type AlertRepository interface {
	CreateAlert(ctx context.Context, a *models.Alert) error
	GetAlert(ctx context.Context, id string) (*models.Alert, error)

	// ListAlerts returns alerts newest first.
	ListAlerts(ctx context.Context, filter models.AlertFilter) ([]*models.Alert, error)

	// ResolveAlert applies res to an active alert and returns the updated
	// alert. A resolved alert is left untouched and ErrAlreadyResolved is
	// returned together with its current state.
	ResolveAlert(ctx context.Context, id string, res models.Resolution) (*models.Alert, error)
}
