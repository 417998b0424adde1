// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict indicates a uniqueness violation.
	ErrConflict = errors.New("store: conflict")

	// ErrTokenRevoked is returned by CompareAndRevoke when the token was
	// already revoked by another caller.
	ErrTokenRevoked = errors.New("store: token already revoked")

	// ErrAlreadyResolved is returned by ResolveAlert for a resolved alert.
	ErrAlreadyResolved = errors.New("store: alert already resolved")

	// ErrTransient marks a failure that may succeed on retry (timeouts,
	// dropped connections, serialization conflicts).
	ErrTransient = errors.New("store: transient failure")

	// ErrPersistenceFailure indicates the store is unavailable.
	ErrPersistenceFailure = errors.New("store: persistence failure")
)

// Transient wraps err so that errors.Is(err, ErrTransient) holds.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// Unavailable wraps err so that errors.Is(err, ErrPersistenceFailure) holds.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
}

// IsDomainError reports whether err is one of the expected outcomes a
// caller handles explicitly, as opposed to an engine failure.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrTokenRevoked) ||
		errors.Is(err, ErrAlreadyResolved)
}
