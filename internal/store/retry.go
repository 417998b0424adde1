// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package store

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/safex/internal/logging"
)

// DefaultRetryBackoff is the pause before the single retry of a transient failure.
const DefaultRetryBackoff = 50 * time.Millisecond

// RetryOnce runs op and, if it fails with ErrTransient, waits backoff and
// runs it one more time. A transient failure on the second attempt is
// reported as ErrPersistenceFailure. Other errors are returned unchanged.
func RetryOnce(ctx context.Context, backoff time.Duration, op func() error) error {
	err := op()
	if err == nil || !errors.Is(err, ErrTransient) {
		return err
	}

	if backoff <= 0 {
		backoff = DefaultRetryBackoff
	}
	logging.Ctx(ctx).Warn().Err(err).Dur("backoff", backoff).Msg("transient store failure, retrying once")

	timer := time.NewTimer(backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return Unavailable(ctx.Err())
	case <-timer.C:
	}

	err = op()
	if err != nil && errors.Is(err, ErrTransient) {
		return Unavailable(err)
	}
	return err
}
