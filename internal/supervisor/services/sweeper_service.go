// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/safex/internal/logging"
)

// DefaultSweepInterval is how often expired refresh tokens are purged.
const DefaultSweepInterval = time.Hour

// RefreshTokenSweeper matches (*auth.Service).Sweep.
type RefreshTokenSweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// TokenSweeperService deletes expired refresh-token records on an interval.
// Sweep failures are logged and retried on the next tick.
type TokenSweeperService struct {
	sweeper  RefreshTokenSweeper
	interval time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

// NewTokenSweeperService creates the sweeper. A non-positive interval uses
// DefaultSweepInterval.
func NewTokenSweeperService(sweeper RefreshTokenSweeper, interval time.Duration) *TokenSweeperService {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &TokenSweeperService{
		sweeper:  sweeper,
		interval: interval,
		now:      time.Now,
		log:      logging.WithComponent("token-sweeper"),
	}
}

// Serve implements suture.Service.
func (s *TokenSweeperService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := s.sweeper.Sweep(ctx, s.now())
			if err != nil {
				s.log.Warn().Err(err).Msg("refresh token sweep failed")
				continue
			}
			if n > 0 {
				s.log.Info().Int("deleted", n).Msg("swept expired refresh tokens")
			}
		}
	}
}

// String implements fmt.Stringer.
func (s *TokenSweeperService) String() string {
	return "token-sweeper"
}
