// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/safex/internal/logging"
	"github.com/tomtom215/safex/internal/metrics"
	"github.com/tomtom215/safex/internal/models"
	"github.com/tomtom215/safex/internal/store"
)

// TokenTypeBearer is the token_type reported with every pair.
const TokenTypeBearer = "bearer"

// DefaultRegistrationRole is the role given to self-registered users.
const DefaultRegistrationRole = models.RoleOperator

// ServiceConfig configures NewService.
type ServiceConfig struct {
	RefreshTTL   time.Duration
	BcryptCost   int
	RetryBackoff time.Duration

	// Now overrides the clock. Nil means time.Now. It should match the
	// clock given to the TokenManager.
	Now func() time.Time
}

// Service owns the token lifecycle: issue, verify, refresh, revoke, sweep,
// plus the registration and login flows that start a chain.
type Service struct {
	store      store.Store
	tokens     *TokenManager
	refreshTTL time.Duration
	bcryptCost int
	backoff    time.Duration
	now        func() time.Time
	dummyHash  string
	audit      *logging.SecurityLogger
}

// NewService creates a token service.
func NewService(st store.Store, tokens *TokenManager, cfg ServiceConfig) (*Service, error) {
	if st == nil || tokens == nil {
		return nil, errors.New("auth service requires a store and a token manager")
	}
	if cfg.RefreshTTL <= 0 {
		return nil, errors.New("refresh token TTL must be positive")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	// Compared against when the email is unknown so that both login
	// failure paths cost one bcrypt comparison at the configured cost.
	dummy, err := HashPassword(uuid.NewString(), cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	return &Service{
		store:      st,
		tokens:     tokens,
		refreshTTL: cfg.RefreshTTL,
		bcryptCost: cfg.BcryptCost,
		backoff:    cfg.RetryBackoff,
		now:        now,
		dummyHash:  dummy,
		audit:      logging.NewSecurityLogger(),
	}, nil
}

// Tokens returns the access-token manager.
func (s *Service) Tokens() *TokenManager { return s.tokens }

// VerifyAccess checks an access token's signature and expiry without any
// store access.
func (s *Service) VerifyAccess(token string) (*Claims, error) {
	return s.tokens.Verify(token)
}

// Issue starts a new rotation chain for user and returns its first pair.
func (s *Service) Issue(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	return s.issue(ctx, user, "login")
}

func (s *Service) issue(ctx context.Context, user *models.User, reason string) (*models.TokenPair, error) {
	var raw, chainID string
	err := store.RetryOnce(ctx, s.backoff, func() error {
		return s.store.Update(ctx, func(tx store.Tx) error {
			var err error
			raw, chainID, err = s.startChain(ctx, tx, user.ID)
			return err
		})
	})
	if err != nil {
		return nil, persistenceError("issue tokens", err)
	}
	return s.pair(user, chainID, raw, reason)
}

// startChain stores the first refresh token of a new chain.
func (s *Service) startChain(ctx context.Context, tx store.Tx, userID string) (raw, chainID string, err error) {
	raw, hash, err := newRefreshToken()
	if err != nil {
		return "", "", err
	}
	now := s.now()
	chainID = uuid.NewString()
	err = tx.RefreshTokens().CreateRefreshToken(ctx, &models.RefreshToken{
		TokenHash: hash,
		UserID:    userID,
		ChainID:   chainID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.refreshTTL),
	})
	return raw, chainID, err
}

func (s *Service) pair(user *models.User, chainID, refreshRaw, reason string) (*models.TokenPair, error) {
	access, _, err := s.tokens.Generate(user.ID, user.Role, chainID)
	if err != nil {
		return nil, err
	}
	metrics.TokensIssued.WithLabelValues(reason).Inc()
	return &models.TokenPair{
		AccessToken:  access,
		RefreshToken: refreshRaw,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    int64(s.tokens.TTL() / time.Second),
	}, nil
}

// Refresh rotates refreshToken and returns a new pair in the same chain.
//
// The presented record is compare-and-revoked so that of two concurrent
// calls with the same token exactly one succeeds. A token that is already
// revoked, whether by an earlier rotation, a logout or a concurrent caller
// that won the race, is treated as stolen: every unrevoked refresh token of
// the user is revoked in the same transaction and ErrChainCompromised is
// returned after that revocation has committed.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	if refreshToken == "" {
		metrics.TokenRefreshes.WithLabelValues("invalid").Inc()
		return nil, ErrAuthInvalid
	}
	hash := HashRefreshToken(refreshToken)
	newRaw, newHash, err := newRefreshToken()
	if err != nil {
		return nil, err
	}

	var (
		user        *models.User
		userID      string
		chainID     string
		compromised bool
		revoked     int
	)
	err = store.RetryOnce(ctx, s.backoff, func() error {
		return s.store.Update(ctx, func(tx store.Tx) error {
			user, userID, chainID, compromised, revoked = nil, "", "", false, 0
			now := s.now()
			tokens := tx.RefreshTokens()

			rec, err := tokens.GetRefreshToken(ctx, hash)
			if errors.Is(err, store.ErrNotFound) {
				return ErrAuthInvalid
			}
			if err != nil {
				return err
			}
			userID, chainID = rec.UserID, rec.ChainID

			compromise := func() error {
				compromised = true
				n, err := tokens.RevokeAllForUser(ctx, rec.UserID, now)
				revoked = n
				return err
			}

			if rec.Revoked {
				return compromise()
			}
			if rec.IsExpired(now) {
				return ErrAuthExpired
			}

			u, err := tx.Users().GetUserByID(ctx, rec.UserID)
			if errors.Is(err, store.ErrNotFound) {
				return ErrAuthInvalid
			}
			if err != nil {
				return err
			}
			if !u.IsActive {
				return ErrAuthRevoked
			}

			err = tokens.CompareAndRevoke(ctx, hash, newHash, now)
			if errors.Is(err, store.ErrTokenRevoked) {
				return compromise()
			}
			if err != nil {
				return err
			}

			err = tokens.CreateRefreshToken(ctx, &models.RefreshToken{
				TokenHash: newHash,
				UserID:    u.ID,
				ChainID:   rec.ChainID,
				IssuedAt:  now,
				ExpiresAt: now.Add(s.refreshTTL),
			})
			if err != nil {
				return err
			}
			user = u
			return nil
		})
	})

	switch {
	case err != nil:
		outcome := refreshOutcome(err)
		metrics.TokenRefreshes.WithLabelValues(outcome).Inc()
		s.audit.LogTokenRefresh(userID, chainID, false, outcome)
		if outcome == "error" {
			return nil, persistenceError("refresh tokens", err)
		}
		return nil, err
	case compromised:
		metrics.TokenRefreshes.WithLabelValues("compromised").Inc()
		metrics.TokenReuseDetected.Inc()
		s.audit.LogTokenReuse(userID, chainID, revoked)
		return nil, ErrChainCompromised
	}

	metrics.TokenRefreshes.WithLabelValues("success").Inc()
	s.audit.LogTokenRefresh(user.ID, chainID, true, "")
	return s.pair(user, chainID, newRaw, "refresh")
}

func refreshOutcome(err error) string {
	switch {
	case errors.Is(err, ErrAuthExpired):
		return "expired"
	case errors.Is(err, ErrAuthInvalid):
		return "invalid"
	case errors.Is(err, ErrAuthRevoked):
		return "revoked"
	default:
		return "error"
	}
}

// Revoke marks refreshToken revoked (logout). It does not cascade to other
// tokens. Revoking an already revoked token is a no-op; an unknown token
// yields ErrAuthInvalid.
func (s *Service) Revoke(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return ErrAuthInvalid
	}
	hash := HashRefreshToken(refreshToken)

	var rec *models.RefreshToken
	err := store.RetryOnce(ctx, s.backoff, func() error {
		return s.store.Update(ctx, func(tx store.Tx) error {
			var err error
			rec, err = tx.RefreshTokens().GetRefreshToken(ctx, hash)
			if errors.Is(err, store.ErrNotFound) {
				return ErrAuthInvalid
			}
			if err != nil {
				return err
			}
			err = tx.RefreshTokens().CompareAndRevoke(ctx, hash, "", s.now())
			if errors.Is(err, store.ErrTokenRevoked) {
				return nil
			}
			return err
		})
	})
	if errors.Is(err, ErrAuthInvalid) {
		return err
	}
	if err != nil {
		return persistenceError("revoke token", err)
	}
	s.audit.LogLogout(rec.UserID, rec.ChainID)
	return nil
}

// Sweep deletes refresh-token records that expired before now and returns
// how many were removed.
func (s *Service) Sweep(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := store.RetryOnce(ctx, s.backoff, func() error {
		return s.store.Update(ctx, func(tx store.Tx) error {
			var err error
			n, err = tx.RefreshTokens().DeleteExpired(ctx, now)
			return err
		})
	})
	if err != nil {
		return 0, persistenceError("sweep tokens", err)
	}
	metrics.RefreshTokensSwept.Add(float64(n))
	return n, nil
}

// RegisterInput is a validated registration request.
type RegisterInput struct {
	Email        string
	Password     string
	Name         string
	Phone        string
	Organization string
}

// Register creates a user and its first token chain in one transaction.
// A taken email yields store.ErrConflict.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, *models.TokenPair, error) {
	hash, err := HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, nil, err
	}
	now := s.now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        strings.TrimSpace(in.Email),
		Name:         in.Name,
		Phone:        in.Phone,
		Organization: in.Organization,
		PasswordHash: hash,
		Role:         DefaultRegistrationRole,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var raw, chainID string
	err = store.RetryOnce(ctx, s.backoff, func() error {
		return s.store.Update(ctx, func(tx store.Tx) error {
			if err := tx.Users().CreateUser(ctx, user); err != nil {
				return err
			}
			var err error
			raw, chainID, err = s.startChain(ctx, tx, user.ID)
			return err
		})
	})
	if errors.Is(err, store.ErrConflict) {
		return nil, nil, fmt.Errorf("email already registered: %w", store.ErrConflict)
	}
	if err != nil {
		return nil, nil, persistenceError("register", err)
	}

	pair, err := s.pair(user, chainID, raw, "register")
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Login checks credentials and starts a new chain. Unknown email and wrong
// password both yield ErrInvalidCredentials; a disabled user yields
// ErrAuthRevoked.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, *models.TokenPair, error) {
	var user *models.User
	err := store.RetryOnce(ctx, s.backoff, func() error {
		return s.store.View(ctx, func(tx store.Tx) error {
			var err error
			user, err = tx.Users().GetUserByEmail(ctx, email)
			return err
		})
	})
	if errors.Is(err, store.ErrNotFound) {
		CheckPassword(s.dummyHash, password)
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, persistenceError("login", err)
	}
	if !CheckPassword(user.PasswordHash, password) {
		return nil, nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, nil, ErrAuthRevoked
	}

	pair, err := s.issue(ctx, user, "login")
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// GetUser loads a user by id.
func (s *Service) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user *models.User
	err := store.RetryOnce(ctx, s.backoff, func() error {
		return s.store.View(ctx, func(tx store.Tx) error {
			var err error
			user, err = tx.Users().GetUserByID(ctx, id)
			return err
		})
	})
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, persistenceError("get user", err)
	}
	return user, err
}

// persistenceError reports engine failures as store.ErrPersistenceFailure
// and leaves domain outcomes untouched.
func persistenceError(op string, err error) error {
	if store.IsDomainError(err) || errors.Is(err, store.ErrPersistenceFailure) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w", op, store.Unavailable(err))
}
