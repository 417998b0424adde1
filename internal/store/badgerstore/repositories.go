// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package badgerstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/safex/internal/models"
	"github.com/tomtom215/safex/internal/store"
)

const (
	userKeyPrefix      = "user:"
	userEmailKeyPrefix = "user_email:"
	tokenKeyPrefix     = "rt:"
	tokenUserKeyPrefix = "rt_user:"
	alertKeyPrefix     = "alert:"
	alertFeedKeyPrefix = "alert_feed:"
)

// userRecord persists the password hash, which models.User hides from JSON.
type userRecord struct {
	models.User
	PasswordHash string `json:"password_hash"`
}

func getJSON(txn *badger.Txn, key string, v any) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := txn.Set([]byte(key), data); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func exists(txn *badger.Txn, key string) (bool, error) {
	_, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	return true, nil
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

type userRepo struct {
	txn *badger.Txn
}

func emailKey(email string) string {
	return userEmailKeyPrefix + strings.ToLower(strings.TrimSpace(email))
}

func (r userRepo) CreateUser(_ context.Context, u *models.User) error {
	taken, err := exists(r.txn, emailKey(u.Email))
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("email %s: %w", u.Email, store.ErrConflict)
	}
	if taken, err = exists(r.txn, userKeyPrefix+u.ID); err != nil {
		return err
	} else if taken {
		return fmt.Errorf("user %s: %w", u.ID, store.ErrConflict)
	}

	if err := setJSON(r.txn, userKeyPrefix+u.ID, userRecord{User: *u, PasswordHash: u.PasswordHash}); err != nil {
		return err
	}
	return r.txn.Set([]byte(emailKey(u.Email)), []byte(u.ID))
}

func (r userRepo) GetUserByID(_ context.Context, id string) (*models.User, error) {
	var rec userRecord
	if err := getJSON(r.txn, userKeyPrefix+id, &rec); err != nil {
		return nil, err
	}
	u := rec.User
	u.PasswordHash = rec.PasswordHash
	return &u, nil
}

func (r userRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	item, err := r.txn.Get([]byte(emailKey(email)))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get email index: %w", err)
	}
	id, err := item.ValueCopy(nil)
	if err != nil {
		return nil, fmt.Errorf("read email index: %w", err)
	}
	return r.GetUserByID(ctx, string(id))
}

func (r userRepo) UpdateUser(ctx context.Context, u *models.User) error {
	current, err := r.GetUserByID(ctx, u.ID)
	if err != nil {
		return err
	}
	if !strings.EqualFold(current.Email, u.Email) {
		taken, err := exists(r.txn, emailKey(u.Email))
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("email %s: %w", u.Email, store.ErrConflict)
		}
		if err := r.txn.Delete([]byte(emailKey(current.Email))); err != nil {
			return fmt.Errorf("delete email index: %w", err)
		}
		if err := r.txn.Set([]byte(emailKey(u.Email)), []byte(u.ID)); err != nil {
			return fmt.Errorf("set email index: %w", err)
		}
	}
	return setJSON(r.txn, userKeyPrefix+u.ID, userRecord{User: *u, PasswordHash: u.PasswordHash})
}

// ---------------------------------------------------------------------------
// Refresh tokens
// ---------------------------------------------------------------------------

type tokenRepo struct {
	txn *badger.Txn
}

func (r tokenRepo) CreateRefreshToken(_ context.Context, t *models.RefreshToken) error {
	key := tokenKeyPrefix + t.TokenHash
	taken, err := exists(r.txn, key)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("refresh token: %w", store.ErrConflict)
	}
	if err := setJSON(r.txn, key, t); err != nil {
		return err
	}
	return r.txn.Set([]byte(tokenUserKeyPrefix+t.UserID+":"+t.TokenHash), []byte(t.TokenHash))
}

func (r tokenRepo) GetRefreshToken(_ context.Context, tokenHash string) (*models.RefreshToken, error) {
	var t models.RefreshToken
	if err := getJSON(r.txn, tokenKeyPrefix+tokenHash, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// CompareAndRevoke relies on Badger's optimistic concurrency: the read of
// the record registers it in the transaction's read set, so a concurrent
// revoke that commits first makes this commit fail with ErrConflict and
// Store.Update re-runs the caller against the revoked record.
func (r tokenRepo) CompareAndRevoke(ctx context.Context, tokenHash, replacedBy string, at time.Time) error {
	t, err := r.GetRefreshToken(ctx, tokenHash)
	if err != nil {
		return err
	}
	if t.Revoked {
		return store.ErrTokenRevoked
	}
	t.Revoked = true
	t.RevokedAt = &at
	t.ReplacedBy = replacedBy
	return setJSON(r.txn, tokenKeyPrefix+tokenHash, t)
}

func (r tokenRepo) RevokeAllForUser(ctx context.Context, userID string, at time.Time) (int, error) {
	hashes, err := r.userTokenHashes(userID)
	if err != nil {
		return 0, err
	}

	revoked := 0
	for _, h := range hashes {
		t, err := r.GetRefreshToken(ctx, h)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return revoked, err
		}
		if t.Revoked {
			continue
		}
		t.Revoked = true
		t.RevokedAt = &at
		if err := setJSON(r.txn, tokenKeyPrefix+h, t); err != nil {
			return revoked, err
		}
		revoked++
	}
	return revoked, nil
}

func (r tokenRepo) DeleteExpired(_ context.Context, cutoff time.Time) (int, error) {
	var expired []models.RefreshToken

	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(tokenKeyPrefix)
	it := r.txn.NewIterator(opts)
	for it.Rewind(); it.Valid(); it.Next() {
		var t models.RefreshToken
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &t)
		}); err != nil {
			it.Close()
			return 0, fmt.Errorf("decode refresh token: %w", err)
		}
		if t.ExpiresAt.Before(cutoff) {
			expired = append(expired, t)
		}
	}
	it.Close()

	for _, t := range expired {
		if err := r.txn.Delete([]byte(tokenKeyPrefix + t.TokenHash)); err != nil {
			return 0, fmt.Errorf("delete refresh token: %w", err)
		}
		if err := r.txn.Delete([]byte(tokenUserKeyPrefix + t.UserID + ":" + t.TokenHash)); err != nil {
			return 0, fmt.Errorf("delete refresh token index: %w", err)
		}
	}
	return len(expired), nil
}

func (r tokenRepo) userTokenHashes(userID string) ([]string, error) {
	prefix := []byte(tokenUserKeyPrefix + userID + ":")
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := r.txn.NewIterator(opts)
	defer it.Close()

	var hashes []string
	for it.Rewind(); it.Valid(); it.Next() {
		hashes = append(hashes, string(bytes.TrimPrefix(it.Item().KeyCopy(nil), prefix)))
	}
	return hashes, nil
}

// ---------------------------------------------------------------------------
// Alerts
// ---------------------------------------------------------------------------

type alertRepo struct {
	txn *badger.Txn
}

func (r alertRepo) CreateAlert(_ context.Context, a *models.Alert) error {
	key := alertKeyPrefix + a.ID
	taken, err := exists(r.txn, key)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("alert %s: %w", a.ID, store.ErrConflict)
	}
	if err := setJSON(r.txn, key, a); err != nil {
		return err
	}
	return r.txn.Set([]byte(feedIndexPrefix(a.FeedID)+a.ID), []byte(a.ID))
}

// feedIndexPrefix returns the index prefix for one feed. The feed id is
// length-prefixed so a feed whose id extends another's, such as "cam" and
// "cam:1", never shares its key range.
func feedIndexPrefix(feedID string) string {
	return alertFeedKeyPrefix + strconv.Itoa(len(feedID)) + ":" + feedID + ":"
}

func (r alertRepo) GetAlert(_ context.Context, id string) (*models.Alert, error) {
	var a models.Alert
	if err := getJSON(r.txn, alertKeyPrefix+id, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r alertRepo) ListAlerts(ctx context.Context, filter models.AlertFilter) ([]*models.Alert, error) {
	if filter.FeedID != "" {
		return r.listByFeed(ctx, filter)
	}

	opts := badger.DefaultIteratorOptions
	opts.Reverse = true
	opts.Prefix = []byte(alertKeyPrefix)
	it := r.txn.NewIterator(opts)
	defer it.Close()

	var out []*models.Alert
	for it.Seek(seekLast(alertKeyPrefix)); it.Valid(); it.Next() {
		var a models.Alert
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &a)
		}); err != nil {
			return nil, fmt.Errorf("decode alert: %w", err)
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		out = append(out, &a)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (r alertRepo) listByFeed(ctx context.Context, filter models.AlertFilter) ([]*models.Alert, error) {
	prefix := feedIndexPrefix(filter.FeedID)
	opts := badger.DefaultIteratorOptions
	opts.Reverse = true
	opts.PrefetchValues = false
	opts.Prefix = []byte(prefix)
	it := r.txn.NewIterator(opts)
	defer it.Close()

	var out []*models.Alert
	for it.Seek(seekLast(prefix)); it.Valid(); it.Next() {
		id := strings.TrimPrefix(string(it.Item().Key()), prefix)
		a, err := r.GetAlert(ctx, id)
		if err != nil {
			return nil, err
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		out = append(out, a)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (r alertRepo) ResolveAlert(ctx context.Context, id string, res models.Resolution) (*models.Alert, error) {
	a, err := r.GetAlert(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Resolved {
		return a, store.ErrAlreadyResolved
	}

	resolvedAt := res.ResolvedAt
	a.Status = res.Status
	a.Resolved = true
	a.ResolvedBy = res.ResolvedBy
	a.ResolvedAt = &resolvedAt
	a.ResolutionNotes = res.Notes
	a.UpdatedAt = resolvedAt
	if err := setJSON(r.txn, alertKeyPrefix+id, a); err != nil {
		return nil, err
	}
	return a, nil
}

// seekLast returns a key that sorts after every key carrying prefix, the
// starting point for a reverse prefix scan.
func seekLast(prefix string) []byte {
	return append([]byte(prefix), 0xFF)
}
