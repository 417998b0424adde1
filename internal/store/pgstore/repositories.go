// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/tomtom215/safex/internal/models"
	"github.com/tomtom215/safex/internal/store"
)

// Users ----------------------------------------------------------------------

type userRepo struct{ tx *sql.Tx }

const userColumns = `id, email, name, phone, organization, password_hash, role, is_active, created_at, updated_at`

func (r userRepo) CreateUser(ctx context.Context, u *models.User) error {
	_, err := r.tx.ExecContext(ctx,
		`insert into users(`+userColumns+`) values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		u.ID, u.Email, u.Name, u.Phone, u.Organization, u.PasswordHash, u.Role, u.IsActive, u.CreatedAt, u.UpdatedAt,
	)
	return classify("create user", err)
}

func (r userRepo) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return scanUser(r.tx.QueryRowContext(ctx, `select `+userColumns+` from users where id=$1`, id))
}

func (r userRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.tx.QueryRowContext(ctx, `select `+userColumns+` from users where lower(email)=lower($1)`, email))
}

func (r userRepo) UpdateUser(ctx context.Context, u *models.User) error {
	res, err := r.tx.ExecContext(ctx, `
		update users set email=$2, name=$3, phone=$4, organization=$5, password_hash=$6,
			role=$7, is_active=$8, updated_at=$9
		where id=$1`,
		u.ID, u.Email, u.Name, u.Phone, u.Organization, u.PasswordHash, u.Role, u.IsActive, u.UpdatedAt,
	)
	if err != nil {
		return classify("update user", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Phone, &u.Organization, &u.PasswordHash,
		&u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, classify("scan user", err)
	}
	return &u, nil
}

// Refresh tokens -------------------------------------------------------------

type tokenRepo struct{ tx *sql.Tx }

func (r tokenRepo) CreateRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	_, err := r.tx.ExecContext(ctx, `
		insert into refresh_tokens(token_hash, user_id, chain_id, issued_at, expires_at, revoked, revoked_at, replaced_by)
		values($1,$2,$3,$4,$5,$6,$7,$8)`,
		t.TokenHash, t.UserID, t.ChainID, t.IssuedAt, t.ExpiresAt, t.Revoked, t.RevokedAt, t.ReplacedBy,
	)
	return classify("create refresh token", err)
}

func (r tokenRepo) GetRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	var (
		t         models.RefreshToken
		revokedAt sql.NullTime
	)
	err := r.tx.QueryRowContext(ctx, `
		select token_hash, user_id, chain_id, issued_at, expires_at, revoked, revoked_at, replaced_by
		from refresh_tokens where token_hash=$1`, tokenHash,
	).Scan(&t.TokenHash, &t.UserID, &t.ChainID, &t.IssuedAt, &t.ExpiresAt, &t.Revoked, &revokedAt, &t.ReplacedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, classify("get refresh token", err)
	}
	if revokedAt.Valid {
		t.RevokedAt = &revokedAt.Time
	}
	return &t, nil
}

// CompareAndRevoke is a single conditional update; of two concurrent
// callers only one sees a changed row.
func (r tokenRepo) CompareAndRevoke(ctx context.Context, tokenHash, replacedBy string, at time.Time) error {
	res, err := r.tx.ExecContext(ctx, `
		update refresh_tokens set revoked=true, revoked_at=$3, replaced_by=$2
		where token_hash=$1 and not revoked`,
		tokenHash, replacedBy, at,
	)
	if err != nil {
		return classify("revoke refresh token", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("revoke refresh token", err)
	}
	if n == 1 {
		return nil
	}

	var revoked bool
	err = r.tx.QueryRowContext(ctx, `select revoked from refresh_tokens where token_hash=$1`, tokenHash).Scan(&revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return classify("revoke refresh token", err)
	}
	return store.ErrTokenRevoked
}

func (r tokenRepo) RevokeAllForUser(ctx context.Context, userID string, at time.Time) (int, error) {
	res, err := r.tx.ExecContext(ctx,
		`update refresh_tokens set revoked=true, revoked_at=$2 where user_id=$1 and not revoked`, userID, at)
	if err != nil {
		return 0, classify("revoke user tokens", err)
	}
	n, err := res.RowsAffected()
	return int(n), classify("revoke user tokens", err)
}

func (r tokenRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.tx.ExecContext(ctx, `delete from refresh_tokens where expires_at < $1`, cutoff)
	if err != nil {
		return 0, classify("delete expired tokens", err)
	}
	n, err := res.RowsAffected()
	return int(n), classify("delete expired tokens", err)
}

// Alerts ---------------------------------------------------------------------

type alertRepo struct{ tx *sql.Tx }

const alertColumns = `id, feed_id, severity, alert_type, status, title, description, confidence,
	video_url, thumbnail_url, payload, source, ts, resolved, resolved_by, resolved_at,
	resolution_notes, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*models.Alert, error) {
	var (
		a          models.Alert
		confidence sql.NullFloat64
		payload    []byte
		resolvedAt sql.NullTime
	)
	err := row.Scan(&a.ID, &a.FeedID, &a.Severity, &a.AlertType, &a.Status, &a.Title, &a.Description,
		&confidence, &a.VideoURL, &a.ThumbnailURL, &payload, &a.Source, &a.Timestamp, &a.Resolved,
		&a.ResolvedBy, &resolvedAt, &a.ResolutionNotes, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, classify("scan alert", err)
	}
	if confidence.Valid {
		a.Confidence = &confidence.Float64
	}
	if len(payload) > 0 {
		a.Payload = payload
	}
	if resolvedAt.Valid {
		a.ResolvedAt = &resolvedAt.Time
	}
	return &a, nil
}

func (r alertRepo) CreateAlert(ctx context.Context, a *models.Alert) error {
	var payload any
	if len(a.Payload) > 0 {
		payload = []byte(a.Payload)
	}
	_, err := r.tx.ExecContext(ctx, `
		insert into alerts(`+alertColumns+`)
		values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		a.ID, a.FeedID, a.Severity, a.AlertType, a.Status, a.Title, a.Description, a.Confidence,
		a.VideoURL, a.ThumbnailURL, payload, a.Source, a.Timestamp, a.Resolved, a.ResolvedBy, a.ResolvedAt,
		a.ResolutionNotes, a.UpdatedAt,
	)
	return classify("create alert", err)
}

func (r alertRepo) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	return scanAlert(r.tx.QueryRowContext(ctx, `select `+alertColumns+` from alerts where id=$1`, id))
}

func (r alertRepo) ListAlerts(ctx context.Context, filter models.AlertFilter) ([]*models.Alert, error) {
	var limit any
	if filter.Limit > 0 {
		limit = filter.Limit
	}
	rows, err := r.tx.QueryContext(ctx, `
		select `+alertColumns+` from alerts
		where ($1 = '' or feed_id = $1) and ($2 = '' or status = $2)
		order by id desc
		limit $3`,
		filter.FeedID, string(filter.Status), limit,
	)
	if err != nil {
		return nil, classify("list alerts", err)
	}
	defer rows.Close()

	var out []*models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, classify("list alerts", rows.Err())
}

func (r alertRepo) ResolveAlert(ctx context.Context, id string, res models.Resolution) (*models.Alert, error) {
	a, err := scanAlert(r.tx.QueryRowContext(ctx, `
		update alerts set status=$2, resolved=true, resolved_by=$3, resolved_at=$4,
			resolution_notes=$5, updated_at=$4
		where id=$1 and not resolved
		returning `+alertColumns,
		id, string(res.Status), res.ResolvedBy, res.ResolvedAt, res.Notes,
	))
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	current, err := r.GetAlert(ctx, id)
	if err != nil {
		return nil, err
	}
	return current, store.ErrAlreadyResolved
}
