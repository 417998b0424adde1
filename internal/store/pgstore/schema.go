// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package pgstore

var schema = []string{
	`create table if not exists users (
		id            text primary key,
		email         text not null,
		name          text not null default '',
		phone         text not null default '',
		organization  text not null default '',
		password_hash text not null,
		role          text not null,
		is_active     boolean not null default true,
		created_at    timestamptz not null,
		updated_at    timestamptz not null
	)`,
	`create unique index if not exists users_email_lower_idx on users (lower(email))`,

	`create table if not exists refresh_tokens (
		token_hash  text primary key,
		user_id     text not null references users(id) on delete cascade,
		chain_id    text not null,
		issued_at   timestamptz not null,
		expires_at  timestamptz not null,
		revoked     boolean not null default false,
		revoked_at  timestamptz,
		replaced_by text not null default ''
	)`,
	`create index if not exists refresh_tokens_user_idx on refresh_tokens (user_id) where not revoked`,
	`create index if not exists refresh_tokens_expires_idx on refresh_tokens (expires_at)`,

	`create table if not exists alerts (
		id               text primary key,
		feed_id          text not null,
		severity         text not null,
		alert_type       text not null,
		status           text not null,
		title            text not null default '',
		description      text not null default '',
		confidence       double precision,
		video_url        text not null default '',
		thumbnail_url    text not null default '',
		payload          jsonb,
		source           text not null,
		ts               timestamptz not null,
		resolved         boolean not null default false,
		resolved_by      text not null default '',
		resolved_at      timestamptz,
		resolution_notes text not null default '',
		updated_at       timestamptz not null
	)`,
	`create index if not exists alerts_feed_idx on alerts (feed_id, id desc)`,
	`create index if not exists alerts_status_idx on alerts (status, id desc)`,
}
