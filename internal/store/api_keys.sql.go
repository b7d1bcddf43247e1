// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/olegiv/newsroom/internal/model"
)

const apiKeyColumns = `id, name, key_hash, key_prefix, permissions, last_used_at, expires_at, is_active,
	created_at, updated_at`

func scanAPIKey(row rowScanner) (model.APIKey, error) {
	var k model.APIKey
	err := row.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Permissions, &k.LastUsedAt,
		&k.ExpiresAt, &k.IsActive, &k.CreatedAt, &k.UpdatedAt)
	return k, err
}

// CreateAPIKeyParams holds a new API key row.
type CreateAPIKeyParams struct {
	Name        string
	KeyHash     string
	KeyPrefix   string
	Permissions string
	ExpiresAt   sql.NullTime
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const createAPIKey = `-- name: CreateAPIKey :one
INSERT INTO api_keys (name, key_hash, key_prefix, permissions, expires_at, is_active, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, 1, ?, ?)
RETURNING ` + apiKeyColumns

func (q *Queries) CreateAPIKey(ctx context.Context, arg CreateAPIKeyParams) (model.APIKey, error) {
	return scanAPIKey(q.db.QueryRowContext(ctx, createAPIKey, arg.Name, arg.KeyHash, arg.KeyPrefix,
		arg.Permissions, arg.ExpiresAt, arg.CreatedAt, arg.UpdatedAt))
}

const getAPIKeyByHash = `-- name: GetAPIKeyByHash :one
SELECT ` + apiKeyColumns + ` FROM api_keys WHERE key_hash = ?`

func (q *Queries) GetAPIKeyByHash(ctx context.Context, keyHash string) (model.APIKey, error) {
	return scanAPIKey(q.db.QueryRowContext(ctx, getAPIKeyByHash, keyHash))
}

const updateAPIKeyLastUsed = `-- name: UpdateAPIKeyLastUsed :exec
UPDATE api_keys SET last_used_at = ? WHERE id = ?`

func (q *Queries) UpdateAPIKeyLastUsed(ctx context.Context, id int64, at time.Time) error {
	_, err := q.db.ExecContext(ctx, updateAPIKeyLastUsed, at, id)
	return err
}

const deactivateAPIKey = `-- name: DeactivateAPIKey :exec
UPDATE api_keys SET is_active = 0, updated_at = ? WHERE id = ?`

func (q *Queries) DeactivateAPIKey(ctx context.Context, id int64, at time.Time) error {
	_, err := q.db.ExecContext(ctx, deactivateAPIKey, at, id)
	return err
}
