// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"strings"

	"github.com/olegiv/newsroom/internal/model"
)

const upsertArticleMeta = `-- name: UpsertArticleMeta :exec
INSERT INTO article_meta (article_id, meta_key, meta_value) VALUES (?, ?, ?)
ON CONFLICT(article_id, meta_key) DO UPDATE SET meta_value = excluded.meta_value`

// UpsertArticleMeta writes one metadata value, replacing any previous one.
func (q *Queries) UpsertArticleMeta(ctx context.Context, articleID int64, key, value string) error {
	_, err := q.db.ExecContext(ctx, upsertArticleMeta, articleID, key, value)
	return err
}

// SaveArticleMeta writes every field of m for the article.
func (q *Queries) SaveArticleMeta(ctx context.Context, articleID int64, m model.ArticleMeta) error {
	values := m.Values()
	for _, f := range model.MetaFields {
		if err := q.UpsertArticleMeta(ctx, articleID, f.Key, values[f.Key]); err != nil {
			return err
		}
	}
	return nil
}

const getArticleMeta = `-- name: GetArticleMeta :many
SELECT meta_key, meta_value FROM article_meta WHERE article_id = ?`

// GetArticleMeta loads the metadata of one article. Missing keys stay zero.
func (q *Queries) GetArticleMeta(ctx context.Context, articleID int64) (model.ArticleMeta, error) {
	var m model.ArticleMeta
	rows, err := q.db.QueryContext(ctx, getArticleMeta, articleID)
	if err != nil {
		return m, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return m, err
		}
		m.Set(key, value)
	}
	return m, rows.Err()
}

// GetArticleMetaBatch loads metadata for several articles in one query.
func (q *Queries) GetArticleMetaBatch(ctx context.Context, ids []int64) (map[int64]model.ArticleMeta, error) {
	out := make(map[int64]model.ArticleMeta, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := "SELECT article_id, meta_key, meta_value FROM article_meta WHERE article_id IN (" +
		placeholders(len(ids)) + ")"
	rows, err := q.db.QueryContext(ctx, query, int64Args(ids)...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id int64
		var key, value string
		if err := rows.Scan(&id, &key, &value); err != nil {
			return nil, err
		}
		m := out[id]
		m.Set(key, value)
		out[id] = m
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
