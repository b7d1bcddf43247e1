// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/olegiv/newsroom/internal/model"
)

const articleColumns = `a.id, a.post_type, a.title, a.slug, a.body, a.body_format, a.excerpt,
	a.featured_image, a.author_name, a.status, a.published_at, a.created_at, a.updated_at`

const articleReturning = `id, post_type, title, slug, body, body_format, excerpt,
	featured_image, author_name, status, published_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (model.Article, error) {
	var a model.Article
	err := row.Scan(
		&a.ID, &a.PostType, &a.Title, &a.Slug, &a.Body, &a.BodyFormat, &a.Excerpt,
		&a.FeaturedImage, &a.AuthorName, &a.Status, &a.PublishedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

func scanArticles(rows *sql.Rows) ([]model.Article, error) {
	defer func() { _ = rows.Close() }()
	var items []model.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createArticle = `-- name: CreateArticle :one
INSERT INTO articles (post_type, title, slug, body, body_format, excerpt, featured_image,
	author_name, status, published_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + articleReturning

// CreateArticleParams holds the columns of a new article.
type CreateArticleParams struct {
	PostType      string
	Title         string
	Slug          string
	Body          string
	BodyFormat    string
	Excerpt       string
	FeaturedImage string
	AuthorName    string
	Status        string
	PublishedAt   sql.NullTime
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (q *Queries) CreateArticle(ctx context.Context, arg CreateArticleParams) (model.Article, error) {
	row := q.db.QueryRowContext(ctx, createArticle,
		arg.PostType, arg.Title, arg.Slug, arg.Body, arg.BodyFormat, arg.Excerpt, arg.FeaturedImage,
		arg.AuthorName, arg.Status, arg.PublishedAt, arg.CreatedAt, arg.UpdatedAt,
	)
	return scanArticle(row)
}

const updateArticle = `-- name: UpdateArticle :one
UPDATE articles SET post_type = ?, title = ?, slug = ?, body = ?, body_format = ?, excerpt = ?,
	featured_image = ?, author_name = ?, status = ?, published_at = ?, updated_at = ?
WHERE id = ?
RETURNING ` + articleReturning

// UpdateArticleParams holds the full replacement row of an article.
type UpdateArticleParams struct {
	ID            int64
	PostType      string
	Title         string
	Slug          string
	Body          string
	BodyFormat    string
	Excerpt       string
	FeaturedImage string
	AuthorName    string
	Status        string
	PublishedAt   sql.NullTime
	UpdatedAt     time.Time
}

func (q *Queries) UpdateArticle(ctx context.Context, arg UpdateArticleParams) (model.Article, error) {
	row := q.db.QueryRowContext(ctx, updateArticle,
		arg.PostType, arg.Title, arg.Slug, arg.Body, arg.BodyFormat, arg.Excerpt,
		arg.FeaturedImage, arg.AuthorName, arg.Status, arg.PublishedAt, arg.UpdatedAt, arg.ID,
	)
	return scanArticle(row)
}

const deleteArticle = `-- name: DeleteArticle :execrows
DELETE FROM articles WHERE id = ?`

// DeleteArticle removes an article; sql.ErrNoRows is returned when none matched.
func (q *Queries) DeleteArticle(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, deleteArticle, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const getArticleByID = `-- name: GetArticleByID :one
SELECT ` + articleColumns + ` FROM articles a WHERE a.id = ?`

func (q *Queries) GetArticleByID(ctx context.Context, id int64) (model.Article, error) {
	return scanArticle(q.db.QueryRowContext(ctx, getArticleByID, id))
}

const getArticleBySlug = `-- name: GetArticleBySlug :one
SELECT ` + articleColumns + ` FROM articles a WHERE a.slug = ?`

func (q *Queries) GetArticleBySlug(ctx context.Context, slug string) (model.Article, error) {
	return scanArticle(q.db.QueryRowContext(ctx, getArticleBySlug, slug))
}

const articleSlugExists = `-- name: ArticleSlugExists :one
SELECT COUNT(*) FROM articles WHERE slug = ? AND id != ?`

// ArticleSlugExists reports whether slug is taken by an article other than excludeID.
func (q *Queries) ArticleSlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var n int64
	if err := q.db.QueryRowContext(ctx, articleSlugExists, slug, excludeID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

const listScheduledDue = `-- name: ListScheduledDue :many
SELECT ` + articleColumns + ` FROM articles a
WHERE a.status = 'scheduled' AND a.published_at IS NOT NULL AND a.published_at <= ?
ORDER BY a.published_at ASC`

// ListScheduledDue returns scheduled articles whose publish time is at or before now.
func (q *Queries) ListScheduledDue(ctx context.Context, now time.Time) ([]model.Article, error) {
	rows, err := q.db.QueryContext(ctx, listScheduledDue, now)
	if err != nil {
		return nil, err
	}
	return scanArticles(rows)
}

const publishArticle = `-- name: PublishArticle :exec
UPDATE articles SET status = 'published', updated_at = ? WHERE id = ?`

func (q *Queries) PublishArticle(ctx context.Context, id int64, now time.Time) error {
	_, err := q.db.ExecContext(ctx, publishArticle, now, id)
	return err
}

// Article orderings accepted by ArticleFilter.Order.
const (
	OrderNewest = "newest"
	OrderOldest = "oldest"
	OrderTitle  = "title"
)

// Unbounded disables the LIMIT of a listing.
const Unbounded int64 = -1

// ArticleFilter narrows ListArticles and CountArticles. Zero values mean
// "no restriction" except Limit, where 0 returns no rows and Unbounded
// returns all of them.
type ArticleFilter struct {
	PostType       string
	Status         string
	SectionSlug    string
	FeaturedOnly   bool
	BreakingOnly   bool
	PublishedSince time.Time
	Order          string
	Offset         int64
	Limit          int64
}

func (f ArticleFilter) where() (string, []any) {
	var conds []string
	var args []any

	if f.PostType != "" {
		conds = append(conds, "a.post_type = ?")
		args = append(args, f.PostType)
	}
	if f.Status != "" {
		conds = append(conds, "a.status = ?")
		args = append(args, f.Status)
	}
	if f.SectionSlug != "" {
		conds = append(conds, `EXISTS (SELECT 1 FROM article_sections x JOIN sections s ON s.id = x.section_id
			WHERE x.article_id = a.id AND s.slug = ?)`)
		args = append(args, f.SectionSlug)
	}
	if f.FeaturedOnly {
		conds = append(conds, metaFlagCond)
		args = append(args, model.MetaFeatured)
	}
	if f.BreakingOnly {
		conds = append(conds, metaFlagCond)
		args = append(args, model.MetaBreaking)
	}
	if !f.PublishedSince.IsZero() {
		conds = append(conds, "a.published_at >= ?")
		args = append(args, f.PublishedSince)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

const metaFlagCond = `EXISTS (SELECT 1 FROM article_meta m
	WHERE m.article_id = a.id AND m.meta_key = ? AND m.meta_value = '1')`

func (f ArticleFilter) orderBy() string {
	switch f.Order {
	case OrderOldest:
		return " ORDER BY COALESCE(a.published_at, a.created_at) ASC, a.id ASC"
	case OrderTitle:
		return " ORDER BY a.title COLLATE NOCASE ASC, a.id ASC"
	default:
		return " ORDER BY COALESCE(a.published_at, a.created_at) DESC, a.id DESC"
	}
}

// ListArticles returns one page of articles matching f.
func (q *Queries) ListArticles(ctx context.Context, f ArticleFilter) ([]model.Article, error) {
	where, args := f.where()
	query := "SELECT " + articleColumns + " FROM articles a" + where + f.orderBy() + " LIMIT ? OFFSET ?"

	limit := f.Limit
	if limit < 0 {
		limit = Unbounded
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanArticles(rows)
}

// CountArticles returns the number of articles matching f, ignoring paging.
func (q *Queries) CountArticles(ctx context.Context, f ArticleFilter) (int64, error) {
	where, args := f.where()
	var n int64
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles a"+where, args...).Scan(&n)
	return n, err
}
