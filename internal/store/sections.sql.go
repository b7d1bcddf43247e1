// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/olegiv/newsroom/internal/model"
)

const sectionReturning = `id, name, slug, description, parent_id, sort_order, is_active, created_at, updated_at`

func scanSection(row rowScanner) (model.Section, error) {
	var s model.Section
	err := row.Scan(&s.ID, &s.Name, &s.Slug, &s.Description, &s.ParentID, &s.SortOrder,
		&s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// CreateSectionParams holds the columns of a new section.
type CreateSectionParams struct {
	Name        string
	Slug        string
	Description string
	ParentID    sql.NullInt64
	SortOrder   int64
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const createSection = `-- name: CreateSection :one
INSERT INTO sections (name, slug, description, parent_id, sort_order, is_active, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + sectionReturning

func (q *Queries) CreateSection(ctx context.Context, arg CreateSectionParams) (model.Section, error) {
	return scanSection(q.db.QueryRowContext(ctx, createSection,
		arg.Name, arg.Slug, arg.Description, arg.ParentID, arg.SortOrder, arg.IsActive,
		arg.CreatedAt, arg.UpdatedAt))
}

// UpdateSectionParams holds the full replacement row of a section.
type UpdateSectionParams struct {
	ID          int64
	Name        string
	Slug        string
	Description string
	ParentID    sql.NullInt64
	SortOrder   int64
	IsActive    bool
	UpdatedAt   time.Time
}

const updateSection = `-- name: UpdateSection :one
UPDATE sections SET name = ?, slug = ?, description = ?, parent_id = ?, sort_order = ?, is_active = ?,
	updated_at = ?
WHERE id = ?
RETURNING ` + sectionReturning

func (q *Queries) UpdateSection(ctx context.Context, arg UpdateSectionParams) (model.Section, error) {
	return scanSection(q.db.QueryRowContext(ctx, updateSection,
		arg.Name, arg.Slug, arg.Description, arg.ParentID, arg.SortOrder, arg.IsActive,
		arg.UpdatedAt, arg.ID))
}

const deleteSection = `-- name: DeleteSection :execrows
DELETE FROM sections WHERE id = ?`

// DeleteSection removes a section; sql.ErrNoRows is returned when none matched.
func (q *Queries) DeleteSection(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, deleteSection, id)
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

const getSectionByID = `-- name: GetSectionByID :one
SELECT ` + sectionReturning + ` FROM sections WHERE id = ?`

func (q *Queries) GetSectionByID(ctx context.Context, id int64) (model.Section, error) {
	return scanSection(q.db.QueryRowContext(ctx, getSectionByID, id))
}

const getSectionBySlug = `-- name: GetSectionBySlug :one
SELECT ` + sectionReturning + ` FROM sections WHERE slug = ?`

func (q *Queries) GetSectionBySlug(ctx context.Context, slug string) (model.Section, error) {
	return scanSection(q.db.QueryRowContext(ctx, getSectionBySlug, slug))
}

const sectionSlugExists = `-- name: SectionSlugExists :one
SELECT COUNT(*) FROM sections WHERE slug = ? AND id != ?`

func (q *Queries) SectionSlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var n int64
	if err := q.db.QueryRowContext(ctx, sectionSlugExists, slug, excludeID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

const listSectionsWithCount = `-- name: ListSectionsWithCount :many
SELECT s.id, s.name, s.slug, s.description, s.parent_id, s.sort_order, s.is_active,
	s.created_at, s.updated_at,
	(SELECT COUNT(*) FROM article_sections x JOIN articles a ON a.id = x.article_id
		WHERE x.section_id = s.id AND a.status = 'published' AND a.post_type = 'news') AS article_count
FROM sections s
ORDER BY s.sort_order ASC, s.name COLLATE NOCASE ASC`

// ListSectionsWithCount returns every section with its published news count.
func (q *Queries) ListSectionsWithCount(ctx context.Context) ([]model.Section, error) {
	rows, err := q.db.QueryContext(ctx, listSectionsWithCount)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []model.Section
	for rows.Next() {
		var s model.Section
		if err := rows.Scan(&s.ID, &s.Name, &s.Slug, &s.Description, &s.ParentID, &s.SortOrder,
			&s.IsActive, &s.CreatedAt, &s.UpdatedAt, &s.ArticleCount); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

const clearArticleSections = `-- name: ClearArticleSections :exec
DELETE FROM article_sections WHERE article_id = ?`

func (q *Queries) ClearArticleSections(ctx context.Context, articleID int64) error {
	_, err := q.db.ExecContext(ctx, clearArticleSections, articleID)
	return err
}

const addArticleSection = `-- name: AddArticleSection :exec
INSERT OR IGNORE INTO article_sections (article_id, section_id) VALUES (?, ?)`

func (q *Queries) AddArticleSection(ctx context.Context, articleID, sectionID int64) error {
	_, err := q.db.ExecContext(ctx, addArticleSection, articleID, sectionID)
	return err
}

// GetSectionsForArticles maps article IDs to their sections.
func (q *Queries) GetSectionsForArticles(ctx context.Context, ids []int64) (map[int64][]model.Section, error) {
	out := make(map[int64][]model.Section, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := `SELECT x.article_id, s.id, s.name, s.slug, s.description, s.parent_id, s.sort_order,
		s.is_active, s.created_at, s.updated_at
		FROM article_sections x JOIN sections s ON s.id = x.section_id
		WHERE x.article_id IN (` + placeholders(len(ids)) + `)
		ORDER BY s.sort_order ASC, s.name COLLATE NOCASE ASC`
	rows, err := q.db.QueryContext(ctx, query, int64Args(ids)...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var articleID int64
		var s model.Section
		if err := rows.Scan(&articleID, &s.ID, &s.Name, &s.Slug, &s.Description, &s.ParentID,
			&s.SortOrder, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out[articleID] = append(out[articleID], s)
	}
	return out, rows.Err()
}
