// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain models and types used throughout the application
// including Article, Section, editorial metadata, Event and API keys.
package model

import (
	"database/sql"
	"time"
)

// Post types
const (
	PostTypeNews = "news"
	PostTypePage = "page"
)

// Article statuses
const (
	ArticleStatusDraft     = "draft"
	ArticleStatusPublished = "published"
	ArticleStatusScheduled = "scheduled"
)

// Body formats
const (
	BodyFormatHTML     = "html"
	BodyFormatMarkdown = "markdown"
)

// ValidStatuses lists the accepted article statuses.
var ValidStatuses = []string{ArticleStatusDraft, ArticleStatusPublished, ArticleStatusScheduled}

// ValidPostTypes lists the accepted post types.
var ValidPostTypes = []string{PostTypeNews, PostTypePage}

// Article is a content item joined with its editorial metadata.
type Article struct {
	ID            int64        `json:"id"`
	PostType      string       `json:"post_type"`
	Title         string       `json:"title"`
	Slug          string       `json:"slug"`
	Body          string       `json:"body"`
	BodyFormat    string       `json:"body_format"`
	Excerpt       string       `json:"excerpt"`
	FeaturedImage string       `json:"featured_image,omitempty"`
	AuthorName    string       `json:"author_name"`
	Status        string       `json:"status"`
	PublishedAt   sql.NullTime `json:"-"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
	Meta          ArticleMeta  `json:"meta"`
	Sections      []Section    `json:"sections,omitempty"`
}

// IsNews reports whether the article is of the news post type.
func (a *Article) IsNews() bool {
	return a.PostType == PostTypeNews
}

// IsPublished returns true if the article is published.
func (a *Article) IsPublished() bool {
	return a.Status == ArticleStatusPublished
}

// IsScheduled returns true if the article waits for its publish time.
func (a *Article) IsScheduled() bool {
	return a.Status == ArticleStatusScheduled
}

// DisplayTime returns the time readers should see as the publication time.
func (a *Article) DisplayTime() time.Time {
	if a.PublishedAt.Valid {
		return a.PublishedAt.Time
	}
	return a.CreatedAt
}

// Byline returns the explicit byline or falls back to the author name.
func (a *Article) Byline() string {
	if a.Meta.Byline != "" {
		return a.Meta.Byline
	}
	return a.AuthorName
}

// URL returns the public path of the article.
func (a *Article) URL() string {
	return "/news/" + a.Slug
}

// IsValidStatus checks membership in ValidStatuses.
func IsValidStatus(s string) bool {
	for _, v := range ValidStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsValidPostType checks membership in ValidPostTypes.
func IsValidPostType(s string) bool {
	for _, v := range ValidPostTypes {
		if v == s {
			return true
		}
	}
	return false
}
