// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/newsroom/internal/model"
)

// DefaultSections are created on first start.
var DefaultSections = []struct{ Name, Slug string }{
	{"World", "world"},
	{"Politics", "politics"},
	{"Business", "business"},
	{"Sport", "sport"},
	{"Culture", "culture"},
}

// Seed creates the default sections when the section table is empty.
func Seed(ctx context.Context, db *sql.DB) error {
	queries := New(db)

	existing, err := queries.ListSectionsWithCount(ctx)
	if err != nil {
		return fmt.Errorf("listing sections: %w", err)
	}
	if len(existing) > 0 {
		slog.Info("sections already exist, skipping seed")
		return nil
	}

	now := time.Now().UTC()
	for i, s := range DefaultSections {
		if _, err := queries.CreateSection(ctx, CreateSectionParams{
			Name:      s.Name,
			Slug:      s.Slug,
			SortOrder: int64(i),
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			return fmt.Errorf("creating section %s: %w", s.Slug, err)
		}
	}

	slog.Info("created default sections", "count", len(DefaultSections))
	return nil
}

type demoArticle struct {
	title   string
	section string
	meta    model.ArticleMeta
	age     time.Duration
}

var demoArticles = []demoArticle{
	{"Leaders agree on climate package", "world", model.ArticleMeta{Featured: true}, 30 * time.Minute},
	{"Markets fall after surprise rate decision", "business", model.ArticleMeta{Breaking: true, IsLive: true}, 45 * time.Minute},
	{"Inside the coalition talks", "politics", model.ArticleMeta{Exclusive: true, Byline: "By the Politics Desk"}, 2 * time.Hour},
	{"Cup final goes to extra time", "sport", model.ArticleMeta{IsLive: true}, 3 * time.Hour},
	{"Festival season opens", "culture", model.ArticleMeta{Sponsored: true}, 5 * time.Hour},
	{"Harvest forecast revised", "business", model.ArticleMeta{}, 8 * time.Hour},
	{"City council approves new budget", "politics", model.ArticleMeta{}, 20 * time.Hour},
}

// SeedDemo creates sample news articles for a fresh demo instance.
// It is a no-op when enabled is false or articles already exist.
func SeedDemo(ctx context.Context, db *sql.DB, enabled bool) error {
	if !enabled {
		return nil
	}

	queries := New(db)
	n, err := queries.CountArticles(ctx, ArticleFilter{})
	if err != nil {
		return fmt.Errorf("counting articles: %w", err)
	}
	if n > 0 {
		return nil
	}

	slog.Info("seeding demo content")
	now := time.Now().UTC().Truncate(time.Second)

	for i, d := range demoArticles {
		published := now.Add(-d.age)
		a, err := queries.CreateArticle(ctx, CreateArticleParams{
			PostType:    model.PostTypeNews,
			Title:       d.title,
			Slug:        fmt.Sprintf("demo-%d", i+1),
			Body:        "<p>" + d.title + ". Full story to follow.</p>",
			BodyFormat:  model.BodyFormatHTML,
			Excerpt:     d.title,
			AuthorName:  "Newsroom",
			Status:      model.ArticleStatusPublished,
			PublishedAt: sql.NullTime{Time: published, Valid: true},
			CreatedAt:   published,
			UpdatedAt:   published,
		})
		if err != nil {
			return fmt.Errorf("creating demo article: %w", err)
		}
		if err := queries.SaveArticleMeta(ctx, a.ID, d.meta); err != nil {
			return fmt.Errorf("saving demo meta: %w", err)
		}
		if section, err := queries.GetSectionBySlug(ctx, d.section); err == nil {
			if err := queries.AddArticleSection(ctx, a.ID, section.ID); err != nil {
				return fmt.Errorf("assigning demo section: %w", err)
			}
		}
	}

	slog.Info("demo content created", "articles", len(demoArticles))
	return nil
}
