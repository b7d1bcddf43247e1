// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/olegiv/newsroom/internal/cache"
	"github.com/olegiv/newsroom/internal/model"
	"github.com/olegiv/newsroom/internal/multiquery"
	"github.com/olegiv/newsroom/internal/security"
	"github.com/olegiv/newsroom/internal/shortcode"
	"github.com/olegiv/newsroom/internal/store"
	"github.com/olegiv/newsroom/internal/util"
)

// Cache groups. Article writes clear both because sections carry counts.
const (
	GroupArticles = "articles:"
	GroupSections = "sections:"
)

// ExcerptLength is the rune length of generated excerpts.
const ExcerptLength = 200

// Hooks dispatches named hooks. *module.HookRegistry satisfies it.
type Hooks interface {
	Call(ctx context.Context, hookName string, data any) (any, error)
}

type noHooks struct{}

func (noHooks) Call(_ context.Context, _ string, data any) (any, error) { return data, nil }

// ArticleInput is the editable part of an article. On update, a nil Meta or
// a nil Sections keeps the stored value.
type ArticleInput struct {
	PostType      string
	Title         string
	Slug          string
	Body          string
	BodyFormat    string
	Excerpt       string
	FeaturedImage string
	AuthorName    string
	Status        string
	PublishedAt   *time.Time
	Meta          *model.ArticleMeta
	Sections      []string // section slugs
}

// ArticleService manages news articles with their metadata and sections.
type ArticleService struct {
	db      *sql.DB
	queries *store.Queries
	cache   *cache.Store
	ttl     time.Duration
	hooks   Hooks
	logger  *slog.Logger
	now     func() time.Time
}

// NewArticleService creates an ArticleService. hooks may be nil.
func NewArticleService(db *sql.DB, c *cache.Store, ttl time.Duration, hooks Hooks, logger *slog.Logger) *ArticleService {
	if hooks == nil {
		hooks = noHooks{}
	}
	return &ArticleService{
		db:      db,
		queries: store.New(db),
		cache:   c,
		ttl:     ttl,
		hooks:   hooks,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// GetArticle returns the article with its metadata and sections.
// sql.ErrNoRows is returned when it does not exist.
func (s *ArticleService) GetArticle(ctx context.Context, id int64) (*model.Article, error) {
	key := fmt.Sprintf("%sid:%d", GroupArticles, id)
	a, err := cache.Remember(ctx, s.cache, key, s.ttl, func(ctx context.Context) (model.Article, error) {
		a, err := s.queries.GetArticleByID(ctx, id)
		if err != nil {
			return a, err
		}
		return s.hydrateOne(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetArticleBySlug returns the article with the given slug.
func (s *ArticleService) GetArticleBySlug(ctx context.Context, slug string) (*model.Article, error) {
	key := GroupArticles + "slug:" + slug
	a, err := cache.Remember(ctx, s.cache, key, s.ttl, func(ctx context.Context) (model.Article, error) {
		a, err := s.queries.GetArticleBySlug(ctx, slug)
		if err != nil {
			return a, err
		}
		return s.hydrateOne(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// List returns the articles matching f with metadata and sections loaded.
// Queries bounded by PublishedSince are not cached.
func (s *ArticleService) List(ctx context.Context, f store.ArticleFilter) ([]model.Article, error) {
	load := func(ctx context.Context) ([]model.Article, error) {
		items, err := s.queries.ListArticles(ctx, f)
		if err != nil {
			return nil, err
		}
		if err := s.hydrate(ctx, items); err != nil {
			return nil, err
		}
		return items, nil
	}
	if !f.PublishedSince.IsZero() {
		return load(ctx)
	}
	return cache.Remember(ctx, s.cache, GroupArticles+"list:"+filterKey(f), s.ttl, load)
}

// Count returns the number of articles matching f, ignoring paging.
func (s *ArticleService) Count(ctx context.Context, f store.ArticleFilter) (int64, error) {
	f.Offset, f.Limit = 0, 0
	return cache.Remember(ctx, s.cache, GroupArticles+"count:"+filterKey(f), s.ttl, func(ctx context.Context) (int64, error) {
		return s.queries.CountArticles(ctx, f)
	})
}

func filterKey(f store.ArticleFilter) string {
	return fmt.Sprintf("%s|%s|%s|%t|%t|%s|%d|%d",
		f.PostType, f.Status, f.SectionSlug, f.FeaturedOnly, f.BreakingOnly, f.Order, f.Offset, f.Limit)
}

func (s *ArticleService) hydrateOne(ctx context.Context, a model.Article) (model.Article, error) {
	items := []model.Article{a}
	if err := s.hydrate(ctx, items); err != nil {
		return a, err
	}
	return items[0], nil
}

func (s *ArticleService) hydrate(ctx context.Context, items []model.Article) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]int64, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}

	metas, err := s.queries.GetArticleMetaBatch(ctx, ids)
	if err != nil {
		return fmt.Errorf("loading article meta: %w", err)
	}
	sections, err := s.queries.GetSectionsForArticles(ctx, ids)
	if err != nil {
		return fmt.Errorf("loading article sections: %w", err)
	}
	for i := range items {
		items[i].Meta = metas[items[i].ID]
		items[i].Sections = sections[items[i].ID]
	}
	return nil
}

// prepared is a validated and sanitized ArticleInput.
type prepared struct {
	in         ArticleInput
	published  sql.NullTime
	sectionIDs []int64
}

// prepare validates in and normalizes it for storage. existing is nil on create.
func (s *ArticleService) prepare(ctx context.Context, in ArticleInput, existing *model.Article) (*prepared, error) {
	ve := security.NewValidationError()

	in.Title = security.PlainText(in.Title)
	in.AuthorName = security.PlainText(in.AuthorName)
	in.FeaturedImage = strings.TrimSpace(in.FeaturedImage)
	ve.Require("title", "Title", in.Title)

	if in.PostType == "" {
		in.PostType = model.PostTypeNews
	}
	if !model.IsValidPostType(in.PostType) {
		ve.Add("post_type", "must be one of "+strings.Join(model.ValidPostTypes, ", "))
	}
	if in.Status == "" {
		in.Status = model.ArticleStatusDraft
	}
	if !model.IsValidStatus(in.Status) {
		ve.Add("status", "must be one of "+strings.Join(model.ValidStatuses, ", "))
	}
	if in.BodyFormat == "" {
		in.BodyFormat = model.BodyFormatHTML
	}
	switch in.BodyFormat {
	case model.BodyFormatHTML:
		in.Body = security.SanitizeHTML(in.Body)
	case model.BodyFormatMarkdown:
	default:
		ve.Add("body_format", "must be html or markdown")
	}
	if in.FeaturedImage != "" && !validImageRef(in.FeaturedImage) {
		ve.Add("featured_image", "must be a path or an http(s) URL")
	}

	p := &prepared{}
	switch {
	case in.PublishedAt != nil:
		p.published = util.NullTimeFromPtr(in.PublishedAt)
	case existing != nil && existing.PublishedAt.Valid:
		p.published = existing.PublishedAt
	}
	if in.Status == model.ArticleStatusScheduled && !p.published.Valid {
		ve.Add("published_at", "is required for scheduled articles")
	}
	if in.Status == model.ArticleStatusPublished && !p.published.Valid {
		p.published = sql.NullTime{Time: s.now(), Valid: true}
	}

	if in.Meta != nil {
		meta, err := normalizeMeta(*in.Meta)
		if err != nil {
			ve.Add("meta.last_updated", err.Error())
		}
		in.Meta = &meta
	}

	for _, slug := range in.Sections {
		sec, err := s.queries.GetSectionBySlug(ctx, slug)
		if errors.Is(err, sql.ErrNoRows) {
			ve.Add("sections", "unknown section "+slug)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("looking up section %q: %w", slug, err)
		}
		p.sectionIDs = append(p.sectionIDs, sec.ID)
	}

	var excludeID int64
	if existing != nil {
		excludeID = existing.ID
	}
	if err := s.resolveSlug(ctx, &in, excludeID, ve); err != nil {
		return nil, err
	}

	if err := ve.Err(); err != nil {
		return nil, err
	}

	in.Excerpt = security.PlainText(in.Excerpt)
	if in.Excerpt == "" {
		body, err := security.RenderBody(shortcode.Strip(in.Body, shortcode.NewsTags), in.BodyFormat)
		if err == nil {
			in.Excerpt = security.Excerpt(string(body), ExcerptLength)
		}
	}

	p.in = in
	return p, nil
}

// resolveSlug normalizes an explicit slug or derives a free one from the title.
func (s *ArticleService) resolveSlug(ctx context.Context, in *ArticleInput, excludeID int64, ve *security.ValidationError) error {
	exists := func(slug string) (bool, error) {
		return s.queries.ArticleSlugExists(ctx, slug, excludeID)
	}

	if in.Slug != "" {
		in.Slug = util.Slugify(in.Slug)
		if !util.IsValidSlug(in.Slug) {
			ve.Add("slug", "must contain letters or digits")
			return nil
		}
		taken, err := exists(in.Slug)
		if err != nil {
			return fmt.Errorf("checking slug: %w", err)
		}
		if taken {
			ve.Add("slug", "is already in use")
		}
		return nil
	}

	base := util.Slugify(in.Title)
	if base == "" {
		if in.Title != "" {
			base = "article"
		} else {
			return nil
		}
	}
	slug, err := util.UniqueSlug(base, exists)
	if err != nil {
		return fmt.Errorf("generating slug: %w", err)
	}
	in.Slug = slug
	return nil
}

func validImageRef(ref string) bool {
	if strings.HasPrefix(ref, "/") {
		return !strings.HasPrefix(ref, "//")
	}
	u, err := url.Parse(ref)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// normalizeMeta sanitizes text fields and rewrites last_updated as RFC 3339 UTC.
func normalizeMeta(m model.ArticleMeta) (model.ArticleMeta, error) {
	m.Byline = security.PlainText(m.Byline)
	if strings.TrimSpace(m.LastUpdated) == "" {
		m.LastUpdated = ""
		return m, nil
	}
	t, ok := model.ParseMetaTime(m.LastUpdated)
	if !ok {
		return m, errors.New("must be RFC 3339 or YYYY-MM-DD HH:MM:SS")
	}
	m.LastUpdated = t.UTC().Format(time.RFC3339)
	return m, nil
}

// Create validates and stores a new article.
func (s *ArticleService) Create(ctx context.Context, in ArticleInput) (*model.Article, error) {
	p, err := s.prepare(ctx, in, nil)
	if err != nil {
		return nil, err
	}

	var id int64
	err = s.inTx(ctx, func(q *store.Queries) error {
		now := s.now()
		a, err := q.CreateArticle(ctx, store.CreateArticleParams{
			PostType:      p.in.PostType,
			Title:         p.in.Title,
			Slug:          p.in.Slug,
			Body:          p.in.Body,
			BodyFormat:    p.in.BodyFormat,
			Excerpt:       p.in.Excerpt,
			FeaturedImage: p.in.FeaturedImage,
			AuthorName:    p.in.AuthorName,
			Status:        p.in.Status,
			PublishedAt:   p.published,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		if err != nil {
			return fmt.Errorf("creating article: %w", err)
		}
		id = a.ID

		meta := model.ArticleMeta{}
		if p.in.Meta != nil {
			meta = *p.in.Meta
		}
		if err := q.SaveArticleMeta(ctx, id, meta); err != nil {
			return fmt.Errorf("saving article meta: %w", err)
		}
		return assignSections(ctx, q, id, p.sectionIDs)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("article created", "id", id, "slug", p.in.Slug)
	return s.afterSave(ctx, id, true, nil)
}

// Update replaces the editable fields of an article.
func (s *ArticleService) Update(ctx context.Context, id int64, in ArticleInput) (*model.Article, error) {
	existing, err := s.queries.GetArticleByID(ctx, id)
	if err != nil {
		return nil, err
	}
	prev, err := s.GetArticle(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := s.prepare(ctx, in, &existing)
	if err != nil {
		return nil, err
	}

	err = s.inTx(ctx, func(q *store.Queries) error {
		_, err := q.UpdateArticle(ctx, store.UpdateArticleParams{
			ID:            id,
			PostType:      p.in.PostType,
			Title:         p.in.Title,
			Slug:          p.in.Slug,
			Body:          p.in.Body,
			BodyFormat:    p.in.BodyFormat,
			Excerpt:       p.in.Excerpt,
			FeaturedImage: p.in.FeaturedImage,
			AuthorName:    p.in.AuthorName,
			Status:        p.in.Status,
			PublishedAt:   p.published,
			UpdatedAt:     s.now(),
		})
		if err != nil {
			return fmt.Errorf("updating article: %w", err)
		}
		if p.in.Meta != nil {
			if err := q.SaveArticleMeta(ctx, id, *p.in.Meta); err != nil {
				return fmt.Errorf("saving article meta: %w", err)
			}
		}
		if in.Sections != nil {
			if err := q.ClearArticleSections(ctx, id); err != nil {
				return fmt.Errorf("clearing article sections: %w", err)
			}
			return assignSections(ctx, q, id, p.sectionIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.afterSave(ctx, id, false, prev)
}

// SaveMeta replaces the editorial metadata of an article.
func (s *ArticleService) SaveMeta(ctx context.Context, id int64, meta model.ArticleMeta) (*model.Article, error) {
	prev, err := s.GetArticle(ctx, id)
	if err != nil {
		return nil, err
	}
	meta, err = normalizeMeta(meta)
	if err != nil {
		ve := security.NewValidationError()
		ve.Add("last_updated", err.Error())
		return nil, ve
	}
	if err := s.queries.SaveArticleMeta(ctx, id, meta); err != nil {
		return nil, fmt.Errorf("saving article meta: %w", err)
	}
	return s.afterSave(ctx, id, false, prev)
}

// Delete removes an article. sql.ErrNoRows is returned when it does not exist.
func (s *ArticleService) Delete(ctx context.Context, id int64) error {
	existing, err := s.queries.GetArticleByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.queries.DeleteArticle(ctx, id); err != nil {
		return err
	}

	s.Invalidate(ctx)
	s.logger.Info("article deleted", "id", id, "slug", existing.Slug)
	s.fire(ctx, model.HookArticleAfterDelete, &model.ArticleDeleted{ID: id, Slug: existing.Slug})
	return nil
}

// PublishDue publishes every scheduled article whose publish time has passed
// and returns how many were published.
func (s *ArticleService) PublishDue(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.queries.ListScheduledDue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("listing scheduled articles: %w", err)
	}

	published := 0
	for _, a := range due {
		prev, err := s.hydrateOne(ctx, a)
		if err != nil {
			s.logger.Warn("failed to load scheduled article", "id", a.ID, "error", err)
			prev = a
		}
		if err := s.queries.PublishArticle(ctx, a.ID, now); err != nil {
			s.logger.Error("failed to publish scheduled article", "id", a.ID, "error", err)
			continue
		}
		published++
		if _, err := s.afterSave(ctx, a.ID, false, &prev); err != nil {
			s.logger.Warn("failed to reload published article", "id", a.ID, "error", err)
		}
	}
	return published, nil
}

// Invalidate clears every cached article and section read.
func (s *ArticleService) Invalidate(ctx context.Context) {
	for _, group := range []string{GroupArticles, GroupSections} {
		if err := s.cache.DeleteGroup(ctx, group); err != nil {
			s.logger.Warn("cache invalidation failed", "group", group, "error", err, "category", model.EventCategoryCache)
		}
	}
}

func (s *ArticleService) afterSave(ctx context.Context, id int64, created bool, prev *model.Article) (*model.Article, error) {
	s.Invalidate(ctx)
	a, err := s.GetArticle(ctx, id)
	if err != nil {
		return nil, err
	}
	s.fire(ctx, model.HookArticleAfterSave, &model.ArticleSaved{Article: a, Previous: prev, Created: created})
	return a, nil
}

// fire runs a hook. The write has already been committed, so handler
// errors are logged only.
func (s *ArticleService) fire(ctx context.Context, hook string, data any) {
	if _, err := s.hooks.Call(ctx, hook, data); err != nil {
		s.logger.Warn("article hook failed", "hook", hook, "error", err)
	}
}

func (s *ArticleService) inTx(ctx context.Context, fn func(q *store.Queries) error) error {
	return withTx(ctx, s.db, s.queries, fn)
}

func withTx(ctx context.Context, db *sql.DB, queries *store.Queries, fn func(q *store.Queries) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(queries.WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit()
}

func assignSections(ctx context.Context, q *store.Queries, articleID int64, sectionIDs []int64) error {
	for _, sid := range sectionIDs {
		if err := q.AddArticleSection(ctx, articleID, sid); err != nil {
			return fmt.Errorf("assigning section %d: %w", sid, err)
		}
	}
	return nil
}

// Fetch runs a multi-query window against published news. It is the
// multiquery.FetchFunc of the news blocks and the home page.
func (s *ArticleService) Fetch(ctx context.Context, q multiquery.Query) ([]model.Article, error) {
	if q.Limit == 0 {
		return nil, nil
	}
	return s.List(ctx, store.ArticleFilter{
		PostType:     model.PostTypeNews,
		Status:       model.ArticleStatusPublished,
		SectionSlug:  q.Section,
		FeaturedOnly: q.FeaturedOnly,
		BreakingOnly: q.BreakingOnly,
		Order:        q.Order,
		Offset:       q.Offset,
		Limit:        q.Limit,
	})
}
