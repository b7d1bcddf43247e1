// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/olegiv/newsroom/internal/model"
)

// testDB creates a temporary test database.
func testDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	f, err := os.CreateTemp("", "newsroom-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	_ = f.Close()

	db, err := NewDB(dbPath)
	if err != nil {
		_ = os.Remove(dbPath)
		t.Fatalf("NewDB: %v", err)
	}

	if err := Migrate(db); err != nil {
		_ = db.Close()
		_ = os.Remove(dbPath)
		t.Fatalf("Migrate: %v", err)
	}

	cleanup := func() {
		_ = db.Close()
		_ = os.Remove(dbPath)
		_ = os.Remove(dbPath + "-wal")
		_ = os.Remove(dbPath + "-shm")
	}

	return db, cleanup
}

func createTestArticle(t *testing.T, q *Queries, slug string, published time.Time, meta model.ArticleMeta) model.Article {
	t.Helper()
	ctx := context.Background()

	a, err := q.CreateArticle(ctx, CreateArticleParams{
		PostType:    model.PostTypeNews,
		Title:       "Title " + slug,
		Slug:        slug,
		Body:        "<p>body</p>",
		BodyFormat:  model.BodyFormatHTML,
		Status:      model.ArticleStatusPublished,
		PublishedAt: sql.NullTime{Time: published, Valid: true},
		CreatedAt:   published,
		UpdatedAt:   published,
	})
	if err != nil {
		t.Fatalf("CreateArticle(%s): %v", slug, err)
	}
	if err := q.SaveArticleMeta(ctx, a.ID, meta); err != nil {
		t.Fatalf("SaveArticleMeta: %v", err)
	}
	return a
}

func TestCreateAndGetArticle(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	now := time.Now().UTC().Truncate(time.Second)

	created := createTestArticle(t, q, "first", now, model.ArticleMeta{Featured: true, Byline: "Jane"})
	if created.ID == 0 {
		t.Fatal("created.ID should not be 0")
	}

	found, err := q.GetArticleBySlug(ctx, "first")
	if err != nil {
		t.Fatalf("GetArticleBySlug: %v", err)
	}
	if found.ID != created.ID || found.Title != "Title first" {
		t.Errorf("found = %+v", found)
	}
	if !found.PublishedAt.Valid || !found.PublishedAt.Time.Equal(now) {
		t.Errorf("PublishedAt = %v, want %v", found.PublishedAt, now)
	}

	meta, err := q.GetArticleMeta(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetArticleMeta: %v", err)
	}
	if !meta.Featured || meta.Breaking || meta.Byline != "Jane" {
		t.Errorf("meta = %+v", meta)
	}
}

func TestGetArticle_NotFound(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	_, err := New(db).GetArticleByID(context.Background(), 999)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
	if err := New(db).DeleteArticle(context.Background(), 999); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("DeleteArticle: expected sql.ErrNoRows, got %v", err)
	}
}

func TestUpsertArticleMeta(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	a := createTestArticle(t, q, "meta", time.Now().UTC(), model.ArticleMeta{})

	if err := q.UpsertArticleMeta(ctx, a.ID, model.MetaBreaking, "1"); err != nil {
		t.Fatalf("UpsertArticleMeta: %v", err)
	}
	if err := q.UpsertArticleMeta(ctx, a.ID, model.MetaBreaking, "0"); err != nil {
		t.Fatalf("UpsertArticleMeta second write: %v", err)
	}

	meta, err := q.GetArticleMeta(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetArticleMeta: %v", err)
	}
	if meta.Breaking {
		t.Error("second write should replace the first")
	}
}

func TestListArticles_FiltersAndPaging(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	base := time.Now().UTC().Truncate(time.Second)

	createTestArticle(t, q, "a", base.Add(-1*time.Hour), model.ArticleMeta{Featured: true})
	createTestArticle(t, q, "b", base.Add(-2*time.Hour), model.ArticleMeta{Breaking: true})
	createTestArticle(t, q, "c", base.Add(-3*time.Hour), model.ArticleMeta{})
	createTestArticle(t, q, "d", base.Add(-4*time.Hour), model.ArticleMeta{Featured: true})

	all, err := q.ListArticles(ctx, ArticleFilter{Limit: Unbounded})
	if err != nil {
		t.Fatalf("ListArticles: %v", err)
	}
	assertSlugs(t, all, "a", "b", "c", "d")

	page, err := q.ListArticles(ctx, ArticleFilter{Offset: 1, Limit: 2})
	if err != nil {
		t.Fatalf("ListArticles page: %v", err)
	}
	assertSlugs(t, page, "b", "c")

	none, err := q.ListArticles(ctx, ArticleFilter{Limit: 0})
	if err != nil {
		t.Fatalf("ListArticles zero: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Limit 0 returned %d rows", len(none))
	}

	featured, err := q.ListArticles(ctx, ArticleFilter{FeaturedOnly: true, Limit: Unbounded})
	if err != nil {
		t.Fatalf("ListArticles featured: %v", err)
	}
	assertSlugs(t, featured, "a", "d")

	oldest, err := q.ListArticles(ctx, ArticleFilter{Order: OrderOldest, Limit: 1})
	if err != nil {
		t.Fatalf("ListArticles oldest: %v", err)
	}
	assertSlugs(t, oldest, "d")

	n, err := q.CountArticles(ctx, ArticleFilter{BreakingOnly: true})
	if err != nil || n != 1 {
		t.Errorf("CountArticles(breaking) = %d, %v; want 1", n, err)
	}

	recent, err := q.ListArticles(ctx, ArticleFilter{PublishedSince: base.Add(-150 * time.Minute), Limit: Unbounded})
	if err != nil {
		t.Fatalf("ListArticles since: %v", err)
	}
	assertSlugs(t, recent, "a", "b")
}

func TestSectionsAndAssignments(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	now := time.Now().UTC()

	world, err := q.CreateSection(ctx, CreateSectionParams{Name: "World", Slug: "world", IsActive: true, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("CreateSection: %v", err)
	}
	europe, err := q.CreateSection(ctx, CreateSectionParams{
		Name: "Europe", Slug: "europe", ParentID: sql.NullInt64{Int64: world.ID, Valid: true},
		SortOrder: 1, IsActive: true, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateSection child: %v", err)
	}

	a := createTestArticle(t, q, "in-europe", now, model.ArticleMeta{})
	createTestArticle(t, q, "elsewhere", now.Add(-time.Minute), model.ArticleMeta{})
	if err := q.AddArticleSection(ctx, a.ID, europe.ID); err != nil {
		t.Fatalf("AddArticleSection: %v", err)
	}

	list, err := q.ListArticles(ctx, ArticleFilter{SectionSlug: "europe", Limit: Unbounded})
	if err != nil {
		t.Fatalf("ListArticles section: %v", err)
	}
	assertSlugs(t, list, "in-europe")

	sections, err := q.ListSectionsWithCount(ctx)
	if err != nil {
		t.Fatalf("ListSectionsWithCount: %v", err)
	}
	if len(sections) != 2 || sections[1].Slug != "europe" || sections[1].ArticleCount != 1 {
		t.Errorf("sections = %+v", sections)
	}

	bySection, err := q.GetSectionsForArticles(ctx, []int64{a.ID})
	if err != nil {
		t.Fatalf("GetSectionsForArticles: %v", err)
	}
	if len(bySection[a.ID]) != 1 || bySection[a.ID][0].Slug != "europe" {
		t.Errorf("bySection = %+v", bySection)
	}

	exists, err := q.SectionSlugExists(ctx, "world", europe.ID)
	if err != nil || !exists {
		t.Errorf("SectionSlugExists(world) = %v, %v", exists, err)
	}
}

func TestListScheduledDue(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	now := time.Now().UTC().Truncate(time.Second)

	for _, tc := range []struct {
		slug string
		at   time.Time
	}{{"due", now.Add(-time.Minute)}, {"later", now.Add(time.Hour)}} {
		if _, err := q.CreateArticle(ctx, CreateArticleParams{
			PostType: model.PostTypeNews, Title: tc.slug, Slug: tc.slug, BodyFormat: model.BodyFormatHTML,
			Status: model.ArticleStatusScheduled, PublishedAt: sql.NullTime{Time: tc.at, Valid: true},
			CreatedAt: now, UpdatedAt: now,
		}); err != nil {
			t.Fatalf("CreateArticle: %v", err)
		}
	}

	due, err := q.ListScheduledDue(ctx, now)
	if err != nil {
		t.Fatalf("ListScheduledDue: %v", err)
	}
	assertSlugs(t, due, "due")

	if err := q.PublishArticle(ctx, due[0].ID, now); err != nil {
		t.Fatalf("PublishArticle: %v", err)
	}
	got, _ := q.GetArticleByID(ctx, due[0].ID)
	if got.Status != model.ArticleStatusPublished {
		t.Errorf("Status = %q, want published", got.Status)
	}
}

func TestAPIKeyLookup(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	now := time.Now().UTC()

	raw, prefix, err := model.GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	created, err := q.CreateAPIKey(ctx, CreateAPIKeyParams{
		Name: "ci", KeyHash: model.HashAPIKey(raw), KeyPrefix: prefix,
		Permissions: model.PermissionsToJSON(model.AllPermissions()), CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}

	found, err := q.GetAPIKeyByHash(ctx, model.HashAPIKey(raw))
	if err != nil {
		t.Fatalf("GetAPIKeyByHash: %v", err)
	}
	if found.ID != created.ID || !found.IsValid() || !found.HasPermission(model.PermissionArticlesWrite) {
		t.Errorf("found = %+v", found)
	}

	if err := q.DeactivateAPIKey(ctx, found.ID, now); err != nil {
		t.Fatalf("DeactivateAPIKey: %v", err)
	}
	found, _ = q.GetAPIKeyByHash(ctx, model.HashAPIKey(raw))
	if found.IsValid() {
		t.Error("deactivated key should be invalid")
	}
}

func TestSeed(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	if err := Seed(ctx, db); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if err := Seed(ctx, db); err != nil {
		t.Fatalf("Seed twice: %v", err)
	}
	sections, err := New(db).ListSectionsWithCount(ctx)
	if err != nil {
		t.Fatalf("ListSectionsWithCount: %v", err)
	}
	if len(sections) != len(DefaultSections) {
		t.Errorf("len(sections) = %d, want %d", len(sections), len(DefaultSections))
	}

	if err := SeedDemo(ctx, db, true); err != nil {
		t.Fatalf("SeedDemo: %v", err)
	}
	n, _ := New(db).CountArticles(ctx, ArticleFilter{PostType: model.PostTypeNews})
	if n != int64(len(demoArticles)) {
		t.Errorf("demo articles = %d, want %d", n, len(demoArticles))
	}
}

func TestSQLiteVersion(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	v, err := SQLiteVersion(context.Background(), db)
	if err != nil {
		t.Fatalf("SQLiteVersion: %v", err)
	}
	if v == "" {
		t.Error("empty version")
	}
}

func assertSlugs(t *testing.T, items []model.Article, want ...string) {
	t.Helper()
	if len(items) != len(want) {
		got := make([]string, len(items))
		for i, a := range items {
			got[i] = a.Slug
		}
		t.Fatalf("slugs = %v, want %v", got, want)
	}
	for i, a := range items {
		if a.Slug != want[i] {
			t.Errorf("slug[%d] = %q, want %q", i, a.Slug, want[i])
		}
	}
}
