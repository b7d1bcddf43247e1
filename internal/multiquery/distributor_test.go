// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package multiquery

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/olegiv/newsroom/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSource serves a fixed result set honoring Offset and Limit.
type fakeSource struct {
	items   []model.Article
	queries []Query
	err     error
}

func newFakeSource(n int) *fakeSource {
	s := &fakeSource{}
	for i := range n {
		s.items = append(s.items, model.Article{ID: int64(i), Title: fmt.Sprintf("item%d", i)})
	}
	return s
}

func (s *fakeSource) fetch(_ context.Context, q Query) ([]model.Article, error) {
	s.queries = append(s.queries, q)
	if s.err != nil {
		return nil, s.err
	}
	if q.Offset >= int64(len(s.items)) {
		return nil, nil
	}
	end := int64(len(s.items))
	if q.Limit >= 0 && q.Offset+q.Limit < end {
		end = q.Offset + q.Limit
	}
	return s.items[q.Offset:end], nil
}

func listRender(_ context.Context, t Template, items []model.Article) (template.HTML, error) {
	titles := make([]string, len(items))
	for i, a := range items {
		titles[i] = a.Title
	}
	return template.HTML("[" + t.Role + ":" + strings.Join(titles, ",") + "]"), nil
}

func TestDistributor_FiveItemsThreeTemplates(t *testing.T) {
	src := newFakeSource(5)
	d := NewDistributor(src.fetch, listRender, testLogger())

	got := d.Render(context.Background(), Query{}, mustTemplates(t, "featured", "breaking", "remainder"))
	want := `<div class="news-multi-query">[featured:item0][breaking:item1][remainder:item2,item3,item4]</div>`
	if string(got) != want {
		t.Errorf("Render() = %s\nwant %s", got, want)
	}
}

func TestDistributor_InheritsFiltersReplacesPaging(t *testing.T) {
	src := newFakeSource(5)
	d := NewDistributor(src.fetch, listRender, testLogger())

	q := Query{Section: "world", FeaturedOnly: true, Order: "oldest", Page: 3, PerPage: 2}
	d.Render(context.Background(), q, mustTemplates(t, "hero", "list"))

	if len(src.queries) != 2 {
		t.Fatalf("queries = %d, want 2", len(src.queries))
	}
	for _, got := range src.queries {
		if got.Section != "world" || !got.FeaturedOnly || got.Order != "oldest" {
			t.Errorf("filters not inherited: %+v", got)
		}
	}
	if src.queries[0].Offset != 0 || src.queries[0].Limit != 1 {
		t.Errorf("hero window = %d/%d", src.queries[0].Offset, src.queries[0].Limit)
	}
	if src.queries[1].Offset != 1 || src.queries[1].Limit != Unbounded {
		t.Errorf("list window = %d/%d", src.queries[1].Offset, src.queries[1].Limit)
	}
}

func TestDistributor_SingleTemplateUsesDefaultPaging(t *testing.T) {
	src := newFakeSource(30)
	d := NewDistributor(src.fetch, listRender, testLogger())

	got := d.Render(context.Background(), Query{Page: 2, PerPage: 4}, mustTemplates(t, "remainder"))

	if len(src.queries) != 1 {
		t.Fatalf("queries = %d, want 1", len(src.queries))
	}
	if q := src.queries[0]; q.Offset != 4 || q.Limit != 4 {
		t.Errorf("window = %d/%d, want 4/4", q.Offset, q.Limit)
	}
	want := `<div class="news-query">[remainder:item4,item5,item6,item7]</div>`
	if string(got) != want {
		t.Errorf("Render() = %s", got)
	}
}

func TestDistributor_SmallResultSet(t *testing.T) {
	src := newFakeSource(1)
	d := NewDistributor(src.fetch, listRender, testLogger())

	got := d.Render(context.Background(), Query{}, mustTemplates(t, "featured", "breaking", "list"))
	want := `<div class="news-multi-query">[featured:item0]</div>`
	if string(got) != want {
		t.Errorf("Render() = %s, want %s", got, want)
	}
}

func TestDistributor_SecondRemainderGetsNothing(t *testing.T) {
	src := newFakeSource(4)
	d := NewDistributor(src.fetch, listRender, testLogger())

	got := d.Render(context.Background(), Query{}, mustTemplates(t, "hero", "list", "grid"))
	want := `<div class="news-multi-query">[hero:item0][list:item1,item2,item3]</div>`
	if string(got) != want {
		t.Errorf("Render() = %s, want %s", got, want)
	}
	if len(src.queries) != 2 {
		t.Errorf("empty window should not be fetched, got %d queries", len(src.queries))
	}
}

func TestDistributor_FetchErrorYieldsEmptyFragment(t *testing.T) {
	src := newFakeSource(3)
	src.err = errors.New("db down")
	d := NewDistributor(src.fetch, listRender, testLogger())

	got := d.Render(context.Background(), Query{}, mustTemplates(t, "hero", "list"))
	if string(got) != `<div class="news-multi-query"></div>` {
		t.Errorf("Render() = %s", got)
	}
}

func TestDistributor_NoTemplates(t *testing.T) {
	d := NewDistributor(newFakeSource(3).fetch, listRender, testLogger())
	if got := d.Render(context.Background(), Query{}, nil); got != "" {
		t.Errorf("Render() = %s, want empty", got)
	}
}

func TestQueryNormalize(t *testing.T) {
	q := Query{Page: -1, PerPage: 1000}.Normalize()
	if q.Page != 1 || q.PerPage != MaxPerPage {
		t.Errorf("Normalize() = %+v", q)
	}
	q = Query{}.Normalize()
	if q.PerPage != DefaultPerPage {
		t.Errorf("default PerPage = %d", q.PerPage)
	}
}
