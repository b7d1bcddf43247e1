// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package shortcode

import (
	"context"
	"html/template"

	"github.com/olegiv/newsroom/internal/blocks"
	"github.com/olegiv/newsroom/internal/model"
	"github.com/olegiv/newsroom/internal/store"
)

// Limits of the count attribute.
const (
	DefaultCount = 5
	MaxCount     = 50
)

// ArticleLister lists articles. *service.ArticleService satisfies it.
type ArticleLister interface {
	List(ctx context.Context, f store.ArticleFilter) ([]model.Article, error)
}

// SectionLister lists child sections. *service.SectionService satisfies it.
type SectionLister interface {
	Children(ctx context.Context, parentSlug string) ([]model.Section, error)
}

// News shortcode tags.
const (
	TagNewsList       = "news_list"
	TagNewsSections   = "news_sections"
	TagBreakingTicker = "breaking_ticker"
)

// NewsTags lists the tags registered by RegisterNews.
var NewsTags = []string{TagNewsList, TagNewsSections, TagBreakingTicker}

// RegisterNews registers news_list, news_sections and breaking_ticker.
func RegisterNews(r *Registry, articles ArticleLister, sections SectionLister) error {
	n := &newsShortcodes{articles: articles, sections: sections}
	for tag, fn := range map[string]HandlerFunc{
		TagNewsList:       n.list,
		TagNewsSections:   n.sectionList,
		TagBreakingTicker: n.ticker,
	} {
		if err := r.Register(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

type newsShortcodes struct {
	articles ArticleLister
	sections SectionLister
}

func clampCount(n int) int64 {
	if n < 1 {
		return DefaultCount
	}
	if n > MaxCount {
		return MaxCount
	}
	return int64(n)
}

func (n *newsShortcodes) published(ctx context.Context, f store.ArticleFilter) ([]model.Article, error) {
	f.PostType = model.PostTypeNews
	f.Status = model.ArticleStatusPublished
	return n.articles.List(ctx, f)
}

// list handles [news_list count=5 section=world featured=1 breaking=0 layout=grid].
func (n *newsShortcodes) list(ctx context.Context, attrs Attrs) (template.HTML, error) {
	items, err := n.published(ctx, store.ArticleFilter{
		SectionSlug:  attrs.String("section", ""),
		FeaturedOnly: attrs.Bool("featured", false),
		BreakingOnly: attrs.Bool("breaking", false),
		Limit:        clampCount(attrs.Int("count", DefaultCount)),
	})
	if err != nil || len(items) == 0 {
		return "", err
	}

	layout := "list"
	if attrs.String("layout", "list") == "grid" {
		layout = "grid"
	}
	return blocks.RenderFragment(layout, items)
}

// sectionList handles [news_sections parent=world show_count=1].
func (n *newsShortcodes) sectionList(ctx context.Context, attrs Attrs) (template.HTML, error) {
	sections, err := n.sections.Children(ctx, attrs.String("parent", ""))
	if err != nil || len(sections) == 0 {
		return "", err
	}
	return blocks.RenderFragment("sections", struct {
		Sections  []model.Section
		ShowCount bool
	}{sections, attrs.Bool("show_count", false)})
}

// ticker handles [breaking_ticker count=5 scroll=1 speed=30].
func (n *newsShortcodes) ticker(ctx context.Context, attrs Attrs) (template.HTML, error) {
	items, err := n.published(ctx, store.ArticleFilter{
		BreakingOnly: true,
		Limit:        clampCount(attrs.Int("count", DefaultCount)),
	})
	if err != nil || len(items) == 0 {
		return "", err
	}

	speed := attrs.Int("speed", 30)
	if speed < 1 {
		speed = 30
	}
	return blocks.RenderFragment("ticker", struct {
		Items  []model.Article
		Scroll bool
		Speed  int
	}{items, attrs.Bool("scroll", true), speed})
}
