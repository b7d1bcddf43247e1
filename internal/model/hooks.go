// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "html/template"

// Hook names fired by the content services.
const (
	HookArticleAfterSave    = "article.after_save"
	HookArticleAfterDelete  = "article.after_delete"
	HookArticleBeforeRender = "article.before_render"
	HookSectionAfterSave    = "section.after_save"
)

// ArticleSaved is the payload of article.after_save.
type ArticleSaved struct {
	Article  *Article
	Previous *Article // state before the save, nil on create
	Created  bool
}

// BecameBreaking reports whether the save turned the article into published
// breaking news. Saving an article that already was one reports false.
func (e *ArticleSaved) BecameBreaking() bool {
	if !liveBreaking(e.Article) {
		return false
	}
	return e.Previous == nil || !liveBreaking(e.Previous)
}

func liveBreaking(a *Article) bool {
	return a != nil && a.Meta.Breaking && a.IsPublished()
}

// ArticleDeleted is the payload of article.after_delete.
type ArticleDeleted struct {
	ID   int64
	Slug string
}

// SectionSaved is the payload of section.after_save. Section is nil when
// the section was deleted.
type SectionSaved struct {
	ID      int64
	Section *Section
}

// ArticleRender is the payload of article.before_render. Handlers may
// rewrite Body; the returned payload is what the page shows.
type ArticleRender struct {
	Article *Article
	Body    template.HTML
}
